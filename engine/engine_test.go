package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftbot/botscript/config"
	"github.com/riftbot/botscript/diag"
	"github.com/riftbot/botscript/host"
	"github.com/riftbot/botscript/store"
)

func newTestEngine() (*Engine, *host.Recorder) {
	cfg := &config.Config{MaxCallDepth: 256, YieldEvery: 1000, ActionTimeout: time.Second, StoreBackend: "memory"}
	rec := &host.Recorder{}
	bridge := host.NewReferenceBridge(rec, cfg.ActionTimeout)
	return New(cfg, store.NewMemory(), bridge, zap.NewNop().Sugar()), rec
}

// Scenario 1 (§8): arithmetic precedence.
func TestExecuteSourceArithmeticPrecedence(t *testing.T) {
	e, rec := newTestEngine()
	res, err := e.ExecuteSource(context.Background(), "def $x = 1 + 2 * 3\nsay $x\n")
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.GreaterOrEqual(t, res.StatementsExecuted, 2)
	require.Len(t, rec.Calls, 1)
	assert.Equal(t, []string{"7"}, rec.Calls[0].Args)
}

// Scenario 4 (§8): an uncaught error is reported with no host calls, and
// the statement that raised it still counts.
func TestExecuteSourceUncaughtErrorReported(t *testing.T) {
	e, rec := newTestEngine()
	res, err := e.ExecuteSource(context.Background(), "def $z = $undefined + 1\n")
	require.NoError(t, err)
	assert.False(t, res.Success())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.UndefinedVariable, res.Diagnostics[0].Kind)
	assert.Equal(t, 1, res.StatementsExecuted)
	assert.Empty(t, rec.Calls)
}

// A source with a parse error is refused outright (§7): no statements run.
func TestExecuteSourceParseErrorRefusesExecution(t *testing.T) {
	e, rec := newTestEngine()
	res, err := e.ExecuteSource(context.Background(), "if $x then\nsay \"missing endif\"\n")
	require.NoError(t, err)
	assert.False(t, res.Success())
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == diag.ParseError {
			found = true
		}
	}
	assert.True(t, found)
	assert.Zero(t, res.StatementsExecuted)
	assert.Empty(t, rec.Calls)
}

func TestSaveLoadAndExecute(t *testing.T) {
	e, rec := newTestEngine()
	require.NoError(t, e.Save(context.Background(), "greet", `say "hello"`+"\n"))

	names, err := e.ListSaved(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"greet"}, names)

	res, err := e.LoadAndExecute(context.Background(), "greet")
	require.NoError(t, err)
	assert.True(t, res.Success())
	require.Len(t, rec.Calls, 1)
	assert.Equal(t, "say", rec.Calls[0].Verb)
}

func TestLoadAndExecuteUnknownScript(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.LoadAndExecute(context.Background(), "nope")
	require.Error(t, err)
}

// P8: at-most-one execution — a second ExecuteSource call while one is
// running must be rejected, never run concurrently.
func TestAtMostOneExecution(t *testing.T) {
	e, _ := newTestEngine()

	src := "wait 200\n"

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = e.ExecuteSource(context.Background(), src)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.True(t, e.Status().Running)

	_, err := e.ExecuteSource(context.Background(), `say "second"`)
	assert.Equal(t, ErrAlreadyRunning, err)

	wg.Wait()
	assert.False(t, e.Status().Running)
}

// Scenario 5 (§8): cooperative cancellation bounds the number of host
// calls the stopped script manages to make.
func TestStopCancelsRunningScript(t *testing.T) {
	cfg := &config.Config{MaxCallDepth: 256, YieldEvery: 1, ActionTimeout: time.Second, StoreBackend: "memory"}
	rec := &host.Recorder{}
	bridge := host.NewReferenceBridge(rec, cfg.ActionTimeout)
	e := New(cfg, store.NewMemory(), bridge, zap.NewNop().Sugar())

	done := make(chan *ExecutionResult, 1)
	go func() {
		res, _ := e.ExecuteSource(context.Background(), "while true\nsay \"spin\"\nendwhile\n")
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	e.Stop()

	select {
	case res := <-done:
		require.NotNil(t, res)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, diag.Cancelled, res.Diagnostics[0].Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("execution did not stop after cancellation")
	}
	assert.Less(t, len(rec.Calls), 100000)
}
