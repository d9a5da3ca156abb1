// Package engine is BotScript's orchestration facade: the "current
// execution" context described in the evaluator design notes. It is the
// only place a running flag or cancellation flag lives — everything else
// (lexer, parser, evaluator) is stateless or scoped to one call — and it
// implements the invocation surface a chat host calls into (§6):
// execute_source, load_and_execute, save, list_saved, status, stop.
//
// Modeled on the teacher's main.go mode dispatch (file-mode vs REPL-mode
// both funnel through one parse-then-eval path) collapsed into a single
// reusable type instead of package-level functions, with conduit's
// request-scoped zap logging and a google/uuid execution id attached to
// every result so host-side logs can be correlated to one `script eval`
// or `script run`.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftbot/botscript/config"
	"github.com/riftbot/botscript/diag"
	"github.com/riftbot/botscript/eval"
	"github.com/riftbot/botscript/host"
	"github.com/riftbot/botscript/parser"
	"github.com/riftbot/botscript/store"
	"github.com/riftbot/botscript/values"
)

// ExecutionResult aggregates everything §6 requires a caller to see about
// one execution: the final value, the statement/command counters, wall
// clock time, and every diagnostic (lex, parse, and runtime) collected
// along the way.
type ExecutionResult struct {
	ID                 uuid.UUID
	Value              values.Value
	StatementsExecuted int
	CommandsExecuted   int
	Elapsed            time.Duration
	Diagnostics        []diag.Diagnostic
}

// Success reports whether Diagnostics is empty. Diagnostics caught by
// try/catch never reach this struct, so an uncaught runtime error makes
// Success false; so does any lex or parse diagnostic, including a lex
// error in a program that was still evaluated (only parse errors refuse
// execution).
func (r *ExecutionResult) Success() bool { return len(r.Diagnostics) == 0 }

// Status is the snapshot `status()` (§6) returns.
type Status struct {
	Running            bool
	StatementsExecuted int
	CommandsExecuted   int
	Elapsed            time.Duration
}

// Engine owns the single active execution's arena (per §9's design note:
// "the singleton 'current execution' is the only process-wide state...
// introduce it explicitly via a context parameter rather than ambient
// access") and the saved-script store. One Engine serves one bot; it
// enforces P8 (at-most-one execution) by rejecting a second
// ExecuteSource/LoadAndExecute call while one is already running.
type Engine struct {
	cfg    *config.Config
	store  store.Store
	bridge *host.Bridge
	log    *zap.SugaredLogger

	mu        sync.Mutex
	running   bool
	cancelled atomic.Bool
	started   time.Time
	current   *eval.Evaluator
}

// New builds an Engine around the given configuration, saved-script
// store, and host bridge. log may be a no-op logger (see logging.New).
func New(cfg *config.Config, st store.Store, bridge *host.Bridge, log *zap.SugaredLogger) *Engine {
	return &Engine{cfg: cfg, store: st, bridge: bridge, log: log}
}

// ErrAlreadyRunning is returned by ExecuteSource/LoadAndExecute when a
// script is already running — this Engine's choice of the two §5 allows
// ("queues or rejects"); Status().Running lets a caller disambiguate
// before retrying.
var ErrAlreadyRunning = &stringError{"a script is already running"}

type stringError struct{ msg string }

func (e *stringError) Error() string { return e.msg }

// ExecuteSource parses and evaluates a literal program (§6 execute_source).
func (e *Engine) ExecuteSource(ctx context.Context, source string) (*ExecutionResult, error) {
	return e.run(ctx, source)
}

// LoadAndExecute fetches a saved script by name and executes it (§6
// load_and_execute). A not-found store error is returned as-is (callers
// can test it with errors.IsNotFound) rather than folded into a
// diagnostic, since it never reached lexing.
func (e *Engine) LoadAndExecute(ctx context.Context, name string) (*ExecutionResult, error) {
	source, err := e.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, source)
}

// Save validates name and stores source (§6 save).
func (e *Engine) Save(ctx context.Context, name, source string) error {
	return e.store.Save(ctx, name, source)
}

// ListSaved returns every saved script name, sorted (§6 list_saved).
func (e *Engine) ListSaved(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// Status reports the running execution's live counters (§6 status).
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{Running: e.running}
	if e.running && e.current != nil {
		st.StatementsExecuted = e.current.Stats.StatementsExecuted
		st.CommandsExecuted = e.current.Stats.CommandsExecuted
		st.Elapsed = time.Since(e.started)
	}
	return st
}

// Stop requests cooperative cancellation of the running execution (§6
// stop, §5 cancellation). It is a no-op if nothing is running. The
// evaluator observes the flag at its next suspension point — at most
// YieldEvery statements away, or one in-flight host-action timeout — and
// unwinds with a non-catchable `cancelled` diagnostic (P7).
func (e *Engine) Stop() {
	e.cancelled.Store(true)
}

// run implements the shared execute_source/load_and_execute pipeline:
// claim the single-execution slot, parse, refuse on a parse error,
// otherwise evaluate, then release the slot.
func (e *Engine) run(ctx context.Context, source string) (*ExecutionResult, error) {
	if !e.claim() {
		return nil, ErrAlreadyRunning
	}
	defer e.release()

	id := uuid.New()
	log := e.log.With("execution_id", id.String())
	log.Infow("execution starting")

	p := parser.New(source)
	block := p.Parse()

	result := &ExecutionResult{ID: id, Value: values.NullVal, Diagnostics: append([]diag.Diagnostic(nil), p.Diagnostics...)}

	if hasParseError(p.Diagnostics) {
		log.Infow("execution refused: parse error", "diagnostic_count", len(p.Diagnostics))
		return result, nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if e.cfg.ScriptTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.ScriptTimeout)
		defer cancel()
	}

	ev := eval.New(e.bridge, eval.Limits{MaxCallDepth: e.cfg.MaxCallDepth, YieldEvery: e.cfg.YieldEvery}, e.cancelled.Load)

	e.mu.Lock()
	e.current = ev
	e.started = time.Now()
	e.mu.Unlock()

	start := time.Now()
	value := ev.Run(runCtx, block)
	elapsed := time.Since(start)

	result.Value = value
	result.StatementsExecuted = ev.Stats.StatementsExecuted
	result.CommandsExecuted = ev.Stats.CommandsExecuted
	result.Elapsed = elapsed
	result.Diagnostics = append(result.Diagnostics, ev.Diagnostics...)

	if len(ev.Diagnostics) > 0 {
		log.Infow("execution finished with diagnostic", "kind", ev.Diagnostics[0].Kind, "message", ev.Diagnostics[0].Message)
	} else {
		log.Infow("execution finished", "statements", result.StatementsExecuted, "commands", result.CommandsExecuted, "elapsed", elapsed)
	}

	return result, nil
}

func hasParseError(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Kind == diag.ParseError {
			return true
		}
	}
	return false
}

// claim atomically transitions Engine into the running state, returning
// false if it already was (P8 at-most-one execution).
func (e *Engine) claim() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	e.cancelled.Store(false)
	return true
}

func (e *Engine) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.current = nil
}
