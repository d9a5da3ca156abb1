package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftbot/botscript/values"
)

func TestInvokeSuccess(t *testing.T) {
	rec := &Recorder{}
	b := NewReferenceBridge(rec, time.Second)

	v, msg, err := b.Invoke(context.Background(), "say", []values.Value{&values.String{Value: "hello"}})
	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Equal(t, values.NullVal, v)
	require.Len(t, rec.Calls, 1)
	assert.Equal(t, "say", rec.Calls[0].Verb)
	assert.Equal(t, []string{"hello"}, rec.Calls[0].Args)
}

func TestInvokeValidationFailure(t *testing.T) {
	rec := &Recorder{}
	b := NewReferenceBridge(rec, time.Second)

	v, msg, err := b.Invoke(context.Background(), "say", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NotEmpty(t, msg)
	assert.Empty(t, rec.Calls)
}

func TestInvokeUndefinedVerb(t *testing.T) {
	rec := &Recorder{}
	b := NewReferenceBridge(rec, time.Second)

	_, _, err := b.Invoke(context.Background(), "fly", nil)
	assert.Error(t, err)
}

func TestInvokeExecutorError(t *testing.T) {
	rec := &Recorder{}
	b := NewReferenceBridge(rec, time.Second)
	b.Register("break_block", nil, func(ctx context.Context, args []values.Value) (values.Value, error) {
		return nil, Unavailable
	}, 0)

	_, msg, err := b.Invoke(context.Background(), "break_block", nil)
	assert.Empty(t, msg)
	assert.ErrorIs(t, err, Unavailable)
}

func TestInvokeTimeout(t *testing.T) {
	rec := &Recorder{}
	b := NewReferenceBridge(rec, time.Hour)
	b.Register("slow", nil, func(ctx context.Context, args []values.Value) (values.Value, error) {
		select {
		case <-time.After(time.Second):
			return values.NullVal, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, 10*time.Millisecond)

	_, msg, err := b.Invoke(context.Background(), "slow", nil)
	assert.Empty(t, msg)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookup(t *testing.T) {
	rec := &Recorder{}
	b := NewReferenceBridge(rec, time.Second)

	a, ok := b.Lookup("move")
	require.True(t, ok)
	assert.Equal(t, "move", a.Verb)
	assert.True(t, a.Truthy())
	assert.Equal(t, values.HostActionType, a.Type())

	_, ok = b.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestWaitExecutesForRequestedDuration(t *testing.T) {
	rec := &Recorder{}
	b := NewReferenceBridge(rec, time.Second)

	start := time.Now()
	_, _, err := b.Invoke(context.Background(), "wait", []values.Value{&values.Integer{Value: 20}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
