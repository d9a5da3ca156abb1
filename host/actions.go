package host

import (
	"context"
	"fmt"
	"time"

	"github.com/riftbot/botscript/values"
)

// Recorder captures every host action invocation, in order. The reference
// bridge's executors write to it and tests assert on what the script
// caused. The commands_executed counter shown by status comes from the
// evaluator's Stats, not from the Recorder.
type Recorder struct {
	Calls []Call
}

// Call is one recorded invocation of a host action.
type Call struct {
	Verb string
	Args []string
}

func (r *Recorder) record(verb string, args []values.Value) {
	strArgs := make([]string, len(args))
	for i, a := range args {
		strArgs[i] = a.String()
	}
	r.Calls = append(r.Calls, Call{Verb: verb, Args: strArgs})
}

// NewReferenceBridge builds a Bridge wired with simple, deterministic
// implementations of the nine verbs the scripting examples use (§4.6).
// A production bot host is expected to Register its own executors over
// this bridge (or build its own); this reference implementation exists so
// `execute_source`/`script eval` works out of the box and so the
// evaluator's test suite has something concrete to call against.
func NewReferenceBridge(rec *Recorder, defaultTimeout time.Duration) *Bridge {
	b := NewBridge(defaultTimeout)

	b.Register("say", minArgs(1), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("say", args)
		return values.NullVal, nil
	}, 0)

	b.Register("move", minArgs(1), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("move", args)
		return values.NullVal, nil
	}, 0)

	b.Register("goto", exactArgs(3), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("goto", args)
		return values.NullVal, nil
	}, 0)

	b.Register("attack", minArgs(0), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("attack", args)
		return values.NullVal, nil
	}, 0)

	b.Register("dig", minArgs(0), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("dig", args)
		return values.NullVal, nil
	}, 0)

	b.Register("place", minArgs(1), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("place", args)
		return values.NullVal, nil
	}, 0)

	b.Register("wait", exactArgs(1), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("wait", args)
		ms, ok := args[0].(*values.Integer)
		if !ok {
			return nil, fmt.Errorf("wait expects an integer millisecond count")
		}
		select {
		case <-time.After(time.Duration(ms.Value) * time.Millisecond):
			return values.NullVal, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, 0)

	b.Register("equip", minArgs(1), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("equip", args)
		return values.NullVal, nil
	}, 0)

	b.Register("drop", minArgs(0), func(ctx context.Context, args []values.Value) (values.Value, error) {
		rec.record("drop", args)
		return values.NullVal, nil
	}, 0)

	return b
}

func minArgs(n int) Validator {
	return func(args []values.Value) (string, bool) {
		if len(args) < n {
			return fmt.Sprintf("expected at least %d argument(s), got %d", n, len(args)), false
		}
		return "", true
	}
}

func exactArgs(n int) Validator {
	return func(args []values.Value) (string, bool) {
		if len(args) != n {
			return fmt.Sprintf("expected %d argument(s), got %d", n, len(args)), false
		}
		return "", true
	}
}
