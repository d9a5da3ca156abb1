// Package host implements the bridge between BotScript's evaluator and
// bot actions (say, move, goto, attack, dig, place, wait, equip, drop).
// Modeled on the teacher's std.Builtin/Runtime pair — a name-keyed table
// of callbacks the evaluator invokes through a narrow interface — widened
// per §4.6 with per-action arity/type validation and a timeout, and per
// §5 with the suspend/cancel semantics host actions need (a script
// statement "calls" an action synchronously from the evaluator's point of
// view, but the action itself may block on a channel until the host
// completes it or the deadline/cancellation fires).
package host

import (
	"context"
	"fmt"
	"time"

	"github.com/riftbot/botscript/values"
)

// Action is a callable host-defined action, the BotScript Value variant
// for built-in bot verbs. It is distinct from function.Function (which
// never needs a context or can time out) so the evaluator's call
// dispatch can tell them apart with a single type switch.
type Action struct {
	Verb    string
	Bridge  *Bridge
}

func (a *Action) Type() values.Type { return values.HostActionType }
func (a *Action) String() string    { return fmt.Sprintf("<host_action %s>", a.Verb) }
func (a *Action) Truthy() bool      { return true }

// Executor performs one host action. It must respect ctx cancellation and
// return promptly when ctx is done — Bridge.Invoke enforces the
// configured per-action timeout via ctx, not the executor.
type Executor func(ctx context.Context, args []values.Value) (values.Value, error)

// Validator checks argument count/types before Executor runs, returning a
// message to surface as a type_error if invalid.
type Validator func(args []values.Value) (string, bool)

// Unavailable is returned by an Executor to signal the bot is
// disconnected or in an incompatible state; the evaluator turns this into
// a catchable host_error (§4.6).
var Unavailable = fmt.Errorf("host_unavailable")

// entry is one row of the action table.
type entry struct {
	validate Validator
	execute  Executor
	timeout  time.Duration
}

// Bridge is the table of host actions keyed by verb, plus the shared
// default timeout applied when an entry doesn't override it.
type Bridge struct {
	actions        map[string]*entry
	defaultTimeout time.Duration
}

// NewBridge creates an empty bridge with the given default per-action
// timeout (§4.6 default: 30s).
func NewBridge(defaultTimeout time.Duration) *Bridge {
	return &Bridge{actions: make(map[string]*entry), defaultTimeout: defaultTimeout}
}

// Register installs or replaces the executor for verb, optionally with a
// per-verb timeout override (zero uses the bridge default) and an
// argument validator (nil skips validation).
func (b *Bridge) Register(verb string, validate Validator, execute Executor, timeout time.Duration) {
	b.actions[verb] = &entry{validate: validate, execute: execute, timeout: timeout}
}

// Lookup returns the callable Action Value for verb, or false if the
// bridge has no action registered under that name (undefined_function).
func (b *Bridge) Lookup(verb string) (*Action, bool) {
	if _, ok := b.actions[verb]; !ok {
		return nil, false
	}
	return &Action{Verb: verb, Bridge: b}, true
}

// Invoke validates and runs the named action with a context bounded by
// its configured timeout (or the bridge default). The three outcomes the
// evaluator must distinguish are all represented as plain Go values:
// (result, "", nil) on success, (nil, typeErrorMsg, nil) on a failed
// validation, and (nil, "", err) for host_error/timeout — err is
// context.DeadlineExceeded for a timeout and Unavailable (or another
// executor error) for host_error.
func (b *Bridge) Invoke(ctx context.Context, verb string, args []values.Value) (values.Value, string, error) {
	e, ok := b.actions[verb]
	if !ok {
		return nil, "", fmt.Errorf("undefined host action: %s", verb)
	}
	if e.validate != nil {
		if msg, ok := e.validate(args); !ok {
			return nil, msg, nil
		}
	}
	timeout := e.timeout
	if timeout == 0 {
		timeout = b.defaultTimeout
	}
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   values.Value
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := e.execute(actionCtx, args)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.v, "", o.err
	case <-actionCtx.Done():
		return nil, "", actionCtx.Err()
	}
}
