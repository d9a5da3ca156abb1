package eval

import (
	"fmt"
	"unicode/utf8"

	"github.com/riftbot/botscript/environment"
	"github.com/riftbot/botscript/function"
	"github.com/riftbot/botscript/values"
)

// registerBuiltins preloads the global frame with the builtins §4.4's
// new_global() calls for: print, len, and type. Host verbs are not bound
// here as named values — they're reached through the dedicated host_call
// grammar production (§4.2) instead, which the evaluator dispatches
// directly against the bridge (invokeHost), so there is no separate
// "preload host verbs into env" step to duplicate that path.
func registerBuiltins(env *environment.Environment) {
	env.Define("print", &function.Native{Name: "print", Fn: builtinPrint})
	env.Define("len", &function.Native{Name: "len", Fn: builtinLen})
	env.Define("type", &function.Native{Name: "type", Fn: builtinType})
}

func builtinPrint(args []values.Value) (values.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("print expects 1 argument, got %d", len(args))
	}
	return &values.String{Value: args[0].String()}, nil
}

// builtinLen reports a string's length in code points (§3's column
// counting rule uses the same unit, for consistency).
func builtinLen(args []values.Value) (values.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len expects 1 argument, got %d", len(args))
	}
	s, ok := args[0].(*values.String)
	if !ok {
		return nil, fmt.Errorf("len requires a string, got %s", args[0].Type())
	}
	return &values.Integer{Value: int64(utf8.RuneCountInString(s.Value))}, nil
}

func builtinType(args []values.Value) (values.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("type expects 1 argument, got %d", len(args))
	}
	return &values.String{Value: string(args[0].Type())}, nil
}
