// Package function implements the user-defined function Value. Modeled on
// the teacher's function.Function, which pairs a declaration with the
// *scope.Scope active when `func` ran; here that becomes the
// *environment.Environment active when `function ... endfunction` ran,
// giving P5 (closure capture): later mutations to that frame are visible
// because the pointer, not a snapshot, is stored.
package function

import (
	"fmt"

	"github.com/riftbot/botscript/ast"
	"github.com/riftbot/botscript/environment"
	"github.com/riftbot/botscript/values"
)

// Function is a callable, user-declared BotScript function.
type Function struct {
	Name    string
	Params  []string
	Body    *ast.Block
	Closure *environment.Environment
}

func (f *Function) Type() values.Type { return values.FunctionType }
func (f *Function) String() string    { return fmt.Sprintf("<function %s>", f.Name) }
func (f *Function) Truthy() bool      { return true }

// Native is the callable Value for a host-language builtin (print, len,
// type — §4.4's "preloaded builtins"). Modeled on the teacher's
// std.Builtin{Name, Callback} pair, trimmed to a plain Go func since
// BotScript's builtins never need to call back into user code or read
// console input the way go-mix's sort/input helpers do.
type Native struct {
	Name string
	Fn   func(args []values.Value) (values.Value, error)
}

func (n *Native) Type() values.Type { return values.FunctionType }
func (n *Native) String() string    { return fmt.Sprintf("<function %s>", n.Name) }
func (n *Native) Truthy() bool      { return true }
