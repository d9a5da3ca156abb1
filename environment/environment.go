// Package environment implements the lexically-nested name->value chain
// BotScript programs run in. Modeled directly on the teacher's
// scope.Scope, trimmed to the const/let/type bookkeeping BotScript doesn't
// have and given the liveness closures actually need (§4.4, §9): a
// function's captured environment is the real frame pointer, not a copy,
// so mutations made after declaration are visible at call time (P5).
package environment

import "github.com/riftbot/botscript/values"

// Environment is one frame in the lexical scope chain.
type Environment struct {
	vars   map[string]values.Value
	parent *Environment
}

// NewGlobal creates the root frame with no parent.
func NewGlobal() *Environment {
	return &Environment{vars: make(map[string]values.Value)}
}

// NewChild allocates a frame parented to this one — used at block entry
// for user-callable bodies and at function-call entry.
func (e *Environment) NewChild() *Environment {
	return &Environment{vars: make(map[string]values.Value), parent: e}
}

// Define inserts or overwrites a binding in the current frame only. This
// is how `def` and function-parameter binding work; it never touches an
// outer frame, so it's how shadowing happens.
func (e *Environment) Define(name string, v values.Value) {
	e.vars[name] = v
}

// Get walks the parent chain for the first binding of name.
func (e *Environment) Get(name string) (values.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign walks the parent chain and mutates the first frame that already
// binds name, returning false (without creating a binding) if none does.
func (e *Environment) Assign(name string, v values.Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return true
		}
	}
	return false
}

// Parent exposes the enclosing frame. Function values do not use it: they
// capture the declaring *Environment itself, without copying it.
func (e *Environment) Parent() *Environment { return e.parent }
