// Package eval implements the tree-walking evaluator for BotScript.
// Modeled on the teacher's eval.Evaluator (a struct holding the live
// scope, pluggable builtins, and a writer) but reworked around the
// spec's execution model: no global/package-level "current execution"
// state, a configurable call-stack depth and cooperative yield instead of
// unbounded recursion and a blocking run loop, and an explicit
// diag.Diagnostic result in place of printing straight to a writer.
package eval

import (
	"context"
	"fmt"
	"math"

	"github.com/riftbot/botscript/ast"
	"github.com/riftbot/botscript/diag"
	"github.com/riftbot/botscript/environment"
	"github.com/riftbot/botscript/function"
	"github.com/riftbot/botscript/host"
	"github.com/riftbot/botscript/lexer"
	"github.com/riftbot/botscript/values"
)

// signal is the control-flow machinery the evaluator threads alongside
// values.Value returns: loops consume signalBreak/signalContinue and
// function calls consume signalReturn. Raised diagnostics do not travel
// this way; they are panicked as *raised (see below).
type signalKind int

const (
	signalNone signalKind = iota
	signalReturn
	signalBreak
	signalContinue
)

type signal struct {
	kind  signalKind
	value values.Value // only meaningful for signalReturn
}

// raised is the error type carrying a diag.Diagnostic up the Go call stack
// as a panic value. A try/catch block recovers it when its Kind is
// catchable; otherwise it keeps propagating to the top of Run.
type raised struct {
	d diag.Diagnostic
}

func (r *raised) Error() string { return r.d.String() }

func raise(kind diag.Kind, span lexer.Span, format string, args ...interface{}) *raised {
	return &raised{d: diag.New(kind, span, format, args...)}
}

// Limits bounds an execution the way §5 and §4.5 require: a maximum call
// stack depth (stack_overflow past it) and how many statements run between
// cooperative yield checks. The per-action host timeout is held by the
// host.Bridge, not here.
type Limits struct {
	MaxCallDepth int
	YieldEvery   int
}

// DefaultLimits matches the spec's stated defaults.
func DefaultLimits() Limits {
	return Limits{MaxCallDepth: 256, YieldEvery: 1000}
}

// Stats accumulates the counters ExecutionResult reports (§6).
type Stats struct {
	StatementsExecuted int
	CommandsExecuted   int
}

// Evaluator walks one AST with one global environment and one host
// bridge. Each execution gets its own Evaluator — there is no shared,
// reused instance across runs, which is what makes §9's "no globals"
// design note and §5's at-most-one-execution rule straightforward to
// enforce one level up, in the engine package.
type Evaluator struct {
	Global    *environment.Environment
	Bridge    *host.Bridge
	Limits    Limits
	Cancelled func() bool // polled at every suspension point; nil means never cancelled

	Stats       Stats
	Diagnostics []diag.Diagnostic

	callDepth       int
	stmtsSinceYield int
}

// New creates an evaluator with a fresh global frame over bridge. cancelled
// may be nil, in which case cancellation is never observed.
func New(bridge *host.Bridge, limits Limits, cancelled func() bool) *Evaluator {
	global := environment.NewGlobal()
	registerBuiltins(global)
	return &Evaluator{
		Global:    global,
		Bridge:    bridge,
		Limits:    limits,
		Cancelled: cancelled,
	}
}

// Run evaluates program top to bottom in the global environment. It
// returns the value of the last top-level statement evaluated (null for
// an empty program or after an uncaught error). The first diagnostic that
// no try/catch intercepts, fatal or not, stops the run and is recorded in
// e.Diagnostics.
func (e *Evaluator) Run(ctx context.Context, program *ast.Block) values.Value {
	result, sig := e.evalBlockWithRecover(ctx, program, e.Global)
	if sig.kind == signalReturn {
		// A bare `return` at top level is a semantic error (§4.5), but
		// since script authors sometimes do it anyway and the spec asks
		// for best-effort continuation, treat it as "stop evaluating".
		return sig.value
	}
	return result
}

// evalBlockWithRecover runs a block, catching a *raised that escapes to
// this level and recording it as an uncaught diagnostic (§4.5: an error
// not intercepted by any enclosing try/catch still lets statements before
// it count, per the statements_executed contract in §6/§8 scenario 4).
func (e *Evaluator) evalBlockWithRecover(ctx context.Context, block *ast.Block, env *environment.Environment) (result values.Value, sig signal) {
	result = values.NullVal
	func() {
		defer func() {
			if r := recover(); r != nil {
				if raisedErr, ok := r.(*raised); ok {
					e.Diagnostics = append(e.Diagnostics, raisedErr.d)
					return
				}
				panic(r)
			}
		}()
		result, sig = e.evalBlock(ctx, block, env)
	}()
	return result, sig
}

// evalBlock evaluates each statement in order, honoring the cooperative
// yield/cancellation suspension point and stopping early on a
// return/break/continue signal (§4.5 control-flow signals, §5
// suspension/cancellation).
func (e *Evaluator) evalBlock(ctx context.Context, block *ast.Block, env *environment.Environment) (values.Value, signal) {
	result := values.Value(values.NullVal)
	for _, stmt := range block.Stmts {
		e.checkSuspension(ctx, stmt.Span())
		// Counted before evaluation: a statement that raises still counts
		// as "attempted" (§6/§8 scenario 4 — one failed var_decl still
		// contributes one to statements_executed).
		e.Stats.StatementsExecuted++
		v, sig := e.evalStatement(ctx, stmt, env)
		result = v
		if sig.kind != signalNone {
			return result, sig
		}
	}
	return result, signal{}
}

// checkSuspension implements §5: a yield is injected every YieldEvery
// statements and at every host_call (handled separately in invokeHost),
// at which point a pending cancellation raises the non-catchable
// `cancelled` diagnostic and unwinds the whole call stack via panic.
func (e *Evaluator) checkSuspension(ctx context.Context, span lexer.Span) {
	e.stmtsSinceYield++
	if e.Limits.YieldEvery <= 0 || e.stmtsSinceYield < e.Limits.YieldEvery {
		return
	}
	e.stmtsSinceYield = 0
	e.yield(ctx, span)
}

func (e *Evaluator) yield(ctx context.Context, span lexer.Span) {
	if ctx.Err() != nil {
		panic(raise(diag.Cancelled, span, "execution cancelled: %s", ctx.Err()))
	}
	if e.Cancelled != nil && e.Cancelled() {
		panic(raise(diag.Cancelled, span, "execution cancelled"))
	}
}

func (e *Evaluator) evalStatement(ctx context.Context, stmt ast.Statement, env *environment.Environment) (values.Value, signal) {
	switch n := stmt.(type) {
	case *ast.VarDecl:
		v := e.evalExpr(ctx, n.Init, env)
		env.Define(n.Name, v)
		return v, signal{}
	case *ast.Assign:
		v := e.evalExpr(ctx, n.Value, env)
		if !env.Assign(n.Target, v) {
			panic(raise(diag.UndefinedVariable, n.Span(), "undefined variable: %s", n.Target))
		}
		return v, signal{}
	case *ast.ExprStmt:
		return e.evalExpr(ctx, n.Expr, env), signal{}
	case *ast.Block:
		return e.evalBlock(ctx, n, env.NewChild())
	case *ast.If:
		cond := e.evalExpr(ctx, n.Cond, env)
		if cond.Truthy() {
			return e.evalBlock(ctx, n.Then, env.NewChild())
		}
		if n.Else != nil {
			return e.evalBlock(ctx, n.Else, env.NewChild())
		}
		return values.NullVal, signal{}
	case *ast.While:
		return e.evalWhile(ctx, n, env)
	case *ast.Repeat:
		return e.evalRepeat(ctx, n, env)
	case *ast.For:
		return e.evalFor(ctx, n, env)
	case *ast.FunctionDecl:
		fn := &function.Function{Name: n.Name, Params: n.Params, Body: n.Body, Closure: env}
		env.Define(n.Name, fn)
		return values.NullVal, signal{}
	case *ast.Return:
		var v values.Value = values.NullVal
		if n.Value != nil {
			v = e.evalExpr(ctx, n.Value, env)
		}
		return v, signal{kind: signalReturn, value: v}
	case *ast.Try:
		return e.evalTry(ctx, n, env)
	case *ast.Switch:
		return e.evalSwitch(ctx, n, env)
	case *ast.HostCall:
		return e.evalHostCallStmt(ctx, n, env)
	default:
		panic(fmt.Sprintf("eval: unhandled statement node %T", stmt))
	}
}

func (e *Evaluator) evalWhile(ctx context.Context, n *ast.While, env *environment.Environment) (values.Value, signal) {
	result := values.Value(values.NullVal)
	for e.evalExpr(ctx, n.Cond, env).Truthy() {
		v, sig := e.evalBlock(ctx, n.Body, env.NewChild())
		result = v
		switch sig.kind {
		case signalBreak:
			return result, signal{}
		case signalReturn:
			return result, sig
		}
	}
	return result, signal{}
}

// evalRepeat requires a non-negative integer count (type_error otherwise)
// and treats 0 as zero iterations — the pinned Open Question resolution
// rather than "run once".
func (e *Evaluator) evalRepeat(ctx context.Context, n *ast.Repeat, env *environment.Environment) (values.Value, signal) {
	countVal := e.evalExpr(ctx, n.Count, env)
	count, ok := countVal.(*values.Integer)
	if !ok {
		panic(raise(diag.TypeError, n.Span(), "repeat count must be an integer, got %s", countVal.Type()))
	}
	if count.Value < 0 {
		panic(raise(diag.TypeError, n.Span(), "repeat count must be non-negative, got %d", count.Value))
	}
	result := values.Value(values.NullVal)
	for i := int64(0); i < count.Value; i++ {
		v, sig := e.evalBlock(ctx, n.Body, env.NewChild())
		result = v
		switch sig.kind {
		case signalBreak:
			return result, signal{}
		case signalReturn:
			return result, sig
		}
	}
	return result, signal{}
}

// evalFor implements inclusive bounds with the step direction decided by
// the sign of (to - from): +1 when from <= to, -1 otherwise (§4.5 tie-break).
func (e *Evaluator) evalFor(ctx context.Context, n *ast.For, env *environment.Environment) (values.Value, signal) {
	fromVal := e.evalExpr(ctx, n.From, env)
	toVal := e.evalExpr(ctx, n.To, env)
	from, ok1 := fromVal.(*values.Integer)
	to, ok2 := toVal.(*values.Integer)
	if !ok1 || !ok2 {
		panic(raise(diag.TypeError, n.Span(), "for bounds must be integers"))
	}
	step := int64(1)
	if from.Value > to.Value {
		step = -1
	}
	result := values.Value(values.NullVal)
	loopEnv := env.NewChild()
	for i := from.Value; ; i += step {
		loopEnv.Define(n.Var, &values.Integer{Value: i})
		v, sig := e.evalBlock(ctx, n.Body, loopEnv.NewChild())
		result = v
		switch sig.kind {
		case signalBreak:
			return result, signal{}
		case signalReturn:
			return result, sig
		}
		if i == to.Value {
			break
		}
	}
	return result, signal{}
}

// evalTry runs body and, if it raises a catchable diagnostic, binds the
// message to catchVar as a string and runs the catch body (§4.5). Fatal
// diagnostics (stack_overflow, cancelled, timeout) are never caught here
// — they keep propagating as a Go panic past this recover.
func (e *Evaluator) evalTry(ctx context.Context, n *ast.Try, env *environment.Environment) (result values.Value, sig signal) {
	result = values.NullVal
	caught := false
	var caughtMsg string
	func() {
		defer func() {
			if r := recover(); r != nil {
				raisedErr, ok := r.(*raised)
				if !ok || !raisedErr.d.Kind.Catchable() {
					panic(r)
				}
				caught = true
				caughtMsg = raisedErr.d.Message
			}
		}()
		result, sig = e.evalBlock(ctx, n.Body, env.NewChild())
	}()
	if !caught {
		return result, sig
	}
	if n.Catch == nil {
		return values.NullVal, signal{}
	}
	catchEnv := env.NewChild()
	catchEnv.Define(n.CatchVar, &values.String{Value: caughtMsg})
	return e.evalBlock(ctx, n.Catch, catchEnv)
}

// evalSwitch compares the discriminator against each case label with the
// same equality rule as `==` (§4.5), runs the first match with no
// fall-through, and falls back to default only when nothing matched.
func (e *Evaluator) evalSwitch(ctx context.Context, n *ast.Switch, env *environment.Environment) (values.Value, signal) {
	disc := e.evalExpr(ctx, n.Disc, env)
	for _, c := range n.Cases {
		caseVal := e.literalValue(c.Value)
		if values.Equal(disc, caseVal) {
			return e.evalBlock(ctx, c.Body, env.NewChild())
		}
	}
	if n.Default != nil {
		return e.evalBlock(ctx, n.Default, env.NewChild())
	}
	return values.NullVal, signal{}
}

func (e *Evaluator) evalHostCallStmt(ctx context.Context, n *ast.HostCall, env *environment.Environment) (values.Value, signal) {
	args := make([]values.Value, len(n.Args))
	for i, a := range n.Args {
		args[i] = e.evalExpr(ctx, a, env)
	}
	return e.invokeHost(ctx, n.Verb, n.Span(), args), signal{}
}

// invokeHost suspends at a host_call (§5) and maps the bridge's
// three-way outcome onto the diagnostic taxonomy: validation failure is
// type_error, a context deadline is timeout, and any other executor
// error (including host.Unavailable) is the catchable host_error (§4.6).
func (e *Evaluator) invokeHost(ctx context.Context, verb string, span lexer.Span, args []values.Value) values.Value {
	e.yield(ctx, span)
	e.Stats.CommandsExecuted++
	result, validationMsg, err := e.Bridge.Invoke(ctx, verb, args)
	if validationMsg != "" {
		panic(raise(diag.TypeError, span, "%s", validationMsg))
	}
	if err != nil {
		if err == context.DeadlineExceeded {
			panic(raise(diag.Timeout, span, "host action %q timed out", verb))
		}
		panic(raise(diag.HostError, span, "host action %q failed: %s", verb, err))
	}
	if result == nil {
		return values.NullVal
	}
	return result
}

func (e *Evaluator) literalValue(lit ast.Literal) values.Value {
	switch v := lit.Value.(type) {
	case int64:
		return &values.Integer{Value: v}
	case float64:
		return &values.Float{Value: v}
	case string:
		return &values.String{Value: v}
	case bool:
		return values.FromBool(v)
	default:
		return values.NullVal
	}
}

func (e *Evaluator) evalExpr(ctx context.Context, expr ast.Expression, env *environment.Environment) values.Value {
	switch n := expr.(type) {
	case *ast.Literal:
		return e.literalValue(*n)
	case *ast.Variable:
		v, ok := env.Get(n.Name)
		if !ok {
			panic(raise(diag.UndefinedVariable, n.Span(), "undefined variable: %s", n.Name))
		}
		return v
	case *ast.Identifier:
		v, ok := env.Get(n.Name)
		if !ok {
			panic(raise(diag.UndefinedFunction, n.Span(), "undefined function: %s", n.Name))
		}
		return v
	case *ast.Grouping:
		return e.evalExpr(ctx, n.Inner, env)
	case *ast.Unary:
		return e.evalUnary(ctx, n, env)
	case *ast.Binary:
		return e.evalBinary(ctx, n, env)
	case *ast.Call:
		return e.evalCall(ctx, n, env)
	default:
		panic(fmt.Sprintf("eval: unhandled expression node %T", expr))
	}
}

func (e *Evaluator) evalUnary(ctx context.Context, n *ast.Unary, env *environment.Environment) values.Value {
	v := e.evalExpr(ctx, n.Operand, env)
	switch n.Op {
	case lexer.MINUS:
		switch num := v.(type) {
		case *values.Integer:
			return &values.Integer{Value: -num.Value}
		case *values.Float:
			return &values.Float{Value: -num.Value}
		default:
			panic(raise(diag.TypeError, n.Span(), "unary '-' requires a number, got %s", v.Type()))
		}
	case lexer.NOT:
		return values.FromBool(!v.Truthy())
	default:
		panic(fmt.Sprintf("eval: unhandled unary operator %s", n.Op))
	}
}

func (e *Evaluator) evalBinary(ctx context.Context, n *ast.Binary, env *environment.Environment) values.Value {
	switch n.Op {
	case lexer.AND:
		left := e.evalExpr(ctx, n.Left, env)
		if !left.Truthy() {
			return left
		}
		return e.evalExpr(ctx, n.Right, env)
	case lexer.OR:
		left := e.evalExpr(ctx, n.Left, env)
		if left.Truthy() {
			return left
		}
		return e.evalExpr(ctx, n.Right, env)
	}

	left := e.evalExpr(ctx, n.Left, env)
	right := e.evalExpr(ctx, n.Right, env)

	switch n.Op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PCT:
		return e.evalArithmetic(n, left, right)
	case lexer.EQ:
		return values.FromBool(values.Equal(left, right))
	case lexer.NEQ:
		return values.FromBool(!values.Equal(left, right))
	case lexer.LT, lexer.GT, lexer.LTE, lexer.GTE:
		return e.evalOrdering(n, left, right)
	default:
		panic(fmt.Sprintf("eval: unhandled binary operator %s", n.Op))
	}
}

// evalArithmetic implements §4.5: int op int stays integer (division
// truncates toward zero, modulo's sign follows the dividend); any float
// operand widens both sides to float; `+` with a string operand
// concatenates using the same stringification `print` uses.
func (e *Evaluator) evalArithmetic(n *ast.Binary, left, right values.Value) values.Value {
	if n.Op == lexer.PLUS {
		if ls, ok := left.(*values.String); ok {
			return &values.String{Value: ls.Value + right.String()}
		}
		if rs, ok := right.(*values.String); ok {
			return &values.String{Value: left.String() + rs.Value}
		}
	}

	li, lInt := left.(*values.Integer)
	ri, rInt := right.(*values.Integer)
	if lInt && rInt {
		switch n.Op {
		case lexer.PLUS:
			return &values.Integer{Value: li.Value + ri.Value}
		case lexer.MINUS:
			return &values.Integer{Value: li.Value - ri.Value}
		case lexer.STAR:
			return &values.Integer{Value: li.Value * ri.Value}
		case lexer.SLASH:
			if ri.Value == 0 {
				panic(raise(diag.DivisionByZero, n.Span(), "division_by_zero"))
			}
			return &values.Integer{Value: li.Value / ri.Value}
		case lexer.PCT:
			if ri.Value == 0 {
				panic(raise(diag.DivisionByZero, n.Span(), "division_by_zero"))
			}
			return &values.Integer{Value: li.Value % ri.Value}
		}
	}

	lf, lOk := asFloat(left)
	rf, rOk := asFloat(right)
	if !lOk || !rOk {
		panic(raise(diag.TypeError, n.Span(), "arithmetic requires numbers, got %s and %s", left.Type(), right.Type()))
	}
	switch n.Op {
	case lexer.PLUS:
		return &values.Float{Value: lf + rf}
	case lexer.MINUS:
		return &values.Float{Value: lf - rf}
	case lexer.STAR:
		return &values.Float{Value: lf * rf}
	case lexer.SLASH:
		if rf == 0 {
			panic(raise(diag.DivisionByZero, n.Span(), "division_by_zero"))
		}
		return &values.Float{Value: lf / rf}
	case lexer.PCT:
		if rf == 0 {
			panic(raise(diag.DivisionByZero, n.Span(), "division_by_zero"))
		}
		return &values.Float{Value: math.Mod(lf, rf)}
	default:
		panic(fmt.Sprintf("eval: unhandled arithmetic operator %s", n.Op))
	}
}

// evalOrdering implements §4.5: numeric mixes compare as float; strings
// compare lexicographically by code point (Go's native string `<` does
// this for valid UTF-8); any other combination is a type_error.
func (e *Evaluator) evalOrdering(n *ast.Binary, left, right values.Value) values.Value {
	lf, lOk := asFloat(left)
	rf, rOk := asFloat(right)
	if lOk && rOk {
		switch n.Op {
		case lexer.LT:
			return values.FromBool(lf < rf)
		case lexer.GT:
			return values.FromBool(lf > rf)
		case lexer.LTE:
			return values.FromBool(lf <= rf)
		case lexer.GTE:
			return values.FromBool(lf >= rf)
		}
	}
	ls, lIsStr := left.(*values.String)
	rs, rIsStr := right.(*values.String)
	if lIsStr && rIsStr {
		switch n.Op {
		case lexer.LT:
			return values.FromBool(ls.Value < rs.Value)
		case lexer.GT:
			return values.FromBool(ls.Value > rs.Value)
		case lexer.LTE:
			return values.FromBool(ls.Value <= rs.Value)
		case lexer.GTE:
			return values.FromBool(ls.Value >= rs.Value)
		}
	}
	panic(raise(diag.TypeError, n.Span(), "cannot order %s and %s", left.Type(), right.Type()))
}

func asFloat(v values.Value) (float64, bool) {
	switch n := v.(type) {
	case *values.Integer:
		return float64(n.Value), true
	case *values.Float:
		return n.Value, true
	default:
		return 0, false
	}
}

// evalCall implements §4.5 `call`: evaluate the callee, then args
// left-to-right (an error in any arg aborts before the call happens),
// then dispatch on the callee's concrete type.
func (e *Evaluator) evalCall(ctx context.Context, n *ast.Call, env *environment.Environment) values.Value {
	callee := e.evalExpr(ctx, n.Callee, env)
	args := make([]values.Value, len(n.Args))
	for i, a := range n.Args {
		args[i] = e.evalExpr(ctx, a, env)
	}
	switch fn := callee.(type) {
	case *function.Function:
		return e.callFunction(ctx, fn, args, n.Span())
	case *host.Action:
		return e.invokeHost(ctx, fn.Verb, n.Span(), args)
	case *function.Native:
		v, err := fn.Fn(args)
		if err != nil {
			panic(raise(diag.TypeError, n.Span(), "%s", err))
		}
		return v
	default:
		panic(raise(diag.TypeError, n.Span(), "%s is not callable", callee.Type()))
	}
}

// callFunction enforces exact arity, counts one call level against
// MaxCallDepth (stack_overflow, not catchable, past it; only the depth is
// tracked, no per-call name or span is recorded), binds parameters
// positionally into a frame parented to the function's closure — not the
// caller's frame, which is what makes lexical (not dynamic) scoping work
// — and unwinds a `return` signal into the function's result; falling off
// the body yields null (§4.5).
func (e *Evaluator) callFunction(ctx context.Context, fn *function.Function, args []values.Value, callSpan lexer.Span) values.Value {
	if len(args) != len(fn.Params) {
		panic(raise(diag.ArityMismatch, callSpan, "%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args)))
	}
	if e.callDepth >= e.Limits.MaxCallDepth {
		panic(raise(diag.StackOverflow, callSpan, "call stack exceeded max depth of %d", e.Limits.MaxCallDepth))
	}
	e.callDepth++
	defer func() { e.callDepth-- }()

	frame := fn.Closure.NewChild()
	for i, param := range fn.Params {
		frame.Define(param, args[i])
	}
	_, sig := e.evalBlock(ctx, fn.Body, frame)
	if sig.kind == signalReturn {
		return sig.value
	}
	return values.NullVal
}
