// Package repl implements an interactive console that stands in for a
// chat session driving the `script <run|eval|save|list|status|stop|help>`
// surface (§6) against one shared engine.Engine. Modeled on the teacher's
// repl.Repl (banner/prompt/readline/colorized output, one line in, one
// result out) but BotScript's REPL dispatches chat-shaped commands
// instead of evaluating every line as an expression, and runs each
// `eval`/`run` in its own goroutine so `status`/`stop` typed on a later
// line can observe and cancel a script that is still running — the same
// concurrency the spec's host integration relies on (§5).
package repl

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/riftbot/botscript/engine"
)

var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

// Repl is one interactive session bound to a single engine.Engine, the
// way a bot process binds one Engine per connected bot.
type Repl struct {
	Banner  string
	Version string
	Author  string
	Line    string
	License string
	Prompt  string

	Engine *engine.Engine

	mu sync.Mutex // guards writer access across the background eval goroutine
}

// New creates a Repl bound to eng.
func New(banner, version, author, line, license, prompt string, eng *engine.Engine) *Repl {
	return &Repl{Banner: banner, Version: version, Author: author, Line: line, License: license, Prompt: prompt, Engine: eng}
}

// PrintBannerInfo writes the startup banner and usage hints.
func (r *Repl) PrintBannerInfo(writer io.Writer) {
	blueColor.Fprintf(writer, "%s\n", r.Line)
	greenColor.Fprintf(writer, "%s\n", r.Banner)
	blueColor.Fprintf(writer, "%s\n", r.Line)
	yellowColor.Fprintln(writer, "Version: "+r.Version+" | Author: "+r.Author+" | License: "+r.License)
	blueColor.Fprintf(writer, "%s\n", r.Line)
	cyanColor.Fprintf(writer, "%s\n", "Welcome to BotScript!")
	cyanColor.Fprintf(writer, "%s\n", `Type "script help" for the command surface, or ".exit" to quit`)
	blueColor.Fprintf(writer, "%s\n", r.Line)
}

// Start runs the read-dispatch-print loop until EOF, Ctrl+D, or ".exit".
func (r *Repl) Start(writer io.Writer) {
	r.PrintBannerInfo(writer)

	rl, err := readline.New(r.Prompt)
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			writer.Write([]byte("Good bye!\n"))
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".exit" {
			writer.Write([]byte("Good bye!\n"))
			return
		}
		rl.SaveHistory(line)
		r.dispatch(writer, line)
	}
}

// dispatch parses one line as a `script <verb> ...` command (§6 CLI
// surface) and routes it to the bound Engine. `eval`/`run` are launched
// in a goroutine so the prompt returns immediately and a later `status`
// or `stop` line can reach the engine while the script is still going.
func (r *Repl) dispatch(writer io.Writer, line string) {
	fields := strings.Fields(line)
	if len(fields) > 0 && strings.EqualFold(fields[0], "script") {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		r.printHelp(writer)
		return
	}

	verb := strings.ToLower(fields[0])

	switch verb {
	case "help":
		r.printHelp(writer)
	case "eval":
		code := argAfter(line, "eval")
		r.runAsync(writer, func(ctx context.Context) (*engine.ExecutionResult, error) {
			return r.Engine.ExecuteSource(ctx, code)
		})
	case "run":
		if len(fields) < 2 {
			redColor.Fprintf(writer, "usage: script run <name>\n")
			return
		}
		name := fields[1]
		r.runAsync(writer, func(ctx context.Context) (*engine.ExecutionResult, error) {
			return r.Engine.LoadAndExecute(ctx, name)
		})
	case "save":
		if len(fields) < 2 {
			redColor.Fprintf(writer, "usage: script save <name> <code>\n")
			return
		}
		name := fields[1]
		source := argAfter(line, "save", name)
		if err := r.Engine.Save(context.Background(), name, source); err != nil {
			redColor.Fprintf(writer, "save failed: %v\n", err)
			return
		}
		greenColor.Fprintf(writer, "saved %q\n", name)
	case "list":
		names, err := r.Engine.ListSaved(context.Background())
		if err != nil {
			redColor.Fprintf(writer, "list failed: %v\n", err)
			return
		}
		if len(names) == 0 {
			cyanColor.Fprintf(writer, "(no saved scripts)\n")
			return
		}
		for _, n := range names {
			yellowColor.Fprintf(writer, "%s\n", n)
		}
	case "status":
		st := r.Engine.Status()
		cyanColor.Fprintf(writer, "running=%t statements=%d commands=%d elapsed=%s\n",
			st.Running, st.StatementsExecuted, st.CommandsExecuted, st.Elapsed)
	case "stop":
		r.Engine.Stop()
		cyanColor.Fprintf(writer, "stop requested\n")
	default:
		redColor.Fprintf(writer, "unknown command %q\n", verb)
		r.printHelp(writer)
	}
}

func (r *Repl) runAsync(writer io.Writer, call func(ctx context.Context) (*engine.ExecutionResult, error)) {
	go func() {
		res, err := call(context.Background())
		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			redColor.Fprintf(writer, "error: %v\n", err)
			return
		}
		r.printResult(writer, res)
	}()
}

func (r *Repl) printResult(writer io.Writer, res *engine.ExecutionResult) {
	for _, d := range res.Diagnostics {
		redColor.Fprintf(writer, "%s\n", d.String())
	}
	if res.Success() {
		greenColor.Fprintf(writer, "ok (%d statement(s), %d command(s), %s) => %s\n",
			res.StatementsExecuted, res.CommandsExecuted, res.Elapsed, res.Value.String())
	}
}

func (r *Repl) printHelp(writer io.Writer) {
	cyanColor.Fprintln(writer, "script run <name>             execute a saved script")
	cyanColor.Fprintln(writer, "script eval <code>             execute literal source")
	cyanColor.Fprintln(writer, "script save <name> <code>      save source under name")
	cyanColor.Fprintln(writer, "script list                    list saved script names")
	cyanColor.Fprintln(writer, "script status                  report the running execution")
	cyanColor.Fprintln(writer, "script stop                    cancel the running execution")
	cyanColor.Fprintln(writer, ".exit                          quit")
}

// argAfter returns the remainder of line after skipping the "script"
// prefix (if present) and each of skip, sliced from the original line —
// used to recover the original code text for eval/save without collapsing
// internal whitespace the user typed inside a string literal.
func argAfter(line string, skip ...string) string {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "script ") {
		trimmed = strings.TrimSpace(trimmed[len("script "):])
		lower = strings.ToLower(trimmed)
	}
	for _, s := range skip {
		prefix := strings.ToLower(s) + " "
		if strings.HasPrefix(lower, prefix) {
			trimmed = strings.TrimSpace(trimmed[len(prefix):])
			lower = strings.ToLower(trimmed)
			continue
		}
		if lower == strings.ToLower(s) {
			trimmed = ""
			lower = ""
		}
	}
	return trimmed
}
