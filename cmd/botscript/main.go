// Command botscript is BotScript's CLI entry point. With no subcommand it
// behaves like the teacher's go-mix binary and drops into an interactive
// REPL; otherwise it dispatches one `script <verb>` invocation (§6's CLI
// surface) and exits, the way the teacher's main.go chose between REPL
// mode and file mode on os.Args.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/riftbot/botscript/config"
	"github.com/riftbot/botscript/engine"
	"github.com/riftbot/botscript/host"
	"github.com/riftbot/botscript/logging"
	"github.com/riftbot/botscript/repl"
	"github.com/riftbot/botscript/store"
)

const (
	version = "v0.1.0"
	author  = "riftbot"
	license = "MIT"
	prompt  = "botscript >>> "
	line    = "----------------------------------------------------------------"
	banner  = `
 ____        _   ____            _       _
| __ )  ___ | |_/ ___|  ___ _ __(_)_ __ | |_
|  _ \ / _ \| __\___ \ / __| '__| | '_ \| __|
| |_) | (_) | |_ ___) | (__| |  | | |_) | |_
|____/ \___/ \__|____/ \___|_|  |_| .__/ \__|
                                  |_|
`
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "botscript",
		Short: "BotScript — a small scripting language for driving a Minecraft bot",
		Long: `BotScript compiles and runs the scripting language chat users invoke via
"script eval ..." or "script run <name>": a lexer, recursive-descent parser,
and tree-walking evaluator dispatching to host-defined bot actions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, eng, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			r := repl.New(banner, version, author, line, license, prompt, eng)
			r.Start(os.Stdout)
			return nil
		},
	}
	root.AddCommand(newScriptCmd())
	return root
}

// newScriptCmd groups the one-shot invocations mirroring §6's chat command
// grammar: `script run|eval|save|list|status|stop`.
func newScriptCmd() *cobra.Command {
	script := &cobra.Command{
		Use:   "script",
		Short: "Drive one script <verb> invocation non-interactively",
	}
	script.AddCommand(
		newEvalCmd(),
		newRunCmd(),
		newSaveCmd(),
		newListCmd(),
		newStatusCmd(),
		newStopCmd(),
	)
	return script
}

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <code>",
		Short: "Parse and evaluate literal BotScript source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, eng, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			res, err := eng.ExecuteSource(context.Background(), joinArgs(args))
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Load and evaluate a saved script by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, eng, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			res, err := eng.LoadAndExecute(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}
}

func newSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> <code>",
		Short: "Validate and persist a named script",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, eng, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			if err := eng.Save(context.Background(), args[0], joinArgs(args[1:])); err != nil {
				return err
			}
			fmt.Printf("saved %q\n", args[0])
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved script names",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, eng, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			names, err := eng.ListSaved(context.Background())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a script is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, eng, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			st := eng.Status()
			fmt.Printf("running=%t statements=%d commands=%d elapsed=%s\n",
				st.Running, st.StatementsExecuted, st.CommandsExecuted, st.Elapsed)
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Request cancellation of the running script",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, eng, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck
			eng.Stop()
			fmt.Println("stop requested")
			return nil
		},
	}
}

// bootstrap loads configuration, builds the logger, saved-script store,
// host bridge, and a fresh engine.Engine. Each one-shot `script <verb>`
// invocation is its own process, so ExecutionResult/status/stop only
// carry meaning within one long-lived process — the interactive REPL
// (the default, no-subcommand mode) is where a script can actually still
// be running when `status`/`stop` is dispatched.
func bootstrap() (*config.Config, *zap.SugaredLogger, *engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	log := logging.New("info")
	st, err := newStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	rec := &host.Recorder{}
	bridge := host.NewReferenceBridge(rec, cfg.ActionTimeout)
	eng := engine.New(cfg, st, bridge, log)
	return cfg, log, eng, nil
}

func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreBackend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return store.NewRedisStore(ctx, store.RedisConfig{Addr: cfg.RedisAddr, Prefix: "botscript:script:"})
	}
	return store.NewMemory(), nil
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}

func printResult(res *engine.ExecutionResult) error {
	for _, d := range res.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if !res.Success() {
		return fmt.Errorf("execution failed with %d diagnostic(s)", len(res.Diagnostics))
	}
	fmt.Printf("ok (%d statement(s), %d command(s), %s) => %s\n",
		res.StatementsExecuted, res.CommandsExecuted, res.Elapsed, res.Value.String())
	return nil
}
