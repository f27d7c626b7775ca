package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"syscall"
	"time"

	"github.com/Hopesy/Cade/console"
	"github.com/alecthomas/kong"
	isatty "github.com/mattn/go-isatty"
)

type runCmd struct{}

type versionCmd struct{}

var cli struct {
	Version    versionCmd `cmd:"version" help:"Print version information"`
	Prompt     string     `short:"p" help:"Answer a single prompt and exit"`
	Debug      bool       `help:"Enable debug logging"`
	LogStderr  bool       `name:"log-stderr" help:"Mirror logs to stderr (only with --prompt)"`
	CPUProfile string     `help:"Write CPU profile to file"`
	Trace      string     `help:"Write execution trace to file"`
	Run        runCmd     `cmd:"" default:"1" help:"Run the interactive application"`
}

// Update the version as part of the version release process
var version = "0.1.0"

func (v versionCmd) Run() error {
	fmt.Printf("Cade v%s\n", version)
	return nil
}

func (r *runCmd) Run() error {
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println("This program requires a terminal to run.")
		fmt.Println("Use -p to answer a single prompt without one.")
		return nil
	}

	var host *Host
	app := newApp(&host)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	runErr := host.Run(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	return runErr
}

// printObserver prints tool calls as plain lines in non-interactive mode.
type printObserver struct {
	out io.Writer
}

func (p printObserver) ToolStarted(name, args string) {
	slog.Debug("tool.started", "tool", name, "args", args)
}

func (p printObserver) ToolFinished(name, args, output string, elapsed time.Duration, err error) {
	if err != nil {
		output = "Error: " + err.Error()
	}
	fmt.Fprintln(p.out, console.FormatToolCall(name, toolArgsSummary(args), output, elapsed))
}

// runPrompt answers prompt once and writes the reply to out.
func runPrompt(ctx context.Context, config *Config, prompt string, out io.Writer) error {
	llm, err := getModelClient(config)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	root := currentWorkDir()
	agent := NewAgent(llm, config.LLM.MaxTurns, root, availableTools(root))

	reply, err := agent.Ask(ctx, prompt, printObserver{out: out})
	if err != nil {
		return err
	}
	if config.LLM.ShowReasoning && reply.Reasoning != "" {
		fmt.Fprintf(out, "💭 %s\n\n", reply.Reasoning)
	}
	fmt.Fprintln(out, reply.Content)
	return nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("cade"),
		kong.Description("A terminal coding assistant that keeps your scrollback."),
	)

	if cli.CPUProfile != "" {
		f, err := os.Create(cli.CPUProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if cli.Trace != "" {
		f, err := os.Create(cli.Trace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create trace file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := trace.Start(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start trace: %v\n", err)
			os.Exit(1)
		}
		defer trace.Stop()
	}

	if cli.Prompt != "" {
		if _, err := newLogger(cli.Debug, cli.LogStderr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		config, err := LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = runPrompt(sigCtx, config, cli.Prompt, os.Stdout)
		stop()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := ctx.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
