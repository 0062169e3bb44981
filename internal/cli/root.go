package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/melih/dokken/internal"
)

// Represents the root command.
var RootCmd struct {
	Quiet    bool        `short:"q" help:"Suppress informational output."`
	Verbose  bool        `short:"v" help:"Include source locations in log output."`
	Debug    bool        `short:"d" help:"Enable debug output."`
	Config   string      `short:"c" help:"Path to a YAML config file." placeholder:"PATH" type:"path"`
	Exec     ExecCmd     `cmd:"" help:"Run a command in an instance and commit the result."`
	Upload   UploadCmd   `cmd:"" help:"Copy local files into an instance."`
	Login    LoginCmd    `cmd:"" help:"Open an interactive shell in an instance."`
	Register RegisterCmd `cmd:"" help:"Record the state of a running container."`
	Pubkey   PubkeyCmd   `cmd:"" help:"Print the public key images must authorize."`
	Serve    ServeCmd    `cmd:"" help:"Serve the transport over HTTP."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Runs commands in and syncs files into test containers.\n\nEvery successful command is committed to the instance's work image."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	level := slog.LevelInfo
	if RootCmd.Debug {
		level = slog.LevelDebug
	} else if RootCmd.Quiet {
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: RootCmd.Verbose,
	})
	slog.SetDefault(slog.New(handler))
}
