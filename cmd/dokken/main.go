package main

import (
	"errors"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/melih/dokken/internal/cli"
	"github.com/melih/dokken/internal/core/domain"
)

// The entry point for dokken.
//
// A command that fails inside the container exits with that command's exit
// code; any other error exits 1.
func main() {
	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())

		var execErr *domain.ExecFailedError
		if errors.As(err, &execErr) && execErr.ExitCode > 0 && execErr.ExitCode < 256 {
			os.Exit(execErr.ExitCode)
		}
		os.Exit(1)
	}
}
