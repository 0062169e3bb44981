package cli

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/dokken/internal/adapters/http"
)

// Represents the 'dokken serve' command.
type ServeCmd struct {
	Listen string `short:"l" help:"Address to listen on. Overrides the config." placeholder:"ADDR"`
}

// Serves the HTTP API until the context is cancelled.
func (c *ServeCmd) Run(ctx context.Context) error {
	env, err := newEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.close()

	listen := env.cfg.Listen
	if c.Listen != "" {
		listen = c.Listen
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	http.NewTransportHandler(env.manager, env.states).Register(app)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			slog.Warn("failed to shut down server", "error", err)
		}
	}()

	slog.Info("server starting", "listen", listen)
	return app.Listen(listen)
}
