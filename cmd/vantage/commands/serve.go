package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/vantagehq/vantage/internal/app"
)

// serveCommand runs the HTTP server until interrupted.
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "start the server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			instance, err := app.New(app.Options{
				ConfigPath: cmd.String("config"),
				BuildInfo:  fmt.Sprintf("%s (%s)", a.Commit, a.Date),
				Version:    a.Version,
			})
			if err != nil {
				return err
			}

			if err := instance.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}

			serveErr := make(chan error, 1)
			go func() {
				serveErr <- instance.Start()
			}()

			select {
			case err := <-serveErr:
				_ = instance.Shutdown(context.Background())
				return err
			case <-ctx.Done():
				log.Info("shutdown signal received")
				return instance.Shutdown(context.Background())
			}
		},
	}
}
