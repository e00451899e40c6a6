package display

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/client"
	"restaurant-foh/internal/common/config"
)

func Run(ctx context.Context, cfg *config.Config) error {
	api := client.New(cfg.Display.APIBaseURL)
	app := New(api, Options{
		BoardInterval: cfg.Display.BoardInterval,
		TickInterval:  cfg.Display.TickInterval,
		TableFilter:   cfg.Display.TableFilter,
		Out:           os.Stdout,
	})
	log.Info().Str("api", cfg.Display.APIBaseURL).Msg("kitchen-display starting")
	return app.Run(ctx, ReadCommands(os.Stdin))
}
