package spooler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/common/config"
	"restaurant-foh/internal/common/db"
	"restaurant-foh/internal/common/mq"
	"restaurant-foh/internal/server/repository"
)

func Run(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer conn.Close()

	broker, err := mq.Dial(cfg.Rabbit)
	if err != nil {
		return err
	}
	defer broker.Close()
	if err := broker.DeclareTicketTopology(); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}

	deliveries, err := broker.Consume(mq.TicketQueue, "print-spooler", cfg.Spooler.Prefetch)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	printer := &FilePrinter{Dir: cfg.Spooler.SpoolDir, Delay: cfg.Spooler.PrintDelay}
	log.Info().Str("spool_dir", cfg.Spooler.SpoolDir).Int("prefetch", cfg.Spooler.Prefetch).Msg("print-spooler consuming")
	return New(repository.NewPrintRepository(conn.Pool), printer).Run(ctx, deliveries)
}
