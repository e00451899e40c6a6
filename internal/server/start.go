// Package server wires the order API: Postgres with migrations, the ticket
// exchange topology and the HTTP router.
package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/common/config"
	"restaurant-foh/internal/common/db"
	"restaurant-foh/internal/common/httpx"
	"restaurant-foh/internal/common/mq"
	"restaurant-foh/internal/server/handler"
	"restaurant-foh/internal/server/repository"
	"restaurant-foh/internal/server/service"
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

	svc := service.NewOrderService(
		repository.NewOrdersRepository(conn.Pool),
		repository.NewPrintRepository(conn.Pool),
		broker,
	)

	srv := httpx.New(fmt.Sprintf(":%d", cfg.HTTPPort), handler.Router(handler.New(svc)))
	log.Info().Int("port", cfg.HTTPPort).Msg("api-server listening")
	return srv.Run(ctx)
}
