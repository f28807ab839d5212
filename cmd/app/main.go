package main

import (
	"go.uber.org/fx"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/config"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/logger"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/transport"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			db.NewGormClient,
		),
		logger.Module,
		service.Module,
		transport.Module,
	).Run()
}
