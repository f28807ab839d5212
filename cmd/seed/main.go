package main

import (
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/config"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
)

// seed migrates the schema and inserts the default roles and permissions.
// It is the one-shot counterpart of running the app with FORUM_SEED=true.
func main() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger := l.Sugar()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalw("load config", "error", err)
	}
	cfg.Seed = false

	gdb, err := db.NewGormClient(cfg)
	if err != nil {
		logger.Fatalw("open database", "error", err)
	}
	if err := db.Seed(gdb); err != nil {
		logger.Fatalw("seed", "error", err)
	}
	logger.Infow("database seeded", "driver", cfg.DBDriver, "name", cfg.DBName)
}
