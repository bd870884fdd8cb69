package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"talentflow/pkg/config"
	"talentflow/pkg/db"
	"talentflow/pkg/gen"
	"talentflow/pkg/logger"
	"talentflow/pkg/redis"
	"talentflow/pkg/task"
	"talentflow/services/notification"
	"talentflow/services/partner"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		gen.Module,
		notification.Worker,
		partner.Worker,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
