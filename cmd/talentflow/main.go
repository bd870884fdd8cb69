package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"talentflow/internal/httpapi"
	"talentflow/pkg/config"
	"talentflow/pkg/db"
	"talentflow/pkg/gen"
	"talentflow/pkg/health"
	"talentflow/pkg/logger"
	"talentflow/pkg/redis"
	"talentflow/pkg/sequence"
	"talentflow/pkg/server"
	"talentflow/pkg/task"
	"talentflow/services/billing"
	"talentflow/services/candidate"
	"talentflow/services/job"
	"talentflow/services/notification"
	"talentflow/services/partner"
	"talentflow/services/placement"
	"talentflow/services/user"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		gen.Module,
		health.Module,
		user.Module,
		notification.Module,
		job.Module,
		candidate.Module,
		placement.Module,
		partner.Module,
		billing.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fx.Invoke(
			migrate,
		),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&user.User{},
		&notification.Notification{},
		&job.Job{},
		&candidate.Candidate{},
		&candidate.CandidateComment{},
		&candidate.CandidateLog{},
		&candidate.StatusReason{},
		&placement.Placement{},
		&billing.BillingPeriod{},
	); err != nil {
		return err
	}
	return candidate.SeedStatusReasons(conn)
}
