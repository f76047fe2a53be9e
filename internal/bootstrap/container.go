package bootstrap

import (
	"fmt"
	"time"

	"ms-annotation-be/internal/config"
	"ms-annotation-be/internal/controller"
	"ms-annotation-be/internal/pkg/logger"
	"ms-annotation-be/internal/pkg/mailer"
	"ms-annotation-be/internal/repository/implementation"
	"ms-annotation-be/internal/service"
	"ms-annotation-be/pkg/launcher"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	JobController     controller.IJobController
	ResultsController controller.IResultsController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(pubSub, service.JobEventsTopic)

	// 3. Repositories
	jobMetaRepo := implementation.NewJobMetaRepository(db)

	// 4. Infrastructure
	launcherClient := launcher.NewClient(
		cfg.JobFactory.LauncherURL,
		time.Duration(cfg.JobFactory.LauncherTimeout)*time.Second,
	)

	// 5. Services
	jobFactory := service.NewJobFactory(
		cfg.JobFactory,
		jobMetaRepo,
		launcherClient,
		publisherService,
		sysLogger,
	)

	callbackURL := func(jobID uuid.UUID) string {
		return fmt.Sprintf("%s/api/job/v1/%s/state", cfg.App.BaseURL, jobID)
	}

	jobService := service.NewJobService(jobFactory, jobMetaRepo, publisherService, callbackURL, sysLogger)
	resultsService := service.NewResultsService(jobFactory)
	consumerService := service.NewConsumerService(pubSub, service.JobEventsTopic, emailService, sysLogger)

	// 6. Controllers
	jobController := controller.NewJobController(jobService)
	resultsController := controller.NewResultsController(resultsService)

	return &Container{
		JobController:     jobController,
		ResultsController: resultsController,
		ConsumerService:   consumerService,
	}
}
