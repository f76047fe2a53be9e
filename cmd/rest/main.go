package main

import (
	"context"
	"log"

	"ms-annotation-be/internal/bootstrap"
	"ms-annotation-be/internal/config"
	"ms-annotation-be/internal/model"
	"ms-annotation-be/internal/server"
	"ms-annotation-be/internal/tracer"
	"ms-annotation-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Metadata Database
	gormDB, err := database.NewMetaDB(cfg.MetaDB.Path)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}
	if err := gormDB.AutoMigrate(&model.JobMeta{}); err != nil {
		log.Panicf("Unable to migrate metadata schema: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
