package main

import (
	"flag"
	"log"

	"ms-annotation-be/internal/config"
	"ms-annotation-be/internal/model"
	"ms-annotation-be/internal/resultdb"
	"ms-annotation-be/pkg/database"
)

// Applies the metadata schema, and optionally the result store schema to an
// existing store file given with -store.
func main() {
	storePath := flag.String("store", "", "path to a result store file to migrate")
	flag.Parse()

	cfg := config.Load()

	metaDB, err := database.NewMetaDB(cfg.MetaDB.Path)
	if err != nil {
		log.Fatalf("Unable to open metadata DB: %v", err)
	}
	defer database.Close(metaDB)

	if err := metaDB.AutoMigrate(&model.JobMeta{}); err != nil {
		log.Fatalf("Metadata migration failed: %v", err)
	}
	log.Printf("✅ Metadata schema migrated (%s)", cfg.MetaDB.Path)

	if *storePath != "" {
		store, err := database.OpenResultStore(*storePath)
		if err != nil {
			log.Fatalf("Unable to open result store: %v", err)
		}
		defer database.Close(store)

		if err := resultdb.Migrate(store); err != nil {
			log.Fatalf("Result store migration failed: %v", err)
		}
		log.Printf("✅ Result store schema migrated (%s)", *storePath)
	}
}
