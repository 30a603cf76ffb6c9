package main

import (
	"context"
	"flag"
	"load-consolidation-service/internal/adapters/export"
	"load-consolidation-service/internal/adapters/repositories"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/platform/db"
	"load-consolidation-service/internal/platform/logging"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// dbtool prepares the Postgres reporting warehouse and optionally imports a
// consolidated CSV into it.
func main() {
	importPath := flag.String("import", "", "consolidated CSV to load into the warehouse")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger, err := logging.New(config.GetBool("VERBOSE", false))
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := db.Open(ctx, databaseURL)
	if err != nil {
		logger.Fatal("open warehouse", zap.Error(err))
	}
	defer db.Close()

	store := repositories.NewPostgresLoadStore(db, logger)

	logger.Info("initializing database schema")
	if err := store.InitSchema(ctx); err != nil {
		logger.Fatal("schema initialization failed", zap.Error(err))
	}
	logger.Info("schema ready")

	if *importPath == "" {
		return
	}

	loads, err := export.ReadCSV(*importPath)
	if err != nil {
		logger.Fatal("read import", zap.Error(err))
	}

	runID := "import-" + uuid.NewString()
	if err := store.SaveLoads(ctx, runID, loads); err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	logger.Info("import complete", zap.String("run_id", runID), zap.Int("loads", len(loads)))
}
