package main

import (
	"context"
	"load-consolidation-service/internal/api"
	"load-consolidation-service/internal/api/handlers"
	"load-consolidation-service/internal/app"
	"load-consolidation-service/internal/config"
	"load-consolidation-service/internal/platform/logging"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (SQLite, ORS, Postgres) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	logger, err := logging.New(config.GetBool("VERBOSE", false))
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	dataDir := config.Get("DATA_DIR", "data")
	port := config.Get("PORT", "8080")

	a, err := app.Build(context.Background(), app.Options{
		ProfilePath: os.Getenv("PROFILE_PATH"),
		HistoryDB:   config.Get("DB_PATH", filepath.Join(dataDir, "app.db")),
		ORSKey:      os.Getenv("ORS_API_KEY"),
		Depot:       config.Get("DEPOT_ADDRESS", "Jinja Brewery, Jinja"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Pipeline.Estimator == nil {
		logger.Info("ORS_API_KEY not set: routing-service distance estimates disabled")
	}

	h := &handlers.ConsolidationHandler{
		Pipeline: a.Pipeline,
		Runs:     a.Runs,
		Profile:  a.Profile,
		Dirs: handlers.Dirs{
			Input:   config.Get("INPUT_DIR", filepath.Join(dataDir, "input")),
			Uploads: filepath.Join(dataDir, "uploads"),
			Output:  filepath.Join(dataDir, "output"),
		},
		CSVName:  a.Exporter.CSVName,
		XLSXName: a.Exporter.XLSXName,
		Log:      logger,
	}
	router := api.NewRouter(h, logger)

	// Long write timeout: a run with a cold routing cache waits on the external API.
	logger.Info("server listening", zap.String("addr", ":"+port))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      300 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
