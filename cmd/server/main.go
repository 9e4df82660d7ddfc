package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gemduel/gemduel-backend/internal/history"
	"github.com/gemduel/gemduel-backend/internal/httpapi"
	"github.com/gemduel/gemduel-backend/internal/room"
)

func main() {
	_ = godotenv.Load()

	var log *zap.Logger
	var err error
	if os.Getenv("DEV") == "1" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	var hist *history.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		hist, err = history.Open(dsn)
		if err != nil {
			log.Fatal("opening match history store", zap.Error(err))
		}
		log.Info("match history enabled")
	}

	ctx := context.Background()
	reg := room.NewRegistry(ctx, log, hist)

	handler := httpapi.SetupRoutes(reg, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("listening", zap.String("addr", ":"+port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
