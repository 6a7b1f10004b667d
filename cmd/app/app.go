package main

import (
	"fmt"
	"os"

	"github.com/DRSN-tech/finsmart-search/internal/app"
	config "github.com/DRSN-tech/finsmart-search/internal/cfg"
	"github.com/DRSN-tech/finsmart-search/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	// .env необязателен, в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	log, err := logger.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		_ = log.Sync()
		os.Exit(1)
	}
}
