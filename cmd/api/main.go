package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-backoffice/internal/boot"
	"go-backoffice/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	// .env 可选，用于本地覆盖 BACKOFFICE_* 变量
	_ = godotenv.Load()
	cfgPath, fellBack, err := config.ResolvePath(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	if fellBack {
		log.Printf("config not found, using %s", cfgPath)
	}

	app, err := boot.InitApp(cfgPath)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}
