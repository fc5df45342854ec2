package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-backoffice/internal/config"
	"go-backoffice/internal/consumer/oplog"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/mq/kafka"
	"go-backoffice/internal/repository/dao"
	"go-backoffice/internal/repository/database"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// 消费操作日志 topic，写入 operation_logs
func main() {
	_ = godotenv.Load()
	cfgPath, _, err := config.ResolvePath(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()
	if len(cfg.Kafka.Brokers) == 0 {
		l.Fatal("kafka.brokers required for oplog consumer")
	}
	db, err := database.New(database.Config{
		Driver: cfg.Database.Driver, DSN: cfg.Database.DSN,
		MaxOpen: cfg.Database.MaxOpen, MaxIdle: cfg.Database.MaxIdle, LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		l.Fatal("db_open_failed", zap.Error(err))
	}
	h := oplog.NewHandler(dao.NewOperationLogDAO(db), l)
	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.ConsumerGroup,
		Topics:     []string{cfg.Kafka.OpLogTopic},
		MaxRetries: cfg.Kafka.ConsumerRetries,
	}, l)
	defer func() { _ = consumer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	l.Info("oplog_consumer_start", zap.String("topic", cfg.Kafka.OpLogTopic), zap.String("group", cfg.Kafka.ConsumerGroup))
	if err := consumer.Start(ctx, h.Handle); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("oplog_consumer_stopped", zap.Error(err))
	}
}
