package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"nagadaibot/internal/biz/usecase"
	"nagadaibot/internal/conf"
	"nagadaibot/internal/data"
	"nagadaibot/internal/infra/feishu"
	"nagadaibot/internal/server"
	"nagadaibot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)

	repos, err := data.NewRepositories(feishuClient, cfg.Store.DBPath)
	if err != nil {
		logger.Fatal("failed to create repositories", zap.Error(err))
	}
	defer repos.Close()

	engine := service.NewDeliveryEngine(
		repos.Reminder,
		service.NewReminderDeliverer(repos.Message),
		cfg.Delivery,
		logger,
	)

	reminderUC := usecase.NewReminderUsecase(repos.Reminder, engine)

	convSvc := service.NewConversationService(
		reminderUC,
		cfg.Location(),
		cfg.Session.IdleTimeout(),
		logger,
	)

	srv := server.NewFeishuServer(feishuClient, repos.Message, convSvc, engine, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		srv.Stop()
		os.Exit(0)
	}()

	logger.Info("starting nagadaibot", zap.String("timezone", cfg.Timezone))
	if err := srv.Start(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
