package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alkime/saywhat/internal/config"
	"github.com/alkime/saywhat/internal/jobs"
	"github.com/alkime/saywhat/internal/logger"
	"github.com/alkime/saywhat/internal/qa"
	"github.com/alkime/saywhat/internal/server"
	"github.com/alkime/saywhat/internal/translate"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	srvLogger := logger.SetupLogger(cfg)

	srvLogger.Info("Starting SayWhat server",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.Backend,
	)

	var (
		processor translate.Processor = &translate.Simulator{}
		answerer  translate.Answerer  = translate.CannedAnswerer{}
	)

	if cfg.Backend == config.BackendRemote {
		remote, err := translate.NewRemote(translate.RemoteConfig{
			OpenAIKey:    cfg.OpenAIKey,
			AnthropicKey: cfg.AnthropicKey,
			MaxRetries:   2,
		})
		if err != nil {
			srvLogger.Error("Failed to configure remote backend", "error", err)
			log.Fatalf("Fatal: %v", err)
		}

		processor, answerer = remote, remote
	}

	manager := jobs.NewManager(processor)
	defer manager.Close()

	srv := server.New(cfg, srvLogger, server.Deps{
		Jobs:       manager,
		Answerer:   answerer,
		ReplyDelay: qa.DefaultReplyDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, srv); err != nil {
		srvLogger.Error("Server stopped", "error", err)
		stop()
		manager.Close()
		log.Fatalf("Fatal: %v", err)
	}
}
