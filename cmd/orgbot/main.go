package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/usecase"
	"github.com/frc6135/orgbot/internal/conf"
	"github.com/frc6135/orgbot/internal/data"
	"github.com/frc6135/orgbot/internal/infra/feishu"
	"github.com/frc6135/orgbot/internal/server"
	"github.com/frc6135/orgbot/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize clients
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)

	// Initialize repository layer
	repos, err := data.NewRepositories(feishuClient, cfg.DataDir, cfg.OrgAdminIDs)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	fmt.Printf("[Orgbot] Data dir: %s\n", cfg.DataDir)

	// Initialize usecase layer
	ctx := context.Background()
	configUC, err := usecase.NewConfigUsecase(ctx, repos.Config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if len(configUC.Snapshot().CommandPrefixes) == 0 {
		err := configUC.Update(ctx, func(c *domain.BotConfig) error {
			c.CommandPrefixes = cfg.Messages.DefaultPrefixes
			if cfg.Feishu.BotName != "" {
				c.CommandPrefixes = append(c.CommandPrefixes, "@"+cfg.Feishu.BotName+" ")
			}
			return nil
		})
		if err != nil {
			log.Fatalf("Failed to seed command prefixes: %v", err)
		}
	}

	watchUC, err := usecase.NewWatchUsecase(ctx, repos.Watch)
	if err != nil {
		log.Fatalf("Failed to load keyword watches: %v", err)
	}

	moderation := domain.NewModerationTable()
	accessUC := usecase.NewAccessUsecase(repos.Chat, configUC, cfg.MaintainerID)

	// Initialize service layer
	commandSvc := service.NewCommandService(configUC, watchUC, moderation, accessUC, repos.Chat, cfg.Messages, cfg.MaintainerID)
	registry := commandSvc.Registry()

	pipelineUC := usecase.NewPipelineUsecase(configUC, watchUC, accessUC, moderation, registry, repos.Chat)

	// Initialize server
	srv := server.NewBotServer(feishuClient, pipelineUC, registry, repos.Chat, configUC, cfg.Messages)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		repos.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting Orgbot...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
