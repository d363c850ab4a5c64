package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comic-bridge/bot"
	"comic-bridge/config"
	"comic-bridge/database"
	"comic-bridge/preflight"
	"comic-bridge/publisher"
	"comic-bridge/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// 连通性预检：失败只告警，不阻塞启动，discordgo 自带重连。
	if result := preflight.Check(cfg.ProxyURL); !result.Reachable {
		log.Printf("Warning: Discord origin unreachable (%s): %v. Starting anyway.", result.Reason, result.Err)
	} else {
		log.Println("Connectivity preflight passed.")
	}

	db, err := database.InitMappingDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Error initializing mapping database: %v", err)
	}
	defer db.Close()

	b, err := bot.NewBot(cfg)
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	if err := b.Start(); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	pub := publisher.New(b, db, cfg.ForumChannelID, cfg.ReadyTimeout)
	srv := server.New(cfg.APIAddr, pub, b, cfg.PublishTimeout)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	bot.StartScheduler(b, db, cfg.AuditAtStartup)

	log.Println("Bridge is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Println("Shutting down...")
	bot.StopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	b.Stop()
}
