package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/igoryan-dao/renovabot/internal/adapter"
	"github.com/igoryan-dao/renovabot/internal/adminapi"
	"github.com/igoryan-dao/renovabot/internal/ai"
	"github.com/igoryan-dao/renovabot/internal/cache"
	"github.com/igoryan-dao/renovabot/internal/config"
	"github.com/igoryan-dao/renovabot/internal/db"
	"github.com/igoryan-dao/renovabot/internal/discord"
	"github.com/igoryan-dao/renovabot/internal/fsm"
	"github.com/igoryan-dao/renovabot/internal/rag"
	"github.com/igoryan-dao/renovabot/internal/repo"
	"github.com/igoryan-dao/renovabot/internal/scheduler"
	"github.com/igoryan-dao/renovabot/internal/skills"
	"github.com/igoryan-dao/renovabot/internal/telegram"
	"github.com/igoryan-dao/renovabot/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	gdb, err := db.Open(cfg.DatabaseDSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(gdb, cfg.EmbeddingDimensions); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	r := repo.New(gdb)
	kv := cache.New(gdb)
	states := fsm.NewStore(time.Hour)

	skillDirs := []string{"skills"}
	if cfg.SkillsDir != "" {
		skillDirs = append(skillDirs, cfg.SkillsDir)
	}
	sk := skills.NewManager(skillDirs...)
	if err := sk.Load(); err != nil {
		log.Printf("load skills: %v", err)
	}
	for _, s := range sk.All() {
		log.Printf("skill loaded: %s (%s)", s.Name, s.Description)
	}

	var aiClient *ai.Client
	var ragSvc *rag.Service
	if cfg.AIConfigured() {
		aiClient, err = ai.New(cfg)
		if err != nil {
			log.Fatalf("create AI client: %v", err)
		}
		ragSvc = rag.NewService(r, aiClient, kv, sk)
	} else {
		log.Printf("AI provider not configured: voice, vision and /ask are disabled")
	}

	dispatcher := adapter.NewDispatcher(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := telegram.Deps{
		Repo:     r,
		Cache:    kv,
		RAG:      ragSvc,
		AI:       aiClient,
		States:   states,
		Cfg:      cfg,
		Dispatch: dispatcher,
	}
	sup := telegram.NewSupervisor(deps)
	if err := sup.StartAll(ctx); err != nil {
		log.Fatalf("start telegram bots: %v", err)
	}

	waSvc := whatsapp.NewService(r, ragSvc)
	if cfg.WhatsAppGatewayURL != "" {
		gw := whatsapp.NewGateway(cfg.WhatsAppGatewayURL, waSvc.HandleMessage)
		waSvc.AttachGateway(gw)
		go gw.Run(ctx)
	}
	dispatcher.Register(waSvc)

	if cfg.DiscordToken != "" && cfg.DiscordGuildID != "" {
		mirror, err := discord.NewMirror(cfg.DiscordToken, cfg.DiscordGuildID)
		if err != nil {
			log.Printf("discord mirror: %v", err)
		} else if err := mirror.Start(); err != nil {
			log.Printf("discord mirror: %v", err)
		} else {
			dispatcher.RegisterAnnouncer(mirror)
			defer mirror.Close()
		}
	}

	api := adminapi.New(r, sup, cfg.AdminAPIKey)
	if cfg.WhatsAppAppSecret != "" && cfg.WhatsAppVerifyToken != "" {
		whatsapp.NewWebhook(cfg.WhatsAppAppSecret, cfg.WhatsAppVerifyToken, waSvc.HandleMessage).
			Register(api.App())
	}
	go func() {
		if err := api.Listen(cfg.AdminAPIAddr); err != nil {
			log.Printf("admin api: %v", err)
		}
	}()

	sched := scheduler.New(r, kv, states, dispatcher)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("shutting down")

	cancel()
	if err := api.Shutdown(); err != nil {
		log.Printf("admin api shutdown: %v", err)
	}
	sup.Wait()
}
