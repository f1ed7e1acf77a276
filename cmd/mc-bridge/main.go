package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/adapter"
	"github.com/kapu/mc-bridge-go/internal/binding"
	"github.com/kapu/mc-bridge-go/internal/botfilter"
	"github.com/kapu/mc-bridge-go/internal/broadcast"
	"github.com/kapu/mc-bridge-go/internal/chatgw"
	"github.com/kapu/mc-bridge-go/internal/chatops"
	appcfg "github.com/kapu/mc-bridge-go/internal/config"
	"github.com/kapu/mc-bridge-go/internal/dispatch"
	"github.com/kapu/mc-bridge-go/internal/landmark"
	"github.com/kapu/mc-bridge-go/internal/msgcat"
	"github.com/kapu/mc-bridge-go/internal/obslog"
	"github.com/kapu/mc-bridge-go/internal/opsapi"
	"github.com/kapu/mc-bridge-go/internal/rconsole"
	"github.com/kapu/mc-bridge-go/internal/router"
	"github.com/kapu/mc-bridge-go/internal/wiki"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L().Named("main")

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cat, err := msgcat.New(os.Getenv("MESSAGES_DIR"))
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	bindings := binding.Open(cfg.DataDir)
	filter := botfilter.New(cfg.FilterBots, cfg.BotPrefix, cfg.BotSuffix)

	var landmarks landmark.Store
	if cfg.RedisURL != "" {
		ropts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url error: %v", err)
		}
		landmarks = landmark.NewRedisStore(redis.NewClient(ropts))
		logger.Info("landmark store: redis")
	} else {
		landmarks = landmark.NewFileStore(cfg.DataDir)
		logger.Info("landmark store: file", zap.String("dir", cfg.DataDir))
	}

	var wikiOpts []wiki.Option
	if site := os.Getenv("WIKI_SITE"); site != "" {
		wikiOpts = append(wikiOpts, wiki.WithSite(site))
	}
	wikiClient := wiki.NewClient(wikiOpts...)

	pipeline := dispatch.NewPipeline(cfg.WakePrefixes)
	pipeline.Register(dispatch.NewWikiHandler(wikiClient))
	pipeline.Register(dispatch.NewChatForwardHandler(cfg.ChatMessagePrefix, filter))
	pipeline.Register(dispatch.NewLandmarkHandler(landmarks))
	pipeline.Register(dispatch.NewHelpHandler(pipeline))
	pipeline.Register(dispatch.NewBotCommandHandler(func(cmd dispatch.BotCommand) {
		// Integration point for an attached chat assistant. Without one the
		// command is acknowledged in the log only.
		logger.Info("unclaimed command",
			zap.String("id", cmd.ID),
			zap.String("player", cmd.Player.Name()),
			zap.String("text", cmd.Text))
	}))

	var groups adapter.GroupSender
	if cfg.ChatAPIURL != "" {
		groups = chatgw.New(cfg.ChatAPIURL, cfg.ChatAPIToken)
	} else {
		logger.Warn("CHAT_API_URL not set, group messages will be logged only")
		groups = logGroupSender{logger: obslog.L().Named("chatgw")}
	}

	reg := router.NewRegistry()
	rt := router.New(reg)

	adapters := make([]*adapter.Adapter, 0, len(cfg.Adapters))
	for _, ac := range cfg.Adapters {
		a := adapter.New(ac, cfg, adapter.Deps{
			Bindings: bindings,
			Filter:   filter,
			Pipeline: pipeline,
			Router:   rt,
			Groups:   groups,
			Catalog:  cat,
		})
		if err := reg.Register(a); err != nil {
			log.Fatalf("adapter %s: %v", ac.AdapterID, err)
		}
		adapters = append(adapters, a)
	}

	store := broadcast.OpenConfig(cfg.DataDir)
	sender := broadcast.NewSender(broadcast.DefaultPace)
	targets := func() []broadcast.Conn {
		peers := reg.All()
		out := make([]broadcast.Conn, 0, len(peers))
		for _, p := range peers {
			if c, ok := p.(broadcast.Conn); ok {
				out = append(out, c)
			}
		}
		return out
	}
	sched := broadcast.NewScheduler(store, sender, wikiClient, targets)

	var rcon *rconsole.Manager
	if cfg.RconEnabled {
		rcon = rconsole.New(cfg.RconHost, cfg.RconPort, cfg.RconPassword)
	}

	opsTargets := func() []chatops.Target {
		peers := reg.All()
		out := make([]chatops.Target, 0, len(peers))
		for _, p := range peers {
			if t, ok := p.(chatops.Target); ok {
				out = append(out, t)
			}
		}
		return out
	}
	ops := chatops.NewService(
		func(id string) (chatops.Target, bool) {
			p, ok := reg.Get(id)
			if !ok {
				return nil, false
			}
			t, ok := p.(chatops.Target)
			return t, ok
		},
		opsTargets,
		rt,
		bindings, store, sender, sched, rcon, cat,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, a := range adapters {
		wg.Add(1)
		go func(a *adapter.Adapter) {
			defer wg.Done()
			a.Run(ctx)
		}(a)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	var api *opsapi.Server
	if cfg.OpsListenAddr != "" {
		api = opsapi.NewServer(ops, opsTargets, bindings, cfg.AdminUsers)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := api.ListenAndServe(cfg.OpsListenAddr); err != nil {
				logger.Error("operator api stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("OPS_LISTEN_ADDR not set, operator api disabled")
	}

	logger.Info("bridge started", zap.Int("adapters", len(adapters)))
	<-ctx.Done()
	logger.Info("shutting down")

	if api != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = api.Shutdown(shutdownCtx)
		cancel()
	}
	for _, a := range adapters {
		a.Close()
	}
	if rcon != nil {
		_ = rcon.Close()
	}
	wg.Wait()
	logger.Info("bridge stopped")
}

// logGroupSender stands in for the chat platform when no API URL is
// configured, so a bare deployment still shows traffic.
type logGroupSender struct{ logger *zap.Logger }

func (l logGroupSender) SendToGroups(groupIDs []string, text string) {
	l.logger.Info("group message", zap.Strings("groups", groupIDs), zap.String("text", text))
}
