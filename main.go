package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/skyquest/api/rest"
	"github.com/kasuganosora/skyquest/api/sse"
	apiws "github.com/kasuganosora/skyquest/api/ws"
	"github.com/kasuganosora/skyquest/audit"
	"github.com/kasuganosora/skyquest/cache"
	"github.com/kasuganosora/skyquest/config"
	dbadapter "github.com/kasuganosora/skyquest/db"
	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/quest"
	"github.com/kasuganosora/skyquest/game/runtime"
	"github.com/kasuganosora/skyquest/logger"
	mw "github.com/kasuganosora/skyquest/middleware"
	"github.com/kasuganosora/skyquest/model"
	"github.com/kasuganosora/skyquest/resource"
	"github.com/kasuganosora/skyquest/scheduler"
	"github.com/kasuganosora/skyquest/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const eventChannel = "skyquest:events"

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	zl, err := logger.New(cfg.Log, cfg.Server.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		zl.Fatal("db open failed", zap.Error(err))
	}
	if err := model.AutoMigrate(db); err != nil {
		zl.Fatal("db migrate failed", zap.Error(err))
	}
	zl.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache / PubSub ----
	c, err := cache.New(cfg.Cache)
	if err != nil {
		zl.Fatal("cache init failed", zap.Error(err))
	}
	ps, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		zl.Fatal("pubsub init failed", zap.Error(err))
	}
	zl.Info("Cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Save storage ----
	var store storage.BlobStore
	switch cfg.Storage.Backend {
	case "cache":
		store = storage.NewCacheStore(c, cfg.Storage.KeyPrefix)
	default:
		store = storage.NewDBStore(db, cfg.Storage.KeyPrefix)
	}

	// ---- Content ----
	content := resource.NewStore(cfg.Content.DataDir)
	if err := content.Load(); err != nil {
		zl.Warn("content load warning", zap.Error(err))
	} else {
		zl.Info("content loaded", zap.String("dir", cfg.Content.DataDir))
	}

	// ---- Runtime ----
	rt := runtime.New(content, store, runtime.Options{
		MainCharacter:   cfg.Game.MainCharacter,
		RecentEventsCap: cfg.Game.RecentEventsCap,
		StateLogCap:     cfg.Game.StateLogCap,
		Tuning: quest.RewardTuning{
			TimeBonusPercent:      cfg.Game.Rewards.TimeBonusPercent,
			PartnerBonusPercent:   cfg.Game.Rewards.PartnerBonusPercent,
			PartnerBonusThreshold: cfg.Game.Rewards.PartnerBonusThreshold,
		},
	}, zl)

	auditSvc := audit.New(db, audit.Options{}, zl)
	auditSvc.Attach(rt.Bus)
	event.NewBridge(ps, eventChannel, zl).Attach(rt.Bus, event.BroadcastEvents...)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rt.Initialize(rootCtx)

	// ---- Scheduler ----
	sched := scheduler.New(zl)
	sched.AddTicker("quest_timer", time.Duration(cfg.Game.TickMs)*time.Millisecond, func(ctx context.Context, dt time.Duration) {
		if n := rt.Tick(ctx, dt); n > 0 {
			zl.Info("quests expired", zap.Int("count", n))
		}
	})
	sched.AddTicker("autosave", time.Duration(cfg.Game.AutosaveS)*time.Second, func(ctx context.Context, _ time.Duration) {
		rt.Save(ctx)
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(zl), mw.Recovery(zl))
	r.Use(mw.RateLimit(rootCtx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := mw.Auth(cfg.Security, c)
	rest.Routes(r.Group("/api"), auth, mw.IPWhitelist(cfg.Security.AdminIPs),
		rest.NewAuthHandler(db, c, cfg.Security, auditSvc, cfg.Game.MainCharacter),
		rest.NewGameHandler(rt))

	// ---- WebSocket ----
	wsRouter := apiws.NewRouter(zl)
	apiws.RegisterGameplay(wsRouter, rt)
	r.GET("/ws", auth, apiws.NewHandler(cfg.Security, wsRouter, zl).ServeWS)

	// ---- SSE ----
	r.GET("/sse", auth, sse.NewHandler(ps, eventChannel, zl).ServeSSE)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		zl.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	rt.Save(shutdownCtx)
	auditSvc.Stop(shutdownCtx)
}
