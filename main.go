package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	apirest "github.com/arcadia-games/webrpg/server/api/rest"
	"github.com/arcadia-games/webrpg/server/audit"
	"github.com/arcadia-games/webrpg/server/cache"
	"github.com/arcadia-games/webrpg/server/config"
	dbadapter "github.com/arcadia-games/webrpg/server/db"
	"github.com/arcadia-games/webrpg/server/game/character"
	"github.com/arcadia-games/webrpg/server/game/item"
	mw "github.com/arcadia-games/webrpg/server/middleware"
	"github.com/arcadia-games/webrpg/server/model"
	"github.com/arcadia-games/webrpg/server/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

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
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(nil)

	// ---- Cache ----
	c, err := cache.NewCache(cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Game Services ----
	charSvc := character.NewService(db, cfg.Game, logger)
	equipSvc := item.NewEquipService(db, logger)
	invSvc := item.NewInventoryService(db, logger)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	charH := apirest.NewCharacterHandler(charSvc, equipSvc, auditSvc)
	invH := apirest.NewInventoryHandler(db, invSvc)
	rankH := apirest.NewRankingHandler(db, c, logger)
	adminH := apirest.NewAdminHandler(db, invSvc, auditSvc, logger)

	// Ranking refresh scheduler task.
	sched.AddTicker("ranking_refresh", time.Duration(cfg.Game.RankingRefreshS)*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := rankH.RefreshFromDB(ctx); err != nil {
			logger.Warn("ranking refresh failed", zap.Error(err))
		}
	})

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		charG := api.Group("/character")
		charG.Use(mw.Auth(cfg.Security, c))
		charG.GET("", charH.Get)
		charG.POST("", charH.Create)
		charG.PUT("", charH.Allocate)
		charG.POST("/equip", charH.Equip)
		charG.GET("/status", charH.GetStatus)
		charG.PUT("/status", charH.SetStatus)

		invG := api.Group("/inventory")
		invG.Use(mw.Auth(cfg.Security, c))
		invG.GET("", invH.List)
		invG.DELETE("/:id", invH.Delete)

		rankG := api.Group("/ranking")
		rankG.GET("/exp", rankH.TopExp)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminIPs))
		adminG.Use(mw.Auth(cfg.Security, c), mw.RequireAdmin())
		adminG.GET("/items", adminH.ListItems)
		adminG.POST("/items", adminH.CreateItem)
		adminG.PUT("/items/:id", adminH.UpdateItem)
		adminG.DELETE("/items/:id", adminH.DeleteItem)
		adminG.POST("/items/:id/grant", adminH.GrantItem)
		adminG.GET("/users", adminH.ListUsers)
		adminG.POST("/users/:id/ban", adminH.BanUser)
		adminG.POST("/ranking/refresh", rankH.Refresh)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
