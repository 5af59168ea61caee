package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/eaglebank/digibank/api-gateway/internal/proxy"
	"github.com/eaglebank/digibank/api-gateway/internal/route"
	"github.com/eaglebank/digibank/shared/config"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/middleware"
	"github.com/eaglebank/digibank/shared/registry"
	"github.com/eaglebank/digibank/shared/server"
	"github.com/eaglebank/digibank/shared/tracing"
)

const serviceName = "api-gateway"

type Config struct {
	Server   config.ServerConfig   `mapstructure:"server"`
	Log      config.LogConfig      `mapstructure:"log"`
	Tracing  config.TracingConfig  `mapstructure:"tracing"`
	Registry config.RegistryConfig `mapstructure:"registry"`
	Routes   struct {
		File string `mapstructure:"file"`
	} `mapstructure:"routes"`
	Proxy struct {
		Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	} `mapstructure:"proxy"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
}

func defaults() map[string]any {
	d := config.CommonDefaults(8072)
	for k, v := range registry.Defaults() {
		d[k] = v
	}
	d["routes.file"] = ""
	d["proxy.timeout"] = "30s"
	d["cors.allow_origins"] = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	return d
}

func main() {
	var cfg Config
	if err := config.Load(serviceName, defaults(), &cfg); err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(ctx, log, serviceName, cfg.Tracing)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	rules := route.DefaultRules()
	if cfg.Routes.File != "" {
		if rules, err = route.LoadFile(cfg.Routes.File); err != nil {
			log.Fatal("failed to load routes", "error", err)
		}
	}
	table, err := route.NewTable(rules)
	if err != nil {
		log.Fatal("invalid route table", "error", err)
	}
	for _, r := range table.Rules() {
		log.Info("route registered", "id", r.ID, "path", r.Path, "rewrite", r.Rewrite, "target", r.Target)
	}

	resolver, err := registry.FromConfig(ctx, cfg.Registry, log)
	if err != nil {
		log.Fatal("failed to build service registry", "error", err)
	}

	proxy.InitMetrics()
	dispatcher := proxy.NewDispatcher(table, resolver, proxy.NewHTTPClient(cfg.Proxy.Timeout), log)

	if cfg.Log.Mode == "prod" || cfg.Log.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", tracing.CorrelationHeader},
		ExposeHeaders:    []string{tracing.CorrelationHeader, "X-Response-Time"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.CorrelationMiddleware())
	router.Use(middleware.LoggingMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.NoRoute(dispatcher.Handle)

	if err := server.Run(ctx, log, cfg.Server.Port, router); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("api gateway stopped")
}
