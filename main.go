package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/events"
	"food-marketplace-api/handlers"
	"food-marketplace-api/logger"
	"food-marketplace-api/metrics"
	"food-marketplace-api/middleware"
	"food-marketplace-api/realtime"
	"food-marketplace-api/routes"
	"food-marketplace-api/services"
	"food-marketplace-api/statemachine"
	"food-marketplace-api/store"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	gin.SetMode(cfg.GinMode)

	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.GinMode == gin.ReleaseMode)
	defer log.Sync()
	log.Info("starting", logger.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.OpenDB(cfg, log)
	if err != nil {
		log.Error("open database", logger.Error(err))
		os.Exit(1)
	}
	stg := store.New(db)

	policy, err := statemachine.ParsePolicy(cfg.TransitionPolicy)
	if err != nil {
		log.Error("transition policy", logger.Error(err))
		os.Exit(1)
	}

	hub := realtime.NewHub(cfg.WSBuffer)
	var bus realtime.Bus = hub
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		rbus := realtime.NewRedisBus(rdb, hub, log)
		go rbus.Supervise(ctx, time.Second, 30*time.Second)
		bus = rbus
		log.Info("realtime fan-out through redis", logger.String("addr", cfg.RedisAddr))
	}

	sink := openSinks(cfg, log)
	defer sink.Close()

	svc := services.New(stg, bus, sink, services.Options{
		Machine:           statemachine.New(policy),
		DriverExclusive:   cfg.DriverExclusive,
		RequireRestaurant: cfg.RequireRestaurant,
	}, log)

	if cfg.AdminEmail != "" {
		if _, err := svc.User().EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Error("seed admin", logger.Error(err), logger.String("email", cfg.AdminEmail))
			os.Exit(1)
		}
	}

	auth := middleware.NewAuth(cfg.JWTSecret)
	h := handlers.New(svc, auth, realtime.NewWSServer(bus, log), stg, log)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(), metrics.Middleware())
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Food Marketplace Order Lifecycle API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "restaurant", "driver", "admin"},
		})
	})
	routes.SetupRoutes(r, h, auth)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		log.Info("server running", logger.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", logger.Error(err))
	}
}

// openSinks connects every configured lifecycle sink. A broker that cannot be
// reached is logged and left out.
func openSinks(cfg config.Config, log logger.ILogger) events.Sink {
	var sinks events.Multi
	if len(cfg.KafkaBrokers) > 0 {
		k, err := events.DialKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Warning("kafka sink disabled", logger.Error(err))
		} else {
			sinks = append(sinks, k)
		}
	}
	if cfg.AMQPURL != "" {
		a, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Warning("amqp sink disabled", logger.Error(err))
		} else {
			sinks = append(sinks, a)
		}
	}
	if len(sinks) == 0 {
		return events.Nop{}
	}
	return sinks
}
