// Command server boots the dispatcher: it loads configuration, wires
// the Ticket Store Gateway (memory or postgres), the domain services
// C3-C7, the event bus and janitor, and serves the HTTP API of §6.1.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/qoffice/dispatcher/internal/api"
	"github.com/qoffice/dispatcher/internal/cache"
	"github.com/qoffice/dispatcher/internal/clock"
	"github.com/qoffice/dispatcher/internal/config"
	"github.com/qoffice/dispatcher/internal/dispatcher"
	"github.com/qoffice/dispatcher/internal/eventbus"
	"github.com/qoffice/dispatcher/internal/janitor"
	"github.com/qoffice/dispatcher/internal/lookup"
	"github.com/qoffice/dispatcher/internal/models"
	"github.com/qoffice/dispatcher/internal/numbering"
	"github.com/qoffice/dispatcher/internal/routing"
	"github.com/qoffice/dispatcher/internal/shared"
	"github.com/qoffice/dispatcher/internal/store"
	memstore "github.com/qoffice/dispatcher/internal/store/memory"
	pgstore "github.com/qoffice/dispatcher/internal/store/postgres"
	"github.com/qoffice/dispatcher/internal/windows"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs"
	}
	if err := config.Load(configPath); err != nil {
		log.Printf("config: could not load %s: %v, continuing with defaults", configPath, err)
	}
	cfg := config.Get()
	if cfg == nil {
		log.Fatal("config: no configuration available")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger := log.New(os.Stdout, "["+cfg.App.Name+"] ", log.LstdFlags)

	clk, err := clock.New(cfg.App.Timezone)
	if err != nil {
		log.Fatalf("clock: %v", err)
	}

	st, closeStore := buildStore(cfg, logger)
	defer closeStore()

	numbers := numbering.New(numbering.NewStoreCounter(st.Tickets(), clk), clk)
	router := routing.New(st.Windows())
	win := windows.New(st.Windows())
	bus := eventbus.New(logger)
	defer bus.Stop()

	dis := dispatcher.New(st, numbers, router, win, bus, clk, officePolicy{cfg: cfg}, logger)

	jan := janitor.New(st.Tickets(), clk, cfg.Offices.Enabled(), logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := jan.Start(ctx); err != nil {
		log.Fatalf("janitor: %v", err)
	}
	defer jan.Stop()

	var lookupCache *cache.LookupCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(&cache.CacheConfig{
			RedisAddr:     []string{cfg.Cache.Addr},
			RedisPassword: cfg.Cache.Password,
			RedisDB:       cfg.Cache.DB,
			DefaultTTL:    cfg.Cache.TTL,
		})
		if err != nil {
			log.Fatalf("cache: %v", err)
		}
		lookupCache = cache.NewLookupCache(redisCache, cfg.Cache.TTL)
	}
	look := lookup.New(st, jan, lookupCache)

	jwtManager := shared.InitJWTManager(cfg.Auth.JWT.Secret, cfg.Auth.JWT.AccessTokenTTL)

	r := api.NewRouter(dis, look, st, bus, jwtManager, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Println("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

// buildStore selects the store backend from StoreConfig.Driver. The
// returned close func is always safe to call, even for the memory
// backend.
func buildStore(cfg *config.Config, logger *log.Logger) (store.Store, func()) {
	switch cfg.Store.Driver {
	case "postgres":
		s, err := pgstore.Open(cfg.Store.Postgres.DSN())
		if err != nil {
			log.Fatalf("store: %v", err)
		}
		logger.Println("store: connected to postgres")
		return s, func() { _ = s.Close() }
	default:
		logger.Println("store: using in-process memory store")
		return memstore.New(), func() {}
	}
}

// officePolicy adapts OfficesConfig to dispatcher.OfficePolicy without
// the dispatcher package depending on config directly.
type officePolicy struct {
	cfg *config.Config
}

func (p officePolicy) Enabled(office models.Office) bool {
	for _, o := range p.cfg.Offices.Enabled() {
		if o == office {
			return true
		}
	}
	return false
}
