package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qoffice/dispatcher/internal/auth"
	"github.com/qoffice/dispatcher/internal/config"
	"github.com/qoffice/dispatcher/internal/dispatcher"
	"github.com/qoffice/dispatcher/internal/eventbus"
	"github.com/qoffice/dispatcher/internal/lookup"
	"github.com/qoffice/dispatcher/internal/middleware"
	"github.com/qoffice/dispatcher/internal/store"
	"github.com/qoffice/dispatcher/internal/version"
)

// Router owns the gin engine and every handler group of §6.1.
type Router struct {
	engine  *gin.Engine
	public  *PublicHandlers
	admin   *AdminHandlers
	bus     *eventbus.Bus
	authMW  *middleware.AuthMiddleware
}

// NewRouter wires the HTTP surface from its collaborators. cfg is read
// once at startup for CORS/metrics/rate-limit settings; per-request
// office settings are read live via config.Get().
func NewRouter(d *dispatcher.Dispatcher, l *lookup.Service, st store.Store, bus *eventbus.Bus, jwtManager *auth.JWTManager, cfg *config.Config) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), middleware.Metrics())

	if cfg.Server.CORS.Enabled {
		engine.Use(corsMiddleware(cfg.Server.CORS.Origins))
	}

	r := &Router{
		engine: engine,
		public: NewPublicHandlers(d, l, st),
		admin:  NewAdminHandlers(d, l),
		bus:    bus,
		authMW: middleware.NewAuthMiddleware(jwtManager),
	}
	r.setupRoutes(cfg)
	return r
}

// Engine returns the underlying gin engine for http.Server wiring.
func (r *Router) Engine() *gin.Engine { return r.engine }

func (r *Router) setupRoutes(cfg *config.Config) {
	publicLimiter := middleware.RateLimit(middleware.NewBucketLimiter(cfg.RateLimit.Public.RequestsPerMinute))
	authLimiter := middleware.RateLimit(middleware.NewBucketLimiter(cfg.RateLimit.Auth.RequestsPerMinute))

	r.engine.GET("/healthz", r.healthz)
	if cfg.Metrics.Enabled {
		r.engine.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	public := r.engine.Group("")
	public.Use(publicLimiter)
	{
		public.POST("/queue", r.public.Admit)
		public.GET("/queue/:office", r.public.QueueSnapshot)
		public.GET("/queue/lookup/:ticketId", r.public.TicketLookup)
		public.POST("/queue/:ticketId/rating", r.public.SubmitRating)
		public.GET("/services/:office", r.public.Services)
		public.GET("/windows/:office", r.public.Windows)
		public.GET("/office-status/:office", r.public.OfficeStatus)
		public.GET("/location/:office", r.public.Location)
	}

	admin := r.engine.Group("")
	admin.Use(authLimiter, r.authMW.RequireAuth())
	{
		admin.GET("/admin/queue/:office", middleware.RequireOffice(), r.admin.AdminSnapshot)
		admin.POST("/queue/next", r.authMW.RequirePermission(auth.PermissionDispatch), r.admin.Next)
		admin.POST("/queue/recall", r.authMW.RequirePermission(auth.PermissionDispatch), r.admin.Recall)
		admin.POST("/queue/previous", r.authMW.RequirePermission(auth.PermissionDispatch), r.admin.Previous)
		admin.POST("/queue/skip", r.authMW.RequirePermission(auth.PermissionDispatch), r.admin.Skip)
		admin.POST("/queue/transfer", r.authMW.RequirePermission(auth.PermissionDispatch), r.admin.Transfer)
		admin.POST("/queue/stop", r.authMW.RequirePermission(auth.PermissionWindowControl), r.admin.PauseResume)
		admin.POST("/queue/requeue-all", r.authMW.RequirePermission(auth.PermissionRequeue), r.admin.RequeueAll)
		admin.POST("/queue/requeue-selected", r.authMW.RequirePermission(auth.PermissionRequeue), r.admin.RequeueSelected)
	}

	// Realtime event channel (§6.2): kiosk connections are anonymous,
	// admin connections carry their principal id for force-logout.
	r.engine.GET("/ws", func(c *gin.Context) {
		userID := ""
		if p, ok := r.authMW.OptionalPrincipal(c); ok {
			userID = p.ID
		}
		r.bus.ServeWebSocket(c.Writer, c.Request, userID)
	})
}

func (r *Router) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.GetInfo()})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
