// Package httpapi wires the HTTP transport (Gin) to the bridge's services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, compression, and idempotency.
package httpapi

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-superchat-bridge/docs"
	"github.com/tbourn/go-superchat-bridge/internal/config"
	"github.com/tbourn/go-superchat-bridge/internal/domain"
	"github.com/tbourn/go-superchat-bridge/internal/events"
	"github.com/tbourn/go-superchat-bridge/internal/http/handlers"
	"github.com/tbourn/go-superchat-bridge/internal/http/middleware"
	"github.com/tbourn/go-superchat-bridge/internal/repo"
	"github.com/tbourn/go-superchat-bridge/internal/services"
)

// linkRepoShim adapts the repository free functions to services.LinkRepo.
type linkRepoShim struct{}

func (linkRepoShim) CreateShortLink(ctx context.Context, db *gorm.DB, link *domain.ShortLink) error {
	return repo.CreateShortLink(ctx, db, link)
}

func (linkRepoShim) GetShortLink(ctx context.Context, db *gorm.DB, code string) (*domain.ShortLink, error) {
	return repo.GetShortLink(ctx, db, code)
}

func (linkRepoShim) CountShortLinks(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountShortLinks(ctx, db)
}

// EventHub is the broadcaster as seen by the router.
type EventHub interface {
	Subscribe() *events.Subscription
	Len() int
}

// LedgerProbe reports ledger health.
type LedgerProbe interface {
	Len() int
	Pending() int
}

// Deps are the long-lived components the server owns and shuts down.
type Deps struct {
	DB       *gorm.DB
	Bridge   handlers.BridgeService
	Monitors handlers.MonitorService
	Events   EventHub
	Ledger   LedgerProbe
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	// "ok", or "degraded" while posted superchats await their ledger write
	Status        string `json:"status" example:"ok"`
	LedgerRecords int    `json:"ledgerRecords" example:"12"`
	LedgerPending int    `json:"ledgerPending" example:"0"`
	Subscribers   int    `json:"subscribers" example:"3"`
	Monitors      int    `json:"monitors" example:"1"`
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with address scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator
//  8. CORS, security headers, gzip
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	base := cfg.APIBasePath
	eventsPath := path.Join("/", base, "/events")

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Api-Key"},
		SkipPaths:   []string{"/metrics", "/health"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics(eventsPath))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			if deps.DB == nil {
				return false, nil
			}
			rec, err := repo.GetIdempotency(ctx, deps.DB, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	corsHeaders := []string{"Origin", "Content-Type", "Accept", "Last-Event-ID", "If-None-Match", middleware.HeaderIdempotencyKey}
	exposed := []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Answer ACAO: * even without an Origin header so EventSource
		// clients on any page can read the stream.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    exposed,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    exposed,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
		// Payer addresses and invoice refs must not sit in shared caches.
		NoStorePrefixes: []string{path.Join("/", base, "/payments"), path.Join("/", base, "/links")},
		Expose:          []string{"ETag", "Idempotency-Replayed"},
	}))

	// Streams and the Prometheus exposition must reach the client unbuffered.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{eventsPath, "/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", healthHandler(deps))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	links := services.NewLinkService(deps.DB, linkRepoShim{}, deps.Monitors)
	if cfg.Links.CodeLength > 0 {
		links.CodeLength = cfg.Links.CodeLength
	}
	if cfg.Links.CodeAttempts > 0 {
		links.CodeAttempts = cfg.Links.CodeAttempts
	}
	links.TTL = cfg.Links.TTL
	links.FrontendBaseURL = cfg.Links.FrontendBaseURL

	h := handlers.New(links, deps.Bridge, deps.Monitors, deps.Events, handlers.Options{
		DB:             deps.DB,
		IdempotencyTTL: cfg.IdempotencyTTL,
		KeepAlive:      cfg.SSEKeepAlive,
	})

	api := groupWithPrefix(r, base)
	{
		api.POST("/links", h.CreateLink)
		api.GET("/links/:code", h.GetLink)
		api.GET("/links/:code/url", h.GetLinkURL)
		if cfg.DebugEndpoints {
			api.GET("/links", h.CountLinks)
		}

		api.POST("/payments", h.SubmitPayment)
		api.GET("/payments", h.ListPayments)
		api.GET("/events", h.StreamEvents)

		api.POST("/monitors/:videoId/start", h.StartMonitor)
		api.GET("/monitors/:videoId", h.GetMonitor)
		api.GET("/monitors", h.ListMonitors)
		api.GET("/videos/:videoId/live-chat", h.GetLiveChat)
	}
}

// healthHandler godoc
// @ID          health
// @Summary     Liveness and ledger health
// @Tags        Health
// @Produce     json
// @Success     200  {object}  httpapi.HealthResponse
// @Router      /health [get]
func healthHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := HealthResponse{Status: "ok"}
		if deps.Ledger != nil {
			resp.LedgerRecords = deps.Ledger.Len()
			resp.LedgerPending = deps.Ledger.Pending()
			if resp.LedgerPending > 0 {
				resp.Status = "degraded"
			}
		}
		if deps.Events != nil {
			resp.Subscribers = deps.Events.Len()
		}
		if deps.Monitors != nil {
			resp.Monitors = len(deps.Monitors.Sessions())
		}
		c.JSON(http.StatusOK, resp)
	}
}

// limitBody caps the request body size to maxBytes using
// http.MaxBytesReader; larger bodies fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
