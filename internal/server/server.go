package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/viewhub/viewhub/internal/domain/connection"
	"github.com/viewhub/viewhub/internal/domain/session"
	vhttp "github.com/viewhub/viewhub/internal/http"
	"github.com/viewhub/viewhub/internal/infrastructure/config"
	"github.com/viewhub/viewhub/internal/infrastructure/logging"
	"github.com/viewhub/viewhub/internal/infrastructure/monitoring"
	"github.com/viewhub/viewhub/internal/middleware"
	"github.com/viewhub/viewhub/internal/persist"
	"github.com/viewhub/viewhub/internal/reachability"
	"github.com/viewhub/viewhub/internal/render"
	"github.com/viewhub/viewhub/internal/shared/types"
	"github.com/viewhub/viewhub/internal/ws"
)

// Server wires the session core to its HTTP control plane.
type Server struct {
	cfg    *config.Config
	logger *logging.Logger
	router *gin.Engine

	store       *session.Store
	coordinator *render.Coordinator
	monitor     *reachability.Monitor

	httpServer *http.Server
	cancel     context.CancelFunc
}

// NewServer assembles all collaborators: durable storage, the session
// store, the connection tracker, the render surface and bridge, the
// reachability monitor, and the HTTP/WebSocket surface.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	metrics := monitoring.NewMetrics()

	kv, err := persist.OpenFileStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	adapter := persist.NewAdapter(kv, logger).WithMetrics(metrics)

	store := session.NewStore(logger).WithMetrics(metrics)
	tracker := connection.NewTracker(logger).WithHistory(adapter).WithMetrics(metrics)

	bridge := render.NewBridge(store, logger)
	surface := render.NewHTTPSurface(render.SurfaceOptions{
		Timeout:    time.Duration(cfg.Surface.TimeoutSec) * time.Second,
		UserAgent:  cfg.Surface.UserAgent,
		MaxRetries: cfg.Surface.MaxRetries,
	}, logger)

	coordinator := render.NewCoordinator(store, tracker, bridge, surface, adapter, logger)
	surface.Notify(coordinator)

	monitor := reachability.NewMonitor(reachability.Options{
		Endpoint: cfg.Probe.Endpoint,
		Interval: time.Duration(cfg.Probe.IntervalSec) * time.Second,
	}, logger)

	// Restore persisted sessions before any subscriber attaches, so
	// rehydration emits no events.
	coordinator.Rehydrate()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	handlers := vhttp.NewHandlers(coordinator, store, bridge, adapter, monitor)
	wsHandler := ws.NewHandler(logger, metrics)
	store.Subscribe(wsHandler.Publish)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Session lifecycle
	router.GET("/sessions", handlers.ListSessions)
	router.POST("/sessions", handlers.CreateSession)
	router.GET("/sessions/active", handlers.GetActive)
	router.GET("/sessions/:id", handlers.GetSession)
	router.DELETE("/sessions/:id", handlers.RemoveSession)
	router.POST("/sessions/:id/activate", handlers.ActivateSession)
	router.POST("/sessions/:id/disconnect", handlers.DisconnectSession)
	router.POST("/sessions/:id/retry", handlers.RetrySession)
	router.POST("/sessions/:id/failure", handlers.ReportFailure)
	router.GET("/sessions/:id/state", handlers.GetRenderState)
	router.PUT("/sessions/:id/state", handlers.PutRenderState)

	// Address validation
	router.POST("/validate", handlers.ValidateURL)

	// Recent-server history
	router.GET("/history", handlers.ListHistory)
	router.POST("/history/remove", handlers.RemoveHistoryEntry)
	router.POST("/history/clear", handlers.ClearHistory)

	// Network reachability
	router.GET("/network", handlers.NetworkStatus)

	// WebSocket event stream
	router.GET("/stream", wsHandler.HandleConnection)

	return &Server{
		cfg:         cfg,
		logger:      logger,
		router:      router,
		store:       store,
		coordinator: coordinator,
		monitor:     monitor,
	}, nil
}

// Run starts the background collaborators and serves HTTP until Shutdown.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.cfg.Probe.Enabled {
		go s.monitor.Run(ctx)
		go s.watchReachability(ctx)
	}

	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.logger.Info("starting viewhub service",
		zap.String("addr", addr),
		zap.Int("sessions", len(s.store.Sessions())),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and background loops gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// watchReachability marks engaged sessions failed when the network drops.
func (s *Server) watchReachability(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case online := <-s.monitor.Updates():
			if online {
				continue
			}
			for _, sess := range s.store.Sessions() {
				if types.Engaged(sess.State) {
					_ = s.coordinator.ReportFailure(sess.ID, "network unreachable")
				}
			}
		}
	}
}
