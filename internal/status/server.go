package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/danmuck/ledctl/internal/arbiter"
	"github.com/danmuck/ledctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Streams is the read side of the arbiter the server reports on.
type Streams interface {
	Snapshot() []arbiter.StreamInfo
}

type Config struct {
	Addr        string
	CORSOrigins []string
	InstanceID  string
}

type Server struct {
	cfg     Config
	streams Streams
	router  *gin.Engine
	started time.Time
	ready   atomic.Bool
}

func New(cfg Config, streams Streams) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		streams: streams,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReady flips the /ready answer once the listeners are bound.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.started).String(),
			"instance": s.cfg.InstanceID,
			"version":  version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		code := http.StatusOK
		if !s.ready.Load() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"ready":    s.ready.Load(),
			"uptime":   time.Since(s.started).String(),
			"instance": s.cfg.InstanceID,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/streams", func(c *gin.Context) {
		var list []arbiter.StreamInfo
		if s.streams != nil {
			list = s.streams.Snapshot()
		}
		if list == nil {
			list = []arbiter.StreamInfo{}
		}
		active := ""
		for _, st := range list {
			if st.Active {
				active = st.Client
				break
			}
		}
		c.JSON(http.StatusOK, gin.H{"active": active, "streams": list})
	})
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("status server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
