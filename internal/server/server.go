package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/devserver"
	"github.com/USA-RedDragon/camper-server/internal/events"
	"github.com/USA-RedDragon/camper-server/internal/geocache"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/USA-RedDragon/camper-server/internal/places"
	"github.com/USA-RedDragon/camper-server/internal/planner"
	"github.com/USA-RedDragon/camper-server/internal/searchindex"
	"github.com/USA-RedDragon/camper-server/internal/supabase"
	"github.com/USA-RedDragon/camper-server/internal/triplog"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Dependencies are the services handed to every request through the gin context.
// Supabase and DevServer may be nil when they are not configured.
type Dependencies struct {
	DB        *gorm.DB
	Metrics   *metrics.Metrics
	Planner   *planner.Planner
	Geocoder  *geocache.CachedGeocoder
	Places    *places.Service
	TripLogs  *triplog.Queue
	DevServer *devserver.Supervisor
	Supabase  *supabase.Client
	Events    events.Publisher
	Search    *searchindex.Loader
}

type Server struct {
	ipv4Server        *http.Server
	ipv6Server        *http.Server
	metricsIPV4Server *http.Server
	metricsIPV6Server *http.Server
	stopped           atomic.Bool
	config            *config.Config
}

const defTimeout = 120 * time.Second

type Router struct {
	*gin.Engine
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if strings.HasSuffix(req.URL.Path, "/") {
		req.URL.Path = filepath.Clean(req.URL.Path)
	}
	r.Engine.ServeHTTP(w, req)
}

// NewRouter builds the API engine without any listeners.
func NewRouter(config *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	if config.HTTP.PProf.Enabled {
		pprof.Register(r)
	}

	applyMiddleware(r, config, "api", deps)
	applyRoutes(r, config)
	return r
}

func NewServer(config *config.Config, deps Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)
	if config.HTTP.PProf.Enabled {
		gin.SetMode(gin.DebugMode)
	}

	skipContextPathRouter := &Router{
		Engine: NewRouter(config, deps),
	}

	s := &Server{
		ipv4Server: newHTTPServer(fmt.Sprintf("%s:%d", config.HTTP.IPV4Host, config.HTTP.Port), skipContextPathRouter),
		ipv6Server: newHTTPServer(fmt.Sprintf("[%s]:%d", config.HTTP.IPV6Host, config.HTTP.Port), skipContextPathRouter),
		config:     config,
	}

	if config.HTTP.Metrics.Enabled {
		metricsRouter := gin.New()
		applyMiddleware(metricsRouter, config, "metrics", deps)
		metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

		s.metricsIPV4Server = newHTTPServer(fmt.Sprintf("%s:%d", config.HTTP.Metrics.IPV4Host, config.HTTP.Metrics.Port), metricsRouter)
		s.metricsIPV6Server = newHTTPServer(fmt.Sprintf("[%s]:%d", config.HTTP.Metrics.IPV6Host, config.HTTP.Metrics.Port), metricsRouter)
	}
	return s
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: defTimeout,
		WriteTimeout:      defTimeout,
		Handler:           handler,
	}
}

// listen binds srv on network and serves it in the background. A nil server is skipped.
func (s *Server) listen(srv *http.Server, network, name string) error {
	if srv == nil {
		return nil
	}
	listener, err := net.Listen(network, srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !s.stopped.Load() {
			slog.Error(name+" server error", "addr", srv.Addr, "error", err.Error())
		}
	}()
	return nil
}

func (s *Server) Start() error {
	if err := s.listen(s.ipv4Server, "tcp4", "HTTP IPv4"); err != nil {
		return err
	}
	if err := s.listen(s.ipv6Server, "tcp6", "HTTP IPv6"); err != nil {
		return err
	}
	slog.Info("HTTP server started", "ipv4", s.config.HTTP.IPV4Host, "ipv6", s.config.HTTP.IPV6Host, "port", s.config.HTTP.Port)

	if s.config.HTTP.Metrics.Enabled {
		if err := s.listen(s.metricsIPV4Server, "tcp4", "Metrics IPv4"); err != nil {
			return err
		}
		if err := s.listen(s.metricsIPV6Server, "tcp6", "Metrics IPv6"); err != nil {
			return err
		}
		slog.Info("Metrics server started", "ipv4", s.config.HTTP.Metrics.IPV4Host, "ipv6", s.config.HTTP.Metrics.IPV6Host, "port", s.config.HTTP.Metrics.Port)
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 240*time.Second)
	defer cancel()

	s.stopped.Store(true)

	errGrp := errgroup.Group{}
	for _, srv := range []*http.Server{s.ipv4Server, s.ipv6Server, s.metricsIPV4Server, s.metricsIPV6Server} {
		if srv == nil {
			continue
		}
		errGrp.Go(func() error {
			return srv.Shutdown(ctx)
		})
	}
	return errGrp.Wait()
}
