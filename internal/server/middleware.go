package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func applyMiddleware(r *gin.Engine, config *config.Config, otelComponent string, deps Dependencies) {
	r.Use(gin.Recovery())

	r.TrustedPlatform = "X-Real-IP"

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "authorization")
	corsConfig.AllowCredentials = true
	corsConfig.AllowWildcard = true
	if len(config.HTTP.CORSHosts) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowOrigins = config.HTTP.CORSHosts
	r.Use(cors.New(corsConfig))

	err := r.SetTrustedProxies(config.HTTP.TrustedProxies)
	if err != nil {
		slog.Error("Failed to set trusted proxies", "error", err.Error())
	}

	r.Use(dependencyMiddleware(config, deps))

	if config.HTTP.Tracing.Enabled {
		r.Use(otelgin.Middleware(otelComponent))
		r.Use(tracingProvider(config))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		WithSpanID:        config.HTTP.Tracing.Enabled,
		WithTraceID:       config.HTTP.Tracing.Enabled,
		DefaultLevel:      slog.LevelInfo,
		ClientErrorLevel:  slog.LevelWarn,
		ServerErrorLevel:  slog.LevelError,
		WithRequestHeader: false,
	}))
}

func dependencyMiddleware(config *config.Config, deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", config)
		c.Set("db", deps.DB)
		c.Set("metrics", deps.Metrics)
		c.Set("planner", deps.Planner)
		c.Set("geocoder", deps.Geocoder)
		c.Set("places", deps.Places)
		c.Set("triplog", deps.TripLogs)
		c.Set("devserver", deps.DevServer)
		c.Set("supabase", deps.Supabase)
		c.Set("events", deps.Events)
		c.Set("search", deps.Search)
		c.Next()
	}
}

func tracingProvider(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HTTP.Tracing.OTLPEndpoint != "" {
			ctx := c.Request.Context()
			span := trace.SpanFromContext(ctx)
			if span.IsRecording() {
				span.SetAttributes(
					attribute.String("http.method", c.Request.Method),
					attribute.String("http.path", c.Request.URL.Path),
				)
			}
		}
		c.Next()
	}
}

// supabaseAuth reads an optional Supabase access token. A valid token sets "user" to its
// subject, an invalid one is rejected. Without a configured secret every caller is anonymous.
func supabaseAuth(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.Supabase.JWTSecret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		uid, err := utils.VerifyJWT(config.Supabase.JWTSecret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			slog.Warn("Failed to verify user JWT", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("user", uid)
		c.Next()
	}
}

// requireUser rejects anonymous callers whenever tokens can be verified.
func requireUser(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.Supabase.JWTSecret != "" && c.GetString("user") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
