package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/straye-as/pipeline-api/internal/config"
	"go.uber.org/zap"
)

// Headers browsers must be able to send and read for the API to work at all,
// whatever the configured lists say.
var (
	requiredAllowedHeaders = []string{"Authorization", "Content-Type", "X-API-Key", RequestIDHeader}
	requiredExposedHeaders = []string{"Content-Disposition", "Content-Length", "Location", "Retry-After", RequestIDHeader}
)

// CORS builds the cross-origin policy for the dashboard frontend. A "*" origin
// or an empty list outside production reflects any origin; an empty list in
// production denies them all.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   mergeHeaders(cfg.AllowedHeaders, requiredAllowedHeaders),
		ExposedHeaders:   mergeHeaders(cfg.ExposedHeaders, requiredExposedHeaders),
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	devMode := environment == "development" || environment == "local" || environment == ""
	anyOrigin := func(_ *http.Request, origin string) bool { return origin != "" }

	switch {
	case containsHeader(cfg.AllowedOrigins, "*"):
		if !devMode {
			logger.Warn("wildcard CORS origin outside development",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = anyOrigin
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS origins configured", zap.Strings("origins", cfg.AllowedOrigins))
	case devMode:
		options.AllowOriginFunc = anyOrigin
		logger.Info("CORS allows any origin in development")
	default:
		// go-chi/cors treats an empty AllowedOrigins as "*"
		options.AllowOriginFunc = func(*http.Request, string) bool { return false }
		logger.Warn("no CORS origins configured, cross-origin requests are denied",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}

// mergeHeaders appends each required header missing from configured,
// comparing case-insensitively.
func mergeHeaders(configured, required []string) []string {
	merged := append([]string{}, configured...)
	for _, h := range required {
		if !containsHeader(merged, h) {
			merged = append(merged, h)
		}
	}
	return merged
}

func containsHeader(list []string, name string) bool {
	for _, h := range list {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}
