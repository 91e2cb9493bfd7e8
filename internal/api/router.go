// Package api exposes the feed generator over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Adda-Baaj/khobor-rss/internal/app"
	"github.com/Adda-Baaj/khobor-rss/internal/logger"
)

// FeedGenerator is the slice of app.Service the handlers call.
type FeedGenerator interface {
	Generate(ctx context.Context, req app.Request) app.Result
}

// Options tunes the HTTP surface.
type Options struct {
	CacheMaxAge time.Duration
}

// NewRouter constructs a gin engine with the feed and health routes.
func NewRouter(gen FeedGenerator, log logger.Logger, opts Options) *gin.Engine {
	log = logger.Ensure(log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(log))

	h := &feedHandler{gen: gen, cacheControl: cacheControl(opts.CacheMaxAge)}
	r.GET("/feed", h.serveFeed)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func cacheControl(maxAge time.Duration) string {
	if maxAge <= 0 {
		return "no-cache"
	}
	return fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
}

type feedHandler struct {
	gen          FeedGenerator
	cacheControl string
}

// serveFeed handles GET /feed?url=&max_items=&strategy=&profile=&format=.
func (h *feedHandler) serveFeed(c *gin.Context) {
	res := h.gen.Generate(c.Request.Context(), app.Request{
		URL:      c.Query("url"),
		MaxItems: c.Query("max_items"),
		Strategy: c.Query("strategy"),
		Profile:  c.Query("profile"),
		Format:   c.Query("format"),
	})

	if res.OK() {
		c.Header("Cache-Control", h.cacheControl)
	} else {
		c.Header("Cache-Control", "no-store")
		_ = c.Error(res.Err)
	}
	c.Header("X-Feed-Items", fmt.Sprintf("%d", res.ItemCount))
	c.Data(res.Status, res.ContentType, []byte(res.Body))
}

// LoggerMiddleware logs one structured line per request.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if query != "" {
			fields["query"] = query
		}
		if !strings.HasPrefix(path, "/health") {
			fields["user_agent"] = c.Request.UserAgent()
		}

		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.Errors()
			log.WarnObj("http request with errors", "http_request", fields)
			return
		}
		log.InfoObj("http request", "http_request", fields)
	}
}
