package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates a new HTTP server with all routes configured.
// Everything except /health requires basic auth when password is non-empty.
func NewServer(handler *Handler, gatherer prometheus.Gatherer, username, password string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.GET("/health", handler.GetHealth)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	protected := r.Group("/")
	if password != "" {
		protected.Use(authMiddleware(username, password))
	} else {
		slog.Warn("Basic auth disabled (no password configured)")
	}

	protected.GET("/feed.xml", handler.GetFeed)
	protected.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := protected.Group("/api")
	{
		api.GET("/sources", handler.APIListSources)
		api.POST("/sources", handler.APIAddSource)
		api.GET("/sources/:id", handler.APIGetSource)
		api.POST("/sources/:id/refresh", handler.APIRefreshSource)
		api.POST("/refresh", handler.APIRefreshAll)
		api.GET("/articles", handler.APIListArticles)
		api.GET("/articles/:id", handler.APIGetArticle)
		api.POST("/articles/:id/read", handler.APIMarkRead)
	}

	return r
}

func authMiddleware(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="rss-pull"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Provide credentials with HTTP basic auth",
			})
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userMatch || !passMatch {
			slog.Warn("Rejected credentials", "user", user, "client_ip", c.ClientIP())
			c.Header("WWW-Authenticate", `Basic realm="rss-pull"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid credentials",
				"message": "The provided user name or password is not valid",
			})
			return
		}

		c.Next()
	}
}
