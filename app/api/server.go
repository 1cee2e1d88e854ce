package api

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// NewServer creates a new HTTP server with all routes configured
// Gateway X-User-Role headers grant admin only when trustGateway is set.
func NewServer(handler *Handler, apiAccessKey string, trustGateway bool) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
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

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, X-User-ID, X-User-Role")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.Use(authMiddleware(apiAccessKey, trustGateway))

	setupRoutes(r, handler)

	switch {
	case apiAccessKey == "" && !trustGateway:
		slog.Warn("Admin API key not set and gateway headers untrusted, alert management is disabled")
	case apiAccessKey == "":
		slog.Warn("Admin API key not set, alert management relies on gateway roles only")
	}

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.GetHealth)

	alertsGroup := r.Group("/alerts")
	{
		alertsGroup.GET("", handler.ListAlerts)
		alertsGroup.POST("", requireAdmin(), handler.CreateAlert)

		// Static segments before :id so they are never read as ids.
		alertsGroup.GET("/saved", requireUser(), handler.ListSavedAlerts)
		alertsGroup.GET("/external", handler.GetExternalAlerts)
		alertsGroup.GET("/gov", handler.GetGovAlerts)
		alertsGroup.GET("/merged", handler.GetMergedAlerts)
		alertsGroup.GET("/feed.xml", handler.GetAlertFeed)

		alertsGroup.GET("/:id", handler.GetAlert)
		alertsGroup.PUT("/:id", requireAdmin(), handler.UpdateAlert)
		alertsGroup.DELETE("/:id", requireAdmin(), handler.DeleteAlert)
		alertsGroup.POST("/:id/save", requireUser(), handler.ToggleSaved)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware resolves the caller. A request carrying the admin API key
// is an admin; otherwise the gateway's X-User-ID header identifies the user.
// X-User-Role is honoured only for a trusted gateway, so without it the API
// key is the sole admin credential. Anonymous requests pass through without
// a principal.
func authMiddleware(apiAccessKey string, trustGateway bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey != "" {
			if apiAccessKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiAccessKey)) != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "invalid API key"})
				return
			}
			c.Set(principalKey, &Principal{UserID: "api-key", Role: RoleAdmin})
			c.Next()
			return
		}

		if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
			role := strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Role")))
			if role != RoleAdmin || !trustGateway {
				role = RoleUser
			}
			c.Set(principalKey, &Principal{UserID: userID, Role: role})
		}

		c.Next()
	}
}

func principalFrom(c *gin.Context) *Principal {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := value.(*Principal)
	return principal
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principalFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "authentication required"})
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := principalFrom(c)
		if principal == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "authentication required"})
			return
		}
		if !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{Error: "admin access required"})
			return
		}
		c.Next()
	}
}
