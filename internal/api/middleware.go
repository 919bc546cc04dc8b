package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/decentralizedkaggle/DKaggle/internal/auth"
	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/decentralizedkaggle/DKaggle/internal/metrics"
	"github.com/decentralizedkaggle/DKaggle/internal/util"

	"github.com/gin-gonic/gin"
)

// WalletKey is the gin context key holding the authenticated wallet.
const WalletKey = "wallet"

// AdminKeyHeader carries the admin key on admin API requests.
const AdminKeyHeader = "X-Admin-Key"

// CORSMiddleware provides a configurable CORS middleware.
func CORSMiddleware(cfg config.CORS) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If no origins are configured, do nothing.
		if len(cfg.AllowedOrigins) == 0 {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		allowOrigin := ""
		for _, o := range cfg.AllowedOrigins {
			if o == "*" || o == origin {
				allowOrigin = o
				break
			}
		}

		if allowOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			if allowOrigin != "*" {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
				c.Writer.Header().Add("Vary", "Origin")
			}
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+AdminKeyHeader)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

// AuthMiddleware accepts a wallet session token as "Bearer {token}" and stores
// the wallet under WalletKey.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			util.Error(c, http.StatusUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			util.Error(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		claims, err := auth.ValidateJWT(parts[1], secret)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		c.Set(WalletKey, claims.Wallet())
		c.Next()
	}
}

// AdminKeyMiddleware rejects requests whose X-Admin-Key does not match keyHash.
func AdminKeyMiddleware(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.CheckKey(keyHash, c.GetHeader(AdminKeyHeader)) {
			util.Error(c, http.StatusUnauthorized, "a valid "+AdminKeyHeader+" header is required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// MetricsMiddleware counts requests by route template and status.
func MetricsMiddleware(server string, rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.HTTPRequest(server, route, strconv.Itoa(c.Writer.Status()))
	}
}

// Wallet returns the wallet set by AuthMiddleware.
func Wallet(c *gin.Context) string {
	return c.GetString(WalletKey)
}
