package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/services"
)

const HeaderGuestToken = "X-Guest-Token"

// GuestAuth resolves the X-Guest-Token header against the workspace in the
// route. Resolution fails closed: banned or unknown tokens look identical
// to the caller.
func GuestAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := strconv.Atoi(c.Param("workspaceId"))
		if err != nil || workspaceID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid workspace id"})
			return
		}

		token := c.GetHeader(HeaderGuestToken)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing guest token"})
			return
		}

		guests := services.NewGuestService(config.DB, nil)
		session, err := guests.ResolveSessionByToken(token, uint(workspaceID))
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unknown session"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Cannot resolve session"})
			return
		}

		c.Set(CtxSession, *session)
		c.Next()
	}
}
