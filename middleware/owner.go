package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/models"
)

// CheckWorkspaceOwner loads the workspace from the :id param into the
// context and verifies the current staff user owns it.
func CheckWorkspaceOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUser)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		user := v.(models.StaffUser)

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid workspace id"})
			return
		}

		var ws models.Workspace
		if err := config.DB.
			Where("id = ? AND status <> 'deleted'", id).
			First(&ws).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Workspace not found"})
			return
		}

		if ws.OwnerID == nil || (*ws.OwnerID != user.ID && !user.IsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You do not own this workspace"})
			return
		}

		c.Set(CtxWorkspace, ws)
		c.Next()
	}
}
