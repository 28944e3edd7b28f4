package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/middleware"
	"github.com/vnkhanh/yearbook-server/models"
)

func CreateWorkspace(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.StaffUser)

	var req struct {
		Name        string  `json:"name" binding:"required"`
		SchoolYear  string  `json:"school_year"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid payload",
			"error":   err.Error(),
		})
		return
	}

	ws := models.Workspace{
		Name:        req.Name,
		SchoolYear:  req.SchoolYear,
		Description: req.Description,
		OwnerID:     &u.ID,
		Status:      "active",
		ShareCode:   uuid.NewString(),
	}

	if err := config.DB.Create(&ws).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create workspace"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Workspace created",
		"data":    ws,
	})
}

func ListWorkspaces(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.StaffUser)

	query := config.DB.Model(&models.Workspace{}).
		Where("status <> ?", "deleted").
		Where("owner_id = ?", u.ID)

	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int64
	query.Count(&total)

	var workspaces []models.Workspace
	if err := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&workspaces).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list workspaces"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  workspaces,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// ListAllWorkspaces is the platform-admin view: every owner's workspaces,
// archived included.
func ListAllWorkspaces(c *gin.Context) {
	query := config.DB.Model(&models.Workspace{}).Where("status <> ?", "deleted")

	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page <= 0 {
		page = 1
	}

	var total int64
	query.Count(&total)

	var workspaces []models.Workspace
	if err := query.Offset((page - 1) * limit).Limit(limit).Order("created_at desc").Find(&workspaces).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list workspaces"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  workspaces,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func GetWorkspaceDetail(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	var memberCount, rosterCount, pendingCount int64
	config.DB.Model(&models.GuestSession{}).
		Where("workspace_id = ? AND verification_status = ? AND is_banned = ? AND is_extra = ?",
			ws.ID, models.VerificationVerified, false, false).
		Count(&memberCount)
	config.DB.Model(&models.RosterEntry{}).Where("workspace_id = ?", ws.ID).Count(&rosterCount)
	config.DB.Model(&models.GuestSession{}).
		Where("workspace_id = ? AND verification_status = ?", ws.ID, models.VerificationPending).
		Count(&pendingCount)

	c.JSON(http.StatusOK, gin.H{
		"data":           ws,
		"member_count":   memberCount,
		"roster_count":   rosterCount,
		"pending_claims": pendingCount,
	})
}

// GetWorkspaceByShareCode is the entry point guests follow from the shared
// link; it exposes only what registration needs.
func GetWorkspaceByShareCode(c *gin.Context) {
	code := c.Param("shareCode")

	var ws models.Workspace
	if err := config.DB.Where("share_code = ? AND status = ?", code, "active").First(&ws).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Workspace not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          ws.ID,
		"name":        ws.Name,
		"school_year": ws.SchoolYear,
	})
}

func ArchiveWorkspace(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	if err := config.DB.Model(&ws).Update("status", "archived").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot archive workspace"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace archived"})
}

func RestoreWorkspace(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	if err := config.DB.Model(&ws).Update("status", "active").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot restore workspace"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace restored"})
}
