package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/middleware"
	"github.com/vnkhanh/yearbook-server/models"
	"github.com/vnkhanh/yearbook-server/services"
	"github.com/vnkhanh/yearbook-server/utils"
)

func workspaceIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("workspaceId"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid workspace id"})
		return 0, false
	}
	return uint(id), true
}

func clientIP(c *gin.Context) *string {
	ip := c.ClientIP()
	if ip == "" {
		return nil
	}
	return &ip
}

type registerGuestReq struct {
	Name     string  `json:"name" binding:"required,min=1"`
	Email    *string `json:"email" binding:"omitempty,email"`
	DeviceID *string `json:"device_id"`
}

// RegisterGuest registers a guest under a display name only. Registering
// again with the same email returns the same session.
func RegisterGuest(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}

	var req registerGuestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	registrar := services.NewRegistrarService(config.DB)
	session, err := registrar.RegisterByName(workspaceID, req.Name, req.Email, req.DeviceID, clientIP(c))
	if err != nil {
		if errors.Is(err, services.ErrWorkspaceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Workspace not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot register"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session": session,
		"token":   session.Token,
	})
}

type identifyGuestReq struct {
	Nickname      string  `json:"nickname" binding:"required,min=1"`
	RosterEntryID *uint   `json:"roster_entry_id"`
	Email         *string `json:"email" binding:"omitempty,email"`
	DeviceID      *string `json:"device_id"`
}

// IdentifyGuest registers a guest who claims a roster identity. A claim
// conflict is not an error: the guest gets a pending session plus an
// advisory message while a teacher arbitrates.
func IdentifyGuest(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}

	var req identifyGuestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	registrar := services.NewRegistrarService(config.DB)
	result, err := registrar.RegisterWithIdentification(workspaceID, req.Nickname, req.RosterEntryID, req.Email, req.DeviceID, clientIP(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWorkspaceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Workspace not found"})
		case errors.Is(err, services.ErrRosterEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Roster entry not found"})
		case errors.Is(err, services.ErrRosterEntryWrongWorkspace):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Roster entry belongs to another workspace"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot register"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session":          result.Session,
		"token":            result.Session.Token,
		"has_conflict":     result.HasConflict,
		"conflict_message": result.ConflictMessage,
	})
}

// GuestMe returns the caller's own session, including verification status
// and today's remaining pokes.
func GuestMe(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	limits := services.NewDailyLimitService(config.DB, config.Policy)
	remaining, err := limits.Remaining(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read limits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":         session,
		"pokes_remaining": remaining,
	})
}

// Heartbeat bumps last-activity for the calling session.
func Heartbeat(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	guests := services.NewGuestService(config.DB, nil)
	if err := guests.Heartbeat(session.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot update activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

type restoreRequestReq struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestRestore mails a session-restore link. The response is identical
// whether or not the email is known.
func RequestRestore(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}

	var req restoreRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload"})
		return
	}

	guests := services.NewGuestService(config.DB, utils.NewMailerFromEnv())
	if err := guests.IssueRestoreToken(workspaceID, req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot issue restore link"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a restore link has been sent"})
}

type restoreRedeemReq struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// RedeemRestore exchanges a mailed restore token for the session token.
func RedeemRestore(c *gin.Context) {
	workspaceID, ok := workspaceIDParam(c)
	if !ok {
		return
	}

	var req restoreRedeemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload"})
		return
	}

	guests := services.NewGuestService(config.DB, nil)
	session, err := guests.RedeemRestoreToken(workspaceID, req.Email, req.Token)
	if err != nil {
		if errors.Is(err, services.ErrRestoreTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Restore link invalid or expired"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot restore session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"token":   session.Token,
	})
}

// ListMembers lists the workspace's poke-able members for the member grid:
// verified, not banned, not staff, the caller excluded client-side.
func ListMembers(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	var members []models.GuestSession
	if err := config.DB.
		Where("workspace_id = ? AND verification_status = ? AND is_banned = ? AND is_extra = ?",
			session.WorkspaceID, models.VerificationVerified, false, false).
		Order("display_name ASC").
		Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members, "total": len(members)})
}

// ListPokePresets returns the preset poke messages, optionally by category.
func ListPokePresets(c *gin.Context) {
	query := config.DB.Model(&models.PokePresetMessage{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var presets []models.PokePresetMessage
	if err := query.Order("sort_rank ASC, id ASC").Find(&presets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list presets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": presets})
}
