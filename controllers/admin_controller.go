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
)

func sessionIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("sessionId"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid session id"})
		return 0, false
	}
	return uint(id), true
}

// ListPendingClaims feeds the arbitration screen: every pending session
// with its contested roster entry and the current verified holder.
func ListPendingClaims(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	conflicts := services.NewConflictService(config.DB)
	claims, err := conflicts.ListPendingClaims(ws.ID)
	if err != nil {
		if errors.Is(err, services.ErrDoubleClaim) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Roster state inconsistent, contact support"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list pending claims"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": claims, "total": len(claims)})
}

func arbitrationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
	case errors.Is(err, services.ErrSessionNotPending):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Session is not pending"})
	case errors.Is(err, services.ErrRosterEntryNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Contested roster entry no longer exists"})
	case errors.Is(err, services.ErrDoubleClaim):
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Roster state inconsistent, contact support"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Arbitration failed"})
	}
}

// ApproveClaim resolves a contested roster claim in the pending session's
// favor; the previous holder keeps their session but loses the binding.
func ApproveClaim(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	conflicts := services.NewConflictService(config.DB)
	session, err := conflicts.Approve(ws.ID, sessionID)
	if err != nil {
		arbitrationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Claim approved", "data": session})
}

// RejectClaim settles a contested claim against the pending session.
func RejectClaim(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	conflicts := services.NewConflictService(config.DB)
	session, err := conflicts.Reject(ws.ID, sessionID)
	if err != nil {
		arbitrationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Claim rejected", "data": session})
}

// ListGuests lists a workspace's sessions for the admin screen.
func ListGuests(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	status := c.Query("status")

	guests := services.NewGuestService(config.DB, nil)
	sessions, total, err := guests.List(ws.ID, status, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list guests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  sessions,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func setBanned(c *gin.Context, banned bool) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	guests := services.NewGuestService(config.DB, nil)
	session, err := guests.SetBanned(ws.ID, sessionID, banned)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot update session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

func BanGuest(c *gin.Context)   { setBanned(c, true) }
func UnbanGuest(c *gin.Context) { setBanned(c, false) }

// MarkGuestExtra toggles the staff ("extra") flag on a session, exempting
// it from pokes and member counts.
func MarkGuestExtra(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req struct {
		IsExtra bool `json:"is_extra"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload"})
		return
	}

	guests := services.NewGuestService(config.DB, nil)
	session, err := guests.SetExtra(ws.ID, sessionID, req.IsExtra)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot update session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}
