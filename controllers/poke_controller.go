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

func pokeService() *services.PokeService {
	return services.NewPokeService(config.DB, config.Policy, nil)
}

type sendPokeReq struct {
	TargetID        uint    `json:"target_id" binding:"required"`
	Category        string  `json:"category"`
	PresetMessageID *uint   `json:"preset_message_id"`
	Message         *string `json:"message"`
}

// SendPoke validates and creates one poke. Rule failures come back as 422
// with the machine-readable reason code.
func SendPoke(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	var req sendPokeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	poke, err := pokeService().Send(&session, req.TargetID, services.SendInput{
		Category:        req.Category,
		PresetMessageID: req.PresetMessageID,
		Message:         req.Message,
	})
	if err != nil {
		if reason, ok := services.DeniedReason(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": "Poke not allowed",
				"reason":  reason,
			})
			return
		}
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Target not found"})
		case errors.Is(err, services.ErrMessageChoice):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Send either a preset message or free text"})
		case errors.Is(err, services.ErrPresetNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Preset message not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot send poke"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": poke})
}

type batchEligibilityReq struct {
	TargetIDs []uint `json:"target_ids" binding:"required"`
}

// BatchEligibility answers "whom can I poke right now" for a whole member
// grid in one request.
func BatchEligibility(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	var req batchEligibilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	verdicts, err := pokeService().BatchEligibility(&session, req.TargetIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot compute eligibility"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": verdicts})
}

// PokeRemaining returns how many pokes the caller may still send today.
func PokeRemaining(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	limits := services.NewDailyLimitService(config.DB, config.Policy)
	remaining, err := limits.Remaining(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot read limits"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"remaining":   remaining,
		"daily_limit": config.Policy.DailyLimit,
	})
}

// PokeInbox lists received pokes, newest first.
func PokeInbox(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	pokes, total, err := pokeService().Inbox(session.ID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list pokes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  pokes,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// PokeSent lists sent pokes, newest first.
func PokeSent(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	pokes, total, err := pokeService().Sent(session.ID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list pokes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  pokes,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func pokeIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("pokeId"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid poke id"})
		return 0, false
	}
	return uint(id), true
}

// MarkPokeRead flags a received poke as read.
func MarkPokeRead(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	pokeID, ok := pokeIDParam(c)
	if !ok {
		return
	}

	err := pokeService().MarkRead(pokeID, session.ID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPokeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Poke not found"})
		case errors.Is(err, services.ErrNotPokeTarget):
			c.JSON(http.StatusForbidden, gin.H{"message": "Not your poke"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot mark poke"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

type reactionReq struct {
	Reaction string `json:"reaction" binding:"required"`
}

// ReactToPoke attaches an emoji reaction to a received poke.
func ReactToPoke(c *gin.Context) {
	session := c.MustGet(middleware.CtxSession).(models.GuestSession)

	pokeID, ok := pokeIDParam(c)
	if !ok {
		return
	}

	var req reactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload"})
		return
	}

	poke, err := pokeService().AddReaction(pokeID, session.ID, req.Reaction)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPokeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Poke not found"})
		case errors.Is(err, services.ErrNotPokeTarget):
			c.JSON(http.StatusForbidden, gin.H{"message": "Not your poke"})
		case errors.Is(err, services.ErrInvalidReaction):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Reaction not allowed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot save reaction"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": poke})
}
