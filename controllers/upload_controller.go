package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/middleware"
	"github.com/vnkhanh/yearbook-server/models"
	"github.com/vnkhanh/yearbook-server/utils"
)

// UploadRosterPhoto stores a photo for a roster entry and flags the entry
// as having one.
func UploadRosterPhoto(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	entryID, err := strconv.Atoi(c.Param("entryId"))
	if err != nil || entryID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid entry id"})
		return
	}

	var entry models.RosterEntry
	if err := config.DB.Where("workspace_id = ? AND id = ?", ws.ID, entryID).First(&entry).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Entry not found"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing file"})
		return
	}

	fileID := fmt.Sprintf("%d_%d", entry.ID, time.Now().UnixNano())
	folder := fmt.Sprintf("workspace_%d", ws.ID)

	publicURL, err := utils.UploadPhoto(fileHeader, fileID, folder)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	if err := config.DB.Model(&entry).Updates(map[string]interface{}{
		"has_photo": true,
		"photo_url": publicURL,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot save photo URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Photo uploaded",
		"url":     publicURL,
	})
}
