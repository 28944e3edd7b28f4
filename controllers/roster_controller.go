package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/middleware"
	"github.com/vnkhanh/yearbook-server/models"
	"github.com/vnkhanh/yearbook-server/services"
)

type rosterEntryReq struct {
	Name        string  `json:"name" binding:"required,min=1"`
	Category    string  `json:"category"`
	ExternalRef *string `json:"external_ref"`
}

func AddRosterEntry(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	var req rosterEntryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}
	if req.Category == "" {
		req.Category = models.RosterCategoryStudent
	}

	entry := models.RosterEntry{
		WorkspaceID: ws.ID,
		Name:        req.Name,
		Category:    req.Category,
		ExternalRef: req.ExternalRef,
	}
	if err := config.DB.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot create roster entry"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

// ListRosterEntries returns the workspace roster with a claimed flag per
// entry, computed from verified bindings only.
func ListRosterEntries(c *gin.Context) {
	// Mounted both under /workspaces/:id and the guest group's
	// /guest/:workspaceId, so the entry point during registration can
	// show the roster without staff credentials.
	param := c.Param("id")
	if param == "" {
		param = c.Param("workspaceId")
	}
	workspaceID, err := strconv.Atoi(param)
	if err != nil || workspaceID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid workspace id"})
		return
	}

	var entries []models.RosterEntry
	query := config.DB.Where("workspace_id = ?", workspaceID)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Order("name ASC").Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot list roster"})
		return
	}

	// One grouped query instead of one per entry.
	type claimRow struct {
		RosterEntryID uint
		N             int
	}
	var claims []claimRow
	config.DB.Model(&models.GuestSession{}).
		Select("roster_entry_id, COUNT(*) AS n").
		Where("workspace_id = ? AND verification_status = ? AND roster_entry_id IS NOT NULL",
			workspaceID, models.VerificationVerified).
		Group("roster_entry_id").
		Scan(&claims)
	claimed := make(map[uint]bool, len(claims))
	for _, cl := range claims {
		claimed[cl.RosterEntryID] = cl.N > 0
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":           e.ID,
			"name":         e.Name,
			"category":     e.Category,
			"external_ref": e.ExternalRef,
			"has_photo":    e.HasPhoto,
			"photo_url":    e.PhotoURL,
			"claimed":      claimed[e.ID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": out, "total": len(out)})
}

func DeleteRosterEntry(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	entryID, err := strconv.Atoi(c.Param("entryId"))
	if err != nil || entryID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid entry id"})
		return
	}

	conflicts := services.NewConflictService(config.DB)
	isClaimed, err := conflicts.IsRosterEntryClaimed(uint(entryID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot check claims"})
		return
	}
	if isClaimed {
		c.JSON(http.StatusConflict, gin.H{"message": "Entry is claimed by a verified participant"})
		return
	}

	result := config.DB.Where("workspace_id = ?", ws.ID).Delete(&models.RosterEntry{}, entryID)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Cannot delete entry"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Entry not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}

// ImportRoster reads an .xlsx upload (columns: name, category, external
// ref) and upserts the workspace roster from its first sheet. The header
// row is skipped when present.
func ImportRoster(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing file"})
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Cannot open file"})
		return
	}
	defer src.Close()

	f, err := excelize.OpenReader(src)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "File is not a valid .xlsx"})
		return
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Workbook has no sheets"})
		return
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Cannot read sheet"})
		return
	}

	imported, skipped := 0, 0
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			skipped++
			continue
		}
		name := row[0]
		if i == 0 && (name == "name" || name == "Name") {
			continue
		}

		category := models.RosterCategoryStudent
		if len(row) > 1 && row[1] != "" {
			category = row[1]
		}
		var externalRef *string
		if len(row) > 2 && row[2] != "" {
			ref := row[2]
			externalRef = &ref
		}

		// Upsert by (workspace, name) so re-importing the same sheet
		// does not duplicate the roster.
		var entry models.RosterEntry
		err := config.DB.Where("workspace_id = ? AND name = ?", ws.ID, name).First(&entry).Error
		if err == nil {
			config.DB.Model(&entry).Updates(map[string]interface{}{
				"category":     category,
				"external_ref": externalRef,
			})
		} else {
			entry = models.RosterEntry{
				WorkspaceID: ws.ID,
				Name:        name,
				Category:    category,
				ExternalRef: externalRef,
			}
			if err := config.DB.Create(&entry).Error; err != nil {
				skipped++
				continue
			}
		}
		imported++
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Roster imported",
		"imported": imported,
		"skipped":  skipped,
	})
}
