package controllers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/vnkhanh/yearbook-server/config"
	"github.com/vnkhanh/yearbook-server/middleware"
	"github.com/vnkhanh/yearbook-server/models"
)

type ExportRequest struct {
	Format string `json:"format"` // csv | xlsx
}

// POST /api/workspaces/:id/export
func CreateExport(c *gin.Context) {
	ws := c.MustGet(middleware.CtxWorkspace).(models.Workspace)

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}
	if req.Format == "" {
		req.Format = "csv"
	}
	if req.Format != "csv" && req.Format != "xlsx" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Format must be csv or xlsx"})
		return
	}

	jobID := uuid.New().String()
	job := models.ExportJob{
		JobID:       jobID,
		WorkspaceID: ws.ID,
		Format:      req.Format,
		Status:      "queued",
	}
	config.DB.Create(&job)

	go processExportJob(jobID)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": "queued",
	})
}

// GET /api/exports/:job_id
func GetExport(c *gin.Context) {
	jobID := c.Param("job_id")
	var job models.ExportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "DB error"})
		return
	}

	if job.Status == "done" && job.FilePath != nil {
		c.FileAttachment(*job.FilePath, path.Base(*job.FilePath))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
		"error":  job.ErrorMsg,
	})
}

func failExportJob(job *models.ExportJob, err error) {
	em := err.Error()
	config.DB.Model(job).Updates(map[string]interface{}{"status": "failed", "error_msg": em})
}

func processExportJob(jobID string) {
	var job models.ExportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		return
	}
	config.DB.Model(&job).Update("status", "processing")

	outDir := "./exports"
	os.MkdirAll(outDir, 0755)

	var sessions []models.GuestSession
	if err := config.DB.
		Preload("RosterEntry").
		Where("workspace_id = ?", job.WorkspaceID).
		Order("display_name ASC").
		Find(&sessions).Error; err != nil {
		failExportJob(&job, err)
		return
	}

	header := []string{"id", "display_name", "email", "status", "banned", "staff", "roster_name", "points", "last_activity"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		email := ""
		if s.Email != nil {
			email = *s.Email
		}
		rosterName := ""
		if s.RosterEntry != nil {
			rosterName = s.RosterEntry.Name
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.ID),
			s.DisplayName,
			email,
			s.VerificationStatus,
			fmt.Sprintf("%t", s.IsBanned),
			fmt.Sprintf("%t", s.IsExtra),
			rosterName,
			fmt.Sprintf("%d", s.Points),
			s.LastActivityAt.Format("2006-01-02 15:04"),
		})
	}

	filename := fmt.Sprintf("guests_%s.%s", job.JobID, job.Format)
	outPath := path.Join(outDir, filename)

	var err error
	if job.Format == "xlsx" {
		err = writeExportXLSX(outPath, header, rows)
	} else {
		err = writeExportCSV(outPath, header, rows)
	}
	if err != nil {
		failExportJob(&job, err)
		return
	}

	fp := outPath
	config.DB.Model(&job).Updates(map[string]interface{}{"status": "done", "file_path": fp})
}

func writeExportCSV(outPath string, header []string, rows [][]string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeExportXLSX(outPath string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, cell := range header {
		ref, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, ref, cell)
	}
	for r, row := range rows {
		for i, cell := range row {
			ref, _ := excelize.CoordinatesToCellName(i+1, r+2)
			f.SetCellValue(sheet, ref, cell)
		}
	}
	return f.SaveAs(outPath)
}
