package models

import "time"

type ExportJob struct {
	JobID       string    `gorm:"column:job_id;primaryKey;size:36" json:"job_id"`
	WorkspaceID uint      `gorm:"column:workspace_id;index" json:"workspace_id"`
	Format      string    `gorm:"column:format;size:10" json:"format"` // csv, xlsx
	Status      string    `gorm:"column:status;size:20;default:'queued'" json:"status"`
	FilePath    *string   `gorm:"column:file_path;type:text" json:"file_path,omitempty"`
	ErrorMsg    *string   `gorm:"column:error_msg;type:text" json:"error_msg,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ExportJob) TableName() string {
	return "export_jobs"
}
