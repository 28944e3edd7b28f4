package services

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/vnkhanh/yearbook-server/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// A single connection keeps the in-memory database alive and matches
	// the serialized-writer behavior the services assume from sqlite.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.StaffUser{},
		&models.Workspace{},
		&models.RosterEntry{},
		&models.GuestSession{},
		&models.Poke{},
		&models.PokeDailyLimit{},
		&models.PokePresetMessage{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

var workspaceSeq int

func createWorkspace(t *testing.T, db *gorm.DB) *models.Workspace {
	t.Helper()
	workspaceSeq++
	ws := &models.Workspace{Name: "Class of 2026", ShareCode: fmt.Sprintf("share-%d", workspaceSeq)}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return ws
}

func createRosterEntry(t *testing.T, db *gorm.DB, workspaceID uint, name string) *models.RosterEntry {
	t.Helper()
	entry := &models.RosterEntry{WorkspaceID: workspaceID, Name: name, Category: models.RosterCategoryStudent}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("create roster entry: %v", err)
	}
	return entry
}

type guestOpt func(*models.GuestSession)

func banned() guestOpt { return func(s *models.GuestSession) { s.IsBanned = true } }
func extra() guestOpt  { return func(s *models.GuestSession) { s.IsExtra = true } }
func withEmail(email string) guestOpt {
	return func(s *models.GuestSession) { s.Email = &email }
}

var guestSeq int

func createGuest(t *testing.T, db *gorm.DB, workspaceID uint, name string, opts ...guestOpt) *models.GuestSession {
	t.Helper()
	guestSeq++
	session := &models.GuestSession{
		WorkspaceID:        workspaceID,
		Token:              fmt.Sprintf("token-%d-%s", guestSeq, name),
		DisplayName:        name,
		VerificationStatus: models.VerificationVerified,
	}
	for _, opt := range opts {
		opt(session)
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("create guest %s: %v", name, err)
	}
	return session
}

// reload fetches the current row for a session.
func reload(t *testing.T, db *gorm.DB, id uint) *models.GuestSession {
	t.Helper()
	var session models.GuestSession
	if err := db.First(&session, id).Error; err != nil {
		t.Fatalf("reload session %d: %v", id, err)
	}
	return &session
}

// verifiedHolderCount counts verified sessions bound to a roster entry.
func verifiedHolderCount(t *testing.T, db *gorm.DB, entryID uint) int {
	t.Helper()
	var n int64
	if err := db.Model(&models.GuestSession{}).
		Where("roster_entry_id = ? AND verification_status = ?", entryID, models.VerificationVerified).
		Count(&n).Error; err != nil {
		t.Fatalf("count holders: %v", err)
	}
	return int(n)
}
