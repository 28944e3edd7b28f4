package services

import (
	"errors"
	"log"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
	"github.com/vnkhanh/yearbook-server/utils"
	"gorm.io/gorm"
)

// RestoreMailer sends the session-restore link. Failures are logged and
// swallowed; losing a mail must not fail the operation that issued it.
type RestoreMailer interface {
	SendRestoreLink(email, displayName, token string) error
}

// GuestService is the query surface the rest of the server (forum, polls,
// newsfeed, gamification) uses to consult guest identity.
type GuestService struct {
	DB     *gorm.DB
	Mailer RestoreMailer
}

func NewGuestService(db *gorm.DB, mailer RestoreMailer) *GuestService {
	return &GuestService{DB: db, Mailer: mailer}
}

const restoreTokenTTL = 24 * time.Hour

// ResolveSessionByToken resolves the bearer token to a session. It fails
// closed: banned or unknown sessions are invisible to this call.
func (s *GuestService) ResolveSessionByToken(token string, workspaceID uint) (*models.GuestSession, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	var session models.GuestSession
	err := s.DB.Where("token = ? AND workspace_id = ?", token, workspaceID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.IsBanned {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Get fetches a session by id regardless of ban state (admin surface).
func (s *GuestService) Get(workspaceID, sessionID uint) (*models.GuestSession, error) {
	var session models.GuestSession
	err := s.DB.Where("workspace_id = ? AND id = ?", workspaceID, sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *GuestService) IsBanned(sessionID uint) (bool, error) {
	var session models.GuestSession
	if err := s.DB.Select("is_banned").First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrSessionNotFound
		}
		return false, err
	}
	return session.IsBanned, nil
}

func (s *GuestService) IsVerified(sessionID uint) (bool, error) {
	var session models.GuestSession
	if err := s.DB.Select("verification_status").First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrSessionNotFound
		}
		return false, err
	}
	return session.VerificationStatus == models.VerificationVerified, nil
}

// IsRegularMember reports whether the session counts as an ordinary poking
// and voting member: verified, not banned, not staff.
func (s *GuestService) IsRegularMember(sessionID uint) (bool, error) {
	var session models.GuestSession
	if err := s.DB.Select("verification_status, is_banned, is_extra").First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrSessionNotFound
		}
		return false, err
	}
	return session.VerificationStatus == models.VerificationVerified &&
		!session.IsBanned && !session.IsExtra, nil
}

// Heartbeat bumps the session's last-activity timestamp.
func (s *GuestService) Heartbeat(sessionID uint) error {
	return s.DB.Model(&models.GuestSession{}).
		Where("id = ?", sessionID).
		Update("last_activity_at", time.Now()).Error
}

// SetBanned bans or unbans a session. Identity is preserved either way.
func (s *GuestService) SetBanned(workspaceID, sessionID uint, banned bool) (*models.GuestSession, error) {
	session, err := s.Get(workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Model(session).Update("is_banned", banned).Error; err != nil {
		return nil, err
	}
	session.IsBanned = banned
	return session, nil
}

// SetExtra marks a session as staff ("extra") or back to regular.
func (s *GuestService) SetExtra(workspaceID, sessionID uint, extra bool) (*models.GuestSession, error) {
	session, err := s.Get(workspaceID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.Model(session).Update("is_extra", extra).Error; err != nil {
		return nil, err
	}
	session.IsExtra = extra
	return session, nil
}

// List returns a workspace's sessions with the usual page/limit
// pagination, optionally filtered by verification status.
func (s *GuestService) List(workspaceID uint, status string, page, limit int) ([]models.GuestSession, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := s.DB.Model(&models.GuestSession{}).Where("workspace_id = ?", workspaceID)
	if status != "" {
		query = query.Where("verification_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []models.GuestSession
	if err := query.
		Preload("RosterEntry").
		Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// IssueRestoreToken creates a fresh expiring restore token for the session
// matching the email and mails it out. Only the bcrypt hash is stored. The
// response is the same whether or not the email is known.
func (s *GuestService) IssueRestoreToken(workspaceID uint, email string) error {
	var session models.GuestSession
	err := s.DB.Where("workspace_id = ? AND email = ? AND is_banned = ?", workspaceID, email, false).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return err
	}
	hash, err := utils.HashRestoreToken(token)
	if err != nil {
		return err
	}
	expires := time.Now().Add(restoreTokenTTL)
	if err := s.DB.Model(&session).Updates(map[string]interface{}{
		"restore_token_hash": hash,
		"restore_expires_at": expires,
	}).Error; err != nil {
		return err
	}

	if s.Mailer != nil {
		dispatch("restore mail", func() error {
			return s.Mailer.SendRestoreLink(email, session.DisplayName, token)
		})
	} else {
		log.Printf("no mailer configured, restore token for session %d not delivered", session.ID)
	}
	return nil
}

// RedeemRestoreToken exchanges a mailed restore token for the session it
// belongs to. The token is single use.
func (s *GuestService) RedeemRestoreToken(workspaceID uint, email, token string) (*models.GuestSession, error) {
	var session models.GuestSession
	err := s.DB.Where("workspace_id = ? AND email = ? AND is_banned = ?", workspaceID, email, false).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRestoreTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if session.RestoreTokenHash == nil || session.RestoreExpiresAt == nil ||
		session.RestoreExpiresAt.Before(time.Now()) ||
		!utils.VerifyRestoreToken(*session.RestoreTokenHash, token) {
		return nil, ErrRestoreTokenInvalid
	}

	if err := s.DB.Model(&session).Updates(map[string]interface{}{
		"restore_token_hash": nil,
		"restore_expires_at": nil,
		"last_activity_at":   time.Now(),
	}).Error; err != nil {
		return nil, err
	}
	session.RestoreTokenHash = nil
	session.RestoreExpiresAt = nil
	return &session, nil
}
