package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
	"github.com/vnkhanh/yearbook-server/utils"
	"gorm.io/gorm"
)

// RegistrarService turns registration input into guest session rows.
// Registration is never additive for the same email: re-registering with a
// known email updates the existing session instead of creating a second one.
type RegistrarService struct {
	DB *gorm.DB
}

func NewRegistrarService(db *gorm.DB) *RegistrarService {
	return &RegistrarService{DB: db}
}

// IdentificationResult is what an identification registration returns. A
// conflict is not an error: the guest gets a working (pending) session plus
// an advisory message while an admin arbitrates.
type IdentificationResult struct {
	Session         *models.GuestSession
	HasConflict     bool
	ConflictMessage string
}

// RegisterByName registers a guest under a display name only. No roster
// claim is involved, so the session is verified immediately.
func (s *RegistrarService) RegisterByName(workspaceID uint, name string, email, deviceID, ip *string) (*models.GuestSession, error) {
	if err := s.checkWorkspace(workspaceID); err != nil {
		return nil, err
	}

	var session *models.GuestSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		existing, err := s.findByEmail(tx, workspaceID, email)
		if err != nil {
			return err
		}
		if existing != nil {
			s.touch(existing, name, deviceID, ip)
			if err := tx.Save(existing).Error; err != nil {
				return err
			}
			session = existing
			return nil
		}

		created, err := s.create(tx, workspaceID, name, email, deviceID, ip)
		if err != nil {
			return err
		}
		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// RegisterWithIdentification registers a guest who claims (or declines to
// claim) a roster identity. The chosen roster entry row is locked for the
// whole transaction; every claim and every admin arbitration for one entry
// serializes on that lock, so a concurrent claim or approval for the same
// entry cannot interleave with the check below.
func (s *RegistrarService) RegisterWithIdentification(workspaceID uint, nickname string, rosterEntryID *uint, email, deviceID, ip *string) (*IdentificationResult, error) {
	if err := s.checkWorkspace(workspaceID); err != nil {
		return nil, err
	}

	result := &IdentificationResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var entry *models.RosterEntry
		if rosterEntryID != nil {
			e, err := lockRosterEntry(tx, *rosterEntryID)
			if err != nil {
				return err
			}
			if e.WorkspaceID != workspaceID {
				return ErrRosterEntryWrongWorkspace
			}
			entry = e
		}

		session, err := s.findByEmail(tx, workspaceID, email)
		if err != nil {
			return err
		}
		if session == nil {
			session, err = s.create(tx, workspaceID, nickname, email, deviceID, ip)
			if err != nil {
				return err
			}
		} else {
			s.touch(session, nickname, deviceID, ip)
		}

		if entry == nil {
			session.RosterEntryID = nil
			session.VerificationStatus = models.VerificationVerified
			result.Session = session
			return tx.Save(session).Error
		}

		// The entry lock settles the claim state for the rest of the
		// transaction; a plain read of the holders is enough.
		var holders []models.GuestSession
		if err := tx.
			Where("workspace_id = ? AND roster_entry_id = ? AND verification_status = ?",
				workspaceID, entry.ID, models.VerificationVerified).
			Find(&holders).Error; err != nil {
			return err
		}

		claimedByOther := false
		for _, h := range holders {
			if h.ID != session.ID {
				claimedByOther = true
				break
			}
		}

		session.RosterEntryID = &entry.ID
		if claimedByOther {
			session.VerificationStatus = models.VerificationPending
			result.HasConflict = true
			result.ConflictMessage = fmt.Sprintf(
				"%q is already taken by another participant. A teacher will review your claim; you can keep using the yearbook in the meantime.",
				entry.Name)
		} else {
			session.VerificationStatus = models.VerificationVerified
		}
		result.Session = session
		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RegistrarService) checkWorkspace(workspaceID uint) error {
	var ws models.Workspace
	if err := s.DB.Select("id").First(&ws, workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWorkspaceNotFound
		}
		return err
	}
	return nil
}

func (s *RegistrarService) findByEmail(tx *gorm.DB, workspaceID uint, email *string) (*models.GuestSession, error) {
	if email == nil || *email == "" {
		return nil, nil
	}
	var session models.GuestSession
	err := tx.Where("workspace_id = ? AND email = ?", workspaceID, *email).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RegistrarService) create(tx *gorm.DB, workspaceID uint, name string, email, deviceID, ip *string) (*models.GuestSession, error) {
	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	session := &models.GuestSession{
		WorkspaceID:        workspaceID,
		Token:              token,
		DisplayName:        name,
		Email:              email,
		DeviceID:           deviceID,
		LastIP:             ip,
		VerificationStatus: models.VerificationVerified,
		LastActivityAt:     time.Now(),
	}
	if err := tx.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (s *RegistrarService) touch(session *models.GuestSession, name string, deviceID, ip *string) {
	if name != "" {
		session.DisplayName = name
	}
	if deviceID != nil {
		session.DeviceID = deviceID
	}
	if ip != nil {
		session.LastIP = ip
	}
	session.LastActivityAt = time.Now()
}
