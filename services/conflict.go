package services

import (
	"errors"

	"github.com/vnkhanh/yearbook-server/models"
	"gorm.io/gorm"
)

// ConflictService arbitrates contested roster claims. The invariant it
// protects: at most one verified session is bound to a roster entry, both
// before and after every operation here.
type ConflictService struct {
	DB *gorm.DB
}

func NewConflictService(db *gorm.DB) *ConflictService {
	return &ConflictService{DB: db}
}

// PendingClaim is one row of the admin arbitration list: the pending
// session, the entry it contests, and whoever currently holds it.
type PendingClaim struct {
	Session       models.GuestSession  `json:"session"`
	RosterEntry   *models.RosterEntry  `json:"roster_entry"`
	CurrentHolder *models.GuestSession `json:"current_holder"`
}

// ListPendingClaims returns every pending session of a workspace together
// with the contested roster entry and its verified holder, if any.
func (s *ConflictService) ListPendingClaims(workspaceID uint) ([]PendingClaim, error) {
	var pending []models.GuestSession
	if err := s.DB.
		Where("workspace_id = ? AND verification_status = ?", workspaceID, models.VerificationPending).
		Order("created_at ASC").
		Find(&pending).Error; err != nil {
		return nil, err
	}

	claims := make([]PendingClaim, 0, len(pending))
	for _, p := range pending {
		claim := PendingClaim{Session: p}
		if p.RosterEntryID != nil {
			var entry models.RosterEntry
			if err := s.DB.First(&entry, *p.RosterEntryID).Error; err == nil {
				claim.RosterEntry = &entry
			}
			holder, err := s.verifiedHolder(s.DB, workspaceID, *p.RosterEntryID)
			if err != nil {
				return nil, err
			}
			claim.CurrentHolder = holder
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

// Approve resolves a contested claim in the pending session's favor. The
// contested entry row is locked first, then the previous holder is
// unlinked from the entry (not banned, not deleted) and the pending
// session flips to verified, in one transaction.
func (s *ConflictService) Approve(workspaceID, sessionID uint) (*models.GuestSession, error) {
	var approved *models.GuestSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		session, err := s.pendingSession(tx, workspaceID, sessionID)
		if err != nil {
			return err
		}

		if session.RosterEntryID != nil {
			entryID := *session.RosterEntryID
			if _, err := lockRosterEntry(tx, entryID); err != nil {
				return err
			}
			// Re-read: the claim may have been arbitrated or re-pointed
			// at another entry while we waited for the entry lock.
			session, err = s.pendingSession(tx, workspaceID, sessionID)
			if err != nil {
				return err
			}
			if session.RosterEntryID == nil || *session.RosterEntryID != entryID {
				return ErrSessionNotPending
			}

			var holders []models.GuestSession
			if err := tx.
				Where("workspace_id = ? AND roster_entry_id = ? AND verification_status = ?",
					workspaceID, *session.RosterEntryID, models.VerificationVerified).
				Find(&holders).Error; err != nil {
				return err
			}
			if len(holders) > 1 {
				// Locking failed us somewhere; do not guess which
				// holder is the real one.
				return ErrDoubleClaim
			}
			for _, h := range holders {
				if err := tx.Model(&models.GuestSession{}).
					Where("id = ?", h.ID).
					Update("roster_entry_id", nil).Error; err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&models.GuestSession{}).
			Where("id = ?", session.ID).
			Update("verification_status", models.VerificationVerified).Error; err != nil {
			return err
		}
		session.VerificationStatus = models.VerificationVerified
		approved = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Reject settles a contested claim against the pending session: it keeps
// its display name but loses the roster binding. Rejected guests may try
// identifying again; the conflict check then runs fresh.
func (s *ConflictService) Reject(workspaceID, sessionID uint) (*models.GuestSession, error) {
	var rejected *models.GuestSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		session, err := s.pendingSession(tx, workspaceID, sessionID)
		if err != nil {
			return err
		}
		if session.RosterEntryID != nil {
			// Serialize against concurrent claims on the same entry.
			// A deleted entry is fine here; rejection only clears the
			// binding.
			if _, err := lockRosterEntry(tx, *session.RosterEntryID); err != nil &&
				!errors.Is(err, ErrRosterEntryNotFound) {
				return err
			}
			session, err = s.pendingSession(tx, workspaceID, sessionID)
			if err != nil {
				return err
			}
		}
		if err := tx.Model(&models.GuestSession{}).
			Where("id = ?", session.ID).
			Updates(map[string]interface{}{
				"verification_status": models.VerificationRejected,
				"roster_entry_id":     nil,
			}).Error; err != nil {
			return err
		}
		session.VerificationStatus = models.VerificationRejected
		session.RosterEntryID = nil
		rejected = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// IsRosterEntryClaimed reports whether a verified session currently holds
// the entry. Pending and rejected bindings do not count.
func (s *ConflictService) IsRosterEntryClaimed(entryID uint) (bool, error) {
	var count int64
	err := s.DB.Model(&models.GuestSession{}).
		Where("roster_entry_id = ? AND verification_status = ?", entryID, models.VerificationVerified).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 1 {
		return true, ErrDoubleClaim
	}
	return count == 1, nil
}

// pendingSession reads the session without locking it. Arbitration and
// claims serialize on the roster entry row instead; taking session locks
// here as well would invert the lock order against the registrar.
func (s *ConflictService) pendingSession(tx *gorm.DB, workspaceID, sessionID uint) (*models.GuestSession, error) {
	var session models.GuestSession
	err := tx.
		Where("workspace_id = ? AND id = ?", workspaceID, sessionID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.VerificationStatus != models.VerificationPending {
		return nil, ErrSessionNotPending
	}
	return &session, nil
}

func (s *ConflictService) verifiedHolder(db *gorm.DB, workspaceID, entryID uint) (*models.GuestSession, error) {
	var holders []models.GuestSession
	err := db.
		Where("workspace_id = ? AND roster_entry_id = ? AND verification_status = ?",
			workspaceID, entryID, models.VerificationVerified).
		Limit(2).
		Find(&holders).Error
	if err != nil {
		return nil, err
	}
	switch len(holders) {
	case 0:
		return nil, nil
	case 1:
		return &holders[0], nil
	default:
		return nil, ErrDoubleClaim
	}
}
