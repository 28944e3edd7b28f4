package services

import (
	"errors"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
	"gorm.io/gorm"
)

// PokeService ties eligibility, rate limiting and poke persistence
// together. It reads session rows but never mutates identity state.
type PokeService struct {
	DB       *gorm.DB
	Policy   PokePolicy
	Limits   *DailyLimitService
	Notifier Notifier
}

func NewPokeService(db *gorm.DB, policy PokePolicy, notifier Notifier) *PokeService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &PokeService{
		DB:       db,
		Policy:   policy,
		Limits:   NewDailyLimitService(db, policy),
		Notifier: notifier,
	}
}

// SendInput is the payload of one poke. Exactly one of PresetMessageID and
// Message must be set.
type SendInput struct {
	Category        string
	PresetMessageID *uint
	Message         *string
}

// Send re-validates eligibility inside the transaction that creates the
// poke and increments the daily counter, so a stale earlier "can I poke"
// answer can never bypass a rule. Eligibility failures surface as
// *PokeDeniedError with the rule's reason code.
func (s *PokeService) Send(from *models.GuestSession, targetID uint, in SendInput) (*models.Poke, error) {
	hasPreset := in.PresetMessageID != nil
	hasText := in.Message != nil && *in.Message != ""
	if hasPreset == hasText {
		return nil, ErrMessageChoice
	}
	if hasPreset {
		var preset models.PokePresetMessage
		if err := s.DB.First(&preset, *in.PresetMessageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPresetNotFound
			}
			return nil, err
		}
		if in.Category == "" {
			in.Category = preset.Category
		}
	}
	if in.Category == "" {
		in.Category = "classic"
	}

	var poke *models.Poke
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var target models.GuestSession
		err := tx.Where("workspace_id = ? AND id = ?", from.WorkspaceID, targetID).
			First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		// The lock on the daily row serializes concurrent sends from
		// the same session for the rest of this transaction.
		counter, err := s.Limits.GetOrCreateToday(tx, from.ID)
		if err != nil {
			return err
		}

		counters := PairCounters{SentToday: counter.SentCount}
		if s.Policy.PairPerDayEnabled || s.Policy.LifetimeCapEnabled {
			counters.SentToTargetToday, counters.SentToTargetTotal, err = s.pairCounts(tx, from.ID, target.ID)
			if err != nil {
				return err
			}
		}

		verdict := Evaluate(from, &target, counters, s.Policy)
		if !verdict.Allowed {
			return &PokeDeniedError{Reason: verdict.Reason}
		}

		poke = &models.Poke{
			WorkspaceID:     from.WorkspaceID,
			FromSessionID:   from.ID,
			ToSessionID:     target.ID,
			Category:        in.Category,
			PresetMessageID: in.PresetMessageID,
			Message:         in.Message,
		}
		if err := tx.Create(poke).Error; err != nil {
			return err
		}
		return s.Limits.Increment(tx, counter)
	})
	if err != nil {
		return nil, err
	}

	dispatch("poke received", func() error { return s.Notifier.PokeReceived(poke) })
	return poke, nil
}

// BatchEligibility computes, for every target id, the verdict Send would
// produce right now, using three queries regardless of how many targets are
// asked about: one grouped pair aggregate, one today-counter lookup, one
// fetch of the target rows. Unknown ids map to a NOT_FOUND verdict so the
// result can always be indexed by every id requested.
func (s *PokeService) BatchEligibility(from *models.GuestSession, targetIDs []uint) (map[uint]Verdict, error) {
	verdicts := make(map[uint]Verdict, len(targetIDs))
	if len(targetIDs) == 0 {
		return verdicts, nil
	}

	type pairAgg struct {
		ToSessionID uint
		Total       int
		Today       int
	}
	var aggs []pairAgg
	if err := s.DB.Model(&models.Poke{}).
		Select("to_session_id, COUNT(*) AS total, SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END) AS today",
			startOfDay(time.Now())).
		Where("from_session_id = ? AND to_session_id IN ?", from.ID, targetIDs).
		Group("to_session_id").
		Scan(&aggs).Error; err != nil {
		return nil, err
	}
	pairs := make(map[uint]pairAgg, len(aggs))
	for _, a := range aggs {
		pairs[a.ToSessionID] = a
	}

	sentToday, err := s.Limits.SentToday(from.ID)
	if err != nil {
		return nil, err
	}

	var targets []models.GuestSession
	if err := s.DB.
		Where("workspace_id = ? AND id IN ?", from.WorkspaceID, targetIDs).
		Find(&targets).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.GuestSession, len(targets))
	for i := range targets {
		byID[targets[i].ID] = &targets[i]
	}

	for _, id := range targetIDs {
		target, ok := byID[id]
		if !ok {
			verdicts[id] = Verdict{Allowed: false, Reason: ReasonNotFound}
			continue
		}
		agg := pairs[id]
		verdicts[id] = Evaluate(from, target, PairCounters{
			SentToday:         sentToday,
			SentToTargetToday: agg.Today,
			SentToTargetTotal: agg.Total,
		}, s.Policy)
	}
	return verdicts, nil
}

// AddReaction lets the poke's target attach one emoji from the allowed set.
func (s *PokeService) AddReaction(pokeID, sessionID uint, reaction string) (*models.Poke, error) {
	if !s.Policy.ReactionAllowed(reaction) {
		return nil, ErrInvalidReaction
	}
	poke, err := s.Get(pokeID)
	if err != nil {
		return nil, err
	}
	if poke.ToSessionID != sessionID {
		return nil, ErrNotPokeTarget
	}
	if err := s.DB.Model(poke).Update("reaction", reaction).Error; err != nil {
		return nil, err
	}
	poke.Reaction = &reaction

	dispatch("poke reaction", func() error { return s.Notifier.PokeReaction(poke) })
	return poke, nil
}

// MarkRead flags a received poke as read.
func (s *PokeService) MarkRead(pokeID, sessionID uint) error {
	poke, err := s.Get(pokeID)
	if err != nil {
		return err
	}
	if poke.ToSessionID != sessionID {
		return ErrNotPokeTarget
	}
	return s.DB.Model(poke).Update("is_read", true).Error
}

// Get fetches one poke by id.
func (s *PokeService) Get(pokeID uint) (*models.Poke, error) {
	var poke models.Poke
	if err := s.DB.First(&poke, pokeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPokeNotFound
		}
		return nil, err
	}
	return &poke, nil
}

// Inbox lists pokes received by the session, newest first.
func (s *PokeService) Inbox(sessionID uint, page, limit int) ([]models.Poke, int64, error) {
	return s.list("to_session_id", sessionID, page, limit)
}

// Sent lists pokes sent by the session, newest first.
func (s *PokeService) Sent(sessionID uint, page, limit int) ([]models.Poke, int64, error) {
	return s.list("from_session_id", sessionID, page, limit)
}

func (s *PokeService) list(column string, sessionID uint, page, limit int) ([]models.Poke, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := s.DB.Model(&models.Poke{}).Where(column+" = ?", sessionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var pokes []models.Poke
	if err := query.
		Preload("FromSession").
		Preload("PresetMessage").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&pokes).Error; err != nil {
		return nil, 0, err
	}
	return pokes, total, nil
}

func (s *PokeService) pairCounts(tx *gorm.DB, fromID, toID uint) (today int, total int, err error) {
	var counts struct {
		Total int
		Today int
	}
	err = tx.Model(&models.Poke{}).
		Select("COUNT(*) AS total, SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END) AS today",
			startOfDay(time.Now())).
		Where("from_session_id = ? AND to_session_id = ?", fromID, toID).
		Scan(&counts).Error
	if err != nil {
		return 0, 0, err
	}
	return counts.Today, counts.Total, nil
}
