package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
)

// recordingNotifier captures dispatched notifications on a channel so tests
// can wait for the fire-and-forget goroutine.
type recordingNotifier struct {
	received chan uint
	reacted  chan uint
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		received: make(chan uint, 16),
		reacted:  make(chan uint, 16),
	}
}

func (n *recordingNotifier) PokeReceived(poke *models.Poke) error {
	n.received <- poke.ID
	return nil
}

func (n *recordingNotifier) PokeReaction(poke *models.Poke) error {
	n.reacted <- poke.ID
	return nil
}

func waitFor(t *testing.T, ch chan uint, what string) uint {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return 0
	}
}

func textInput(msg string) SendInput {
	return SendInput{Message: &msg}
}

func TestSendPoke(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	notifier := newRecordingNotifier()
	pokes := NewPokeService(db, DefaultPokePolicy(), notifier)

	poke, err := pokes.Send(alice, bob.ID, textInput("hey bob"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if poke.FromSessionID != alice.ID || poke.ToSessionID != bob.ID {
		t.Errorf("poke pair = (%d,%d), want (%d,%d)", poke.FromSessionID, poke.ToSessionID, alice.ID, bob.ID)
	}
	if poke.Category != "classic" {
		t.Errorf("category = %q, want the default", poke.Category)
	}
	if poke.IsRead {
		t.Error("new poke must start unread")
	}

	sent, err := pokes.Limits.SentToday(alice.ID)
	if err != nil {
		t.Fatalf("sent today: %v", err)
	}
	if sent != 1 {
		t.Errorf("counter = %d after one send, want 1", sent)
	}

	if got := waitFor(t, notifier.received, "receive notification"); got != poke.ID {
		t.Errorf("notified poke = %d, want %d", got, poke.ID)
	}
}

func TestSendPokeWithPreset(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	preset := &models.PokePresetMessage{Category: "meme", Text: "you up?"}
	if err := db.Create(preset).Error; err != nil {
		t.Fatalf("create preset: %v", err)
	}
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	poke, err := pokes.Send(alice, bob.ID, SendInput{PresetMessageID: &preset.ID})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if poke.PresetMessageID == nil || *poke.PresetMessageID != preset.ID {
		t.Error("poke not linked to the preset")
	}
	if poke.Category != "meme" {
		t.Errorf("category = %q, want the preset's", poke.Category)
	}
}

func TestSendRequiresExactlyOneMessage(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	if _, err := pokes.Send(alice, bob.ID, SendInput{}); !errors.Is(err, ErrMessageChoice) {
		t.Errorf("neither set: err = %v, want ErrMessageChoice", err)
	}

	presetID := uint(1)
	msg := "hi"
	both := SendInput{PresetMessageID: &presetID, Message: &msg}
	if _, err := pokes.Send(alice, bob.ID, both); !errors.Is(err, ErrMessageChoice) {
		t.Errorf("both set: err = %v, want ErrMessageChoice", err)
	}

	missing := uint(9999)
	if _, err := pokes.Send(alice, bob.ID, SendInput{PresetMessageID: &missing}); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("unknown preset: err = %v, want ErrPresetNotFound", err)
	}
}

func TestSendDenialReasons(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bannedGuy := createGuest(t, db, ws.ID, "Banned", banned())
	teacher := createGuest(t, db, ws.ID, "Teacher", extra())
	outcast := createGuest(t, db, ws.ID, "Outcast", banned())
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	cases := []struct {
		name   string
		from   *models.GuestSession
		to     uint
		reason string
	}{
		{"self", alice, alice.ID, ReasonSelfPoke},
		{"sender banned", outcast, alice.ID, ReasonSenderBanned},
		{"target banned", alice, bannedGuy.ID, ReasonTargetBanned},
		{"target staff", alice, teacher.ID, ReasonTargetIsStaff},
	}
	for _, tc := range cases {
		_, err := pokes.Send(tc.from, tc.to, textInput("nope"))
		reason, ok := DeniedReason(err)
		if !ok {
			t.Errorf("%s: err = %v, want a denial", tc.name, err)
			continue
		}
		if reason != tc.reason {
			t.Errorf("%s: reason = %s, want %s", tc.name, reason, tc.reason)
		}
	}

	// Denied sends never count against the limit.
	sent, err := pokes.Limits.SentToday(alice.ID)
	if err != nil {
		t.Fatalf("sent today: %v", err)
	}
	if sent != 0 {
		t.Errorf("counter = %d after only denials, want 0", sent)
	}
}

func TestSendTargetMustShareWorkspace(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	other := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	stranger := createGuest(t, db, other.ID, "Stranger")
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	if _, err := pokes.Send(alice, stranger.ID, textInput("hi")); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestDailyLimitBoundary(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	policy := DefaultPokePolicy()
	pokes := NewPokeService(db, policy, nil)

	targets := make([]*models.GuestSession, 0, policy.DailyLimit+1)
	for i := 0; i <= policy.DailyLimit; i++ {
		targets = append(targets, createGuest(t, db, ws.ID, fmt.Sprintf("Target %d", i)))
	}

	for i := 0; i < policy.DailyLimit; i++ {
		if _, err := pokes.Send(alice, targets[i].ID, textInput("hey")); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
	}

	_, err := pokes.Send(alice, targets[policy.DailyLimit].ID, textInput("one too many"))
	reason, ok := DeniedReason(err)
	if !ok || reason != ReasonDailyLimitReached {
		t.Fatalf("send %d: err = %v, want DAILY_LIMIT_REACHED", policy.DailyLimit+1, err)
	}

	sent, err := pokes.Limits.SentToday(alice.ID)
	if err != nil {
		t.Fatalf("sent today: %v", err)
	}
	if sent != policy.DailyLimit {
		t.Errorf("counter = %d, want exactly %d", sent, policy.DailyLimit)
	}
}

func TestConcurrentSendsNeverExceedLimit(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	policy := DefaultPokePolicy()
	pokes := NewPokeService(db, policy, nil)

	const attempts = 12
	targets := make([]*models.GuestSession, attempts)
	for i := range targets {
		targets[i] = createGuest(t, db, ws.ID, fmt.Sprintf("Target %d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = pokes.Send(alice, targets[i].ID, textInput("race"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if reason, ok := DeniedReason(err); !ok || reason != ReasonDailyLimitReached {
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}
	if succeeded != policy.DailyLimit {
		t.Errorf("successful sends = %d, want %d", succeeded, policy.DailyLimit)
	}

	var count int64
	db.Model(&models.Poke{}).Where("from_session_id = ?", alice.ID).Count(&count)
	if int(count) != policy.DailyLimit {
		t.Errorf("poke rows = %d, want %d", count, policy.DailyLimit)
	}
	sent, err := pokes.Limits.SentToday(alice.ID)
	if err != nil {
		t.Fatalf("sent today: %v", err)
	}
	if sent != int(count) {
		t.Errorf("counter = %d but poke rows = %d", sent, count)
	}
}

func TestBatchEligibility(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	bannedGuy := createGuest(t, db, ws.ID, "Banned", banned())
	teacher := createGuest(t, db, ws.ID, "Teacher", extra())
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	unknown := uint(9999)
	ids := []uint{alice.ID, bob.ID, bannedGuy.ID, teacher.ID, unknown}
	verdicts, err := pokes.BatchEligibility(alice, ids)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(verdicts) != len(ids) {
		t.Fatalf("verdicts = %d, want one per requested id", len(verdicts))
	}

	want := map[uint]string{
		alice.ID:     ReasonSelfPoke,
		bob.ID:       "",
		bannedGuy.ID: ReasonTargetBanned,
		teacher.ID:   ReasonTargetIsStaff,
		unknown:      ReasonNotFound,
	}
	for id, reason := range want {
		v, ok := verdicts[id]
		if !ok {
			t.Errorf("id %d missing from verdicts", id)
			continue
		}
		if reason == "" && !v.Allowed {
			t.Errorf("id %d: denied %s, want allowed", id, v.Reason)
		}
		if reason != "" && (v.Allowed || v.Reason != reason) {
			t.Errorf("id %d: verdict = %+v, want reason %s", id, v, reason)
		}
	}
}

func TestBatchMatchesSingleSend(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	// Mixed bag of flag combinations.
	targets := []*models.GuestSession{
		createGuest(t, db, ws.ID, "Plain"),
		createGuest(t, db, ws.ID, "Banned", banned()),
		createGuest(t, db, ws.ID, "Staff", extra()),
		createGuest(t, db, ws.ID, "Banned staff", banned(), extra()),
		createGuest(t, db, ws.ID, "Plain 2"),
	}
	ids := make([]uint, len(targets))
	for i, tgt := range targets {
		ids[i] = tgt.ID
	}

	verdicts, err := pokes.BatchEligibility(alice, ids)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	for _, tgt := range targets {
		_, sendErr := pokes.Send(alice, tgt.ID, textInput("consistency"))
		v := verdicts[tgt.ID]
		if v.Allowed {
			if sendErr != nil {
				t.Errorf("%s: batch said allowed but send failed: %v", tgt.DisplayName, sendErr)
			}
			continue
		}
		reason, ok := DeniedReason(sendErr)
		if !ok {
			t.Errorf("%s: batch said %s but send gave %v", tgt.DisplayName, v.Reason, sendErr)
			continue
		}
		if reason != v.Reason {
			t.Errorf("%s: batch reason %s, send reason %s", tgt.DisplayName, v.Reason, reason)
		}
	}
}

func TestBatchWithPairRuleEnabled(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	carol := createGuest(t, db, ws.ID, "Carol")

	policy := DefaultPokePolicy()
	policy.PairPerDayEnabled = true
	pokes := NewPokeService(db, policy, nil)

	if _, err := pokes.Send(alice, bob.ID, textInput("first")); err != nil {
		t.Fatalf("send: %v", err)
	}

	verdicts, err := pokes.BatchEligibility(alice, []uint{bob.ID, carol.ID})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if v := verdicts[bob.ID]; v.Allowed || v.Reason != ReasonPairAlreadyToday {
		t.Errorf("bob verdict = %+v, want PAIR_ALREADY_TODAY", v)
	}
	if v := verdicts[carol.ID]; !v.Allowed {
		t.Errorf("carol verdict = %+v, want allowed", v)
	}

	if _, err := pokes.Send(alice, bob.ID, textInput("again")); err == nil {
		t.Error("second poke to the same target should be denied today")
	}
}

func TestReactions(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	notifier := newRecordingNotifier()
	pokes := NewPokeService(db, DefaultPokePolicy(), notifier)

	poke, err := pokes.Send(alice, bob.ID, textInput("hey"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, notifier.received, "receive notification")

	if _, err := pokes.AddReaction(poke.ID, bob.ID, "🔥"); !errors.Is(err, ErrInvalidReaction) {
		t.Errorf("off-palette emoji: err = %v, want ErrInvalidReaction", err)
	}
	if _, err := pokes.AddReaction(poke.ID, alice.ID, "👍"); !errors.Is(err, ErrNotPokeTarget) {
		t.Errorf("sender reacting: err = %v, want ErrNotPokeTarget", err)
	}

	updated, err := pokes.AddReaction(poke.ID, bob.ID, "👍")
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if updated.Reaction == nil || *updated.Reaction != "👍" {
		t.Error("reaction not stored")
	}
	if got := waitFor(t, notifier.reacted, "reaction notification"); got != poke.ID {
		t.Errorf("notified poke = %d, want %d", got, poke.ID)
	}
}

func TestMarkRead(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	poke, err := pokes.Send(alice, bob.ID, textInput("hey"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := pokes.MarkRead(poke.ID, alice.ID); !errors.Is(err, ErrNotPokeTarget) {
		t.Errorf("sender marking read: err = %v, want ErrNotPokeTarget", err)
	}
	if err := pokes.MarkRead(poke.ID, bob.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	got, err := pokes.Get(poke.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsRead {
		t.Error("poke still unread")
	}
	if err := pokes.MarkRead(9999, bob.ID); !errors.Is(err, ErrPokeNotFound) {
		t.Errorf("unknown poke: err = %v, want ErrPokeNotFound", err)
	}
}

func TestInboxAndSent(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	alice := createGuest(t, db, ws.ID, "Alice")
	bob := createGuest(t, db, ws.ID, "Bob")
	carol := createGuest(t, db, ws.ID, "Carol")
	pokes := NewPokeService(db, DefaultPokePolicy(), nil)

	if _, err := pokes.Send(alice, bob.ID, textInput("one")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := pokes.Send(carol, bob.ID, textInput("two")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := pokes.Send(bob, alice.ID, textInput("back")); err != nil {
		t.Fatalf("send: %v", err)
	}

	inbox, total, err := pokes.Inbox(bob.ID, 1, 20)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if total != 2 || len(inbox) != 2 {
		t.Errorf("inbox = %d rows (total %d), want 2", len(inbox), total)
	}

	sent, total, err := pokes.Sent(bob.ID, 1, 20)
	if err != nil {
		t.Fatalf("sent: %v", err)
	}
	if total != 1 || len(sent) != 1 {
		t.Fatalf("sent = %d rows (total %d), want 1", len(sent), total)
	}
	if sent[0].ToSessionID != alice.ID {
		t.Errorf("sent poke targets %d, want %d", sent[0].ToSessionID, alice.ID)
	}
}
