package services

import (
	"errors"
	"testing"
	"time"

	"github.com/vnkhanh/yearbook-server/models"
)

// channelMailer hands the mailed restore token to the test.
type channelMailer struct {
	tokens chan string
}

func newChannelMailer() *channelMailer {
	return &channelMailer{tokens: make(chan string, 1)}
}

func (m *channelMailer) SendRestoreLink(email, displayName, token string) error {
	m.tokens <- token
	return nil
}

func (m *channelMailer) wait(t *testing.T) string {
	t.Helper()
	select {
	case token := <-m.tokens:
		return token
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the restore mail")
		return ""
	}
}

func TestResolveSessionByToken(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	other := createWorkspace(t, db)
	guest := createGuest(t, db, ws.ID, "Alice")
	bannedGuest := createGuest(t, db, ws.ID, "Banned", banned())
	guests := NewGuestService(db, nil)

	got, err := guests.ResolveSessionByToken(guest.Token, ws.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != guest.ID {
		t.Errorf("resolved session %d, want %d", got.ID, guest.ID)
	}

	// Fails closed in every other case.
	for name, tc := range map[string]struct {
		token string
		ws    uint
	}{
		"empty token":     {"", ws.ID},
		"unknown token":   {"no-such-token", ws.ID},
		"wrong workspace": {guest.Token, other.ID},
		"banned session":  {bannedGuest.Token, ws.ID},
	} {
		if _, err := guests.ResolveSessionByToken(tc.token, tc.ws); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("%s: err = %v, want ErrSessionNotFound", name, err)
		}
	}
}

func TestIsRegularMember(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	guests := NewGuestService(db, nil)

	regular := createGuest(t, db, ws.ID, "Regular")
	bannedGuest := createGuest(t, db, ws.ID, "Banned", banned())
	staff := createGuest(t, db, ws.ID, "Staff", extra())
	pending := createGuest(t, db, ws.ID, "Pending")
	db.Model(pending).Update("verification_status", models.VerificationPending)

	cases := []struct {
		name string
		id   uint
		want bool
	}{
		{"regular", regular.ID, true},
		{"banned", bannedGuest.ID, false},
		{"staff", staff.ID, false},
		{"pending", pending.ID, false},
	}
	for _, tc := range cases {
		got, err := guests.IsRegularMember(tc.id)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: regular = %v, want %v", tc.name, got, tc.want)
		}
	}

	if _, err := guests.IsRegularMember(9999); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown session: err = %v, want ErrSessionNotFound", err)
	}
}

func TestBanAndUnban(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	entry := createRosterEntry(t, db, ws.ID, "Jane Doe")
	guests := NewGuestService(db, nil)

	registrar := NewRegistrarService(db)
	result, err := registrar.RegisterWithIdentification(ws.ID, "Jane", &entry.ID, nil, nil, nil)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	session := result.Session

	bannedSession, err := guests.SetBanned(ws.ID, session.ID, true)
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if !bannedSession.IsBanned {
		t.Error("session not banned")
	}
	// Ban hides the session from token auth but keeps its identity.
	if _, err := guests.ResolveSessionByToken(session.Token, ws.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("banned resolve: err = %v, want ErrSessionNotFound", err)
	}
	kept := reload(t, db, session.ID)
	if kept.RosterEntryID == nil || *kept.RosterEntryID != entry.ID {
		t.Error("ban must not strip the roster binding")
	}

	unbanned, err := guests.SetBanned(ws.ID, session.ID, false)
	if err != nil {
		t.Fatalf("unban: %v", err)
	}
	if unbanned.IsBanned {
		t.Error("session still banned")
	}
	if _, err := guests.ResolveSessionByToken(session.Token, ws.ID); err != nil {
		t.Errorf("unbanned resolve: %v", err)
	}
}

func TestSetExtra(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	guest := createGuest(t, db, ws.ID, "Helper")
	guests := NewGuestService(db, nil)

	marked, err := guests.SetExtra(ws.ID, guest.ID, true)
	if err != nil {
		t.Fatalf("set extra: %v", err)
	}
	if !marked.IsExtra {
		t.Error("session not marked extra")
	}

	regular, err := guests.IsRegularMember(guest.ID)
	if err != nil {
		t.Fatalf("regular check: %v", err)
	}
	if regular {
		t.Error("extra sessions are not regular members")
	}
}

func TestListByStatus(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	createGuest(t, db, ws.ID, "A")
	createGuest(t, db, ws.ID, "B")
	pending := createGuest(t, db, ws.ID, "C")
	db.Model(pending).Update("verification_status", models.VerificationPending)
	guests := NewGuestService(db, nil)

	all, total, err := guests.List(ws.ID, "", 1, 20)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("all = %d rows (total %d), want 3", len(all), total)
	}

	onlyPending, total, err := guests.List(ws.ID, models.VerificationPending, 1, 20)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if total != 1 || len(onlyPending) != 1 || onlyPending[0].ID != pending.ID {
		t.Errorf("pending list wrong: %d rows, total %d", len(onlyPending), total)
	}
}

func TestHeartbeat(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	guest := createGuest(t, db, ws.ID, "Alive")
	guests := NewGuestService(db, nil)

	before := reload(t, db, guest.ID).LastActivityAt
	time.Sleep(10 * time.Millisecond)
	if err := guests.Heartbeat(guest.ID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	after := reload(t, db, guest.ID).LastActivityAt
	if !after.After(before) {
		t.Errorf("last activity did not advance: %v -> %v", before, after)
	}
}

func TestRestoreTokenRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	guest := createGuest(t, db, ws.ID, "Alice", withEmail("alice@x.com"))
	mailer := newChannelMailer()
	guests := NewGuestService(db, mailer)

	if err := guests.IssueRestoreToken(ws.ID, "alice@x.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	token := mailer.wait(t)
	if token == "" {
		t.Fatal("empty restore token mailed")
	}
	if stored := reload(t, db, guest.ID); stored.RestoreTokenHash != nil && *stored.RestoreTokenHash == token {
		t.Error("plaintext token must not be stored")
	}

	restored, err := guests.RedeemRestoreToken(ws.ID, "alice@x.com", token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if restored.ID != guest.ID {
		t.Errorf("restored session %d, want %d", restored.ID, guest.ID)
	}

	// Single use.
	if _, err := guests.RedeemRestoreToken(ws.ID, "alice@x.com", token); !errors.Is(err, ErrRestoreTokenInvalid) {
		t.Errorf("second redeem: err = %v, want ErrRestoreTokenInvalid", err)
	}
}

func TestRestoreTokenRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)
	ws := createWorkspace(t, db)
	guest := createGuest(t, db, ws.ID, "Alice", withEmail("alice@x.com"))
	mailer := newChannelMailer()
	guests := NewGuestService(db, mailer)

	// Unknown emails are silently accepted and mail nothing.
	if err := guests.IssueRestoreToken(ws.ID, "nobody@x.com"); err != nil {
		t.Fatalf("issue unknown: %v", err)
	}
	select {
	case <-mailer.tokens:
		t.Fatal("no mail expected for an unknown email")
	case <-time.After(100 * time.Millisecond):
	}

	if err := guests.IssueRestoreToken(ws.ID, "alice@x.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	mailer.wait(t)

	if _, err := guests.RedeemRestoreToken(ws.ID, "alice@x.com", "wrong-token"); !errors.Is(err, ErrRestoreTokenInvalid) {
		t.Errorf("wrong token: err = %v, want ErrRestoreTokenInvalid", err)
	}
	if _, err := guests.RedeemRestoreToken(ws.ID, "nobody@x.com", "whatever"); !errors.Is(err, ErrRestoreTokenInvalid) {
		t.Errorf("unknown email: err = %v, want ErrRestoreTokenInvalid", err)
	}

	// Expired tokens are dead even when the hash still matches.
	expired := time.Now().Add(-time.Minute)
	if err := db.Model(guest).Update("restore_expires_at", expired).Error; err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := guests.RedeemRestoreToken(ws.ID, "alice@x.com", "anything"); !errors.Is(err, ErrRestoreTokenInvalid) {
		t.Errorf("expired token: err = %v, want ErrRestoreTokenInvalid", err)
	}
}
