package share

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pulsepoint/pulsepoint/internal/instrument"
	"github.com/pulsepoint/pulsepoint/internal/model"
)

// memLinkStore is an in-memory LinkStore for engine tests.
type memLinkStore struct {
	links   map[string]model.ShareLink
	saveErr error
	getErr  error
}

func newMemLinkStore() *memLinkStore {
	return &memLinkStore{links: make(map[string]model.ShareLink)}
}

func (m *memLinkStore) SaveShareLink(l model.ShareLink) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.links[l.ID] = l
	return nil
}

func (m *memLinkStore) GetShareLink(id string) (*model.ShareLink, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	l, ok := m.links[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func newTestEngine(store LinkStore, now time.Time) *Engine {
	e := NewEngine(store)
	e.now = func() time.Time { return now }
	return e
}

func TestCreateLinkDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemLinkStore()
	e := newTestEngine(store, now)

	link, err := e.CreateLink(model.TypePCL5, "Jordan R.", model.ShareOptions{})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if link.ID == "" {
		t.Error("expected non-empty link ID")
	}
	if len(link.ID) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(link.ID))
	}
	if link.Options.ExpirationDays != DefaultExpirationDays {
		t.Errorf("expected default expiration %d days, got %d", DefaultExpirationDays, link.Options.ExpirationDays)
	}
	wantExpiry := now.Add(DefaultExpirationDays * 24 * time.Hour)
	if !link.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", link.ExpiresAt, wantExpiry)
	}
	if _, ok := store.links[link.ID]; !ok {
		t.Error("link not persisted")
	}
}

func TestCreateLinkValidation(t *testing.T) {
	e := newTestEngine(newMemLinkStore(), time.Now())

	_, err := e.CreateLink("MYSTERY-9", "x", model.ShareOptions{})
	if !errors.Is(err, instrument.ErrUnknown) {
		t.Errorf("unknown type err = %v, want ErrUnknown", err)
	}

	_, err = e.CreateLink(model.TypeTSQ, "x", model.ShareOptions{ExpirationDays: -1})
	if !errors.Is(err, ErrInvalidExpiration) {
		t.Errorf("negative expiration err = %v, want ErrInvalidExpiration", err)
	}
}

func TestCreateLinkPersistenceFailure(t *testing.T) {
	store := newMemLinkStore()
	store.saveErr = fmt.Errorf("disk full")
	e := newTestEngine(store, time.Now())

	_, err := e.CreateLink(model.TypePCL5, "x", model.ShareOptions{})
	if err == nil {
		t.Fatal("expected error when save fails")
	}
	if len(store.links) != 0 {
		t.Error("no link should remain after a failed save")
	}
}

func TestCreateLinkUniqueIDs(t *testing.T) {
	e := newTestEngine(newMemLinkStore(), time.Now())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		link, err := e.CreateLink(model.TypeACE, "x", model.ShareOptions{})
		if err != nil {
			t.Fatalf("CreateLink: %v", err)
		}
		if seen[link.ID] {
			t.Fatalf("duplicate link ID %s", link.ID)
		}
		seen[link.ID] = true
	}
}

func TestResolveLinkRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(newMemLinkStore(), now)

	opts := model.ShareOptions{
		IncludeInstructions:   true,
		AllowClientSubmission: true,
		ExpirationDays:        3,
		RequireClientInfo:     true,
	}
	link, err := e.CreateLink(model.TypePCL5, "Jordan R.", opts)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	acc, err := e.ResolveLink(link.ID, now)
	if err != nil {
		t.Fatalf("ResolveLink: %v", err)
	}
	if acc.Type != model.TypePCL5 {
		t.Errorf("Type = %q, want PCL-5", acc.Type)
	}
	if acc.ClientDisplayName != "Jordan R." {
		t.Errorf("ClientDisplayName = %q, want 'Jordan R.'", acc.ClientDisplayName)
	}
	if acc.Options != opts {
		t.Errorf("Options = %+v, want %+v", acc.Options, opts)
	}
	if !acc.ExpiresAt.Equal(link.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", acc.ExpiresAt, link.ExpiresAt)
	}
}

func TestResolveLinkNotFound(t *testing.T) {
	e := newTestEngine(newMemLinkStore(), time.Now())

	_, err := e.ResolveLink("no-such-token", time.Now())
	if !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("err = %v, want ErrLinkNotFound", err)
	}
}

func TestResolveLinkExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(newMemLinkStore(), now)

	link, err := e.CreateLink(model.TypeTSQ, "x", model.ShareOptions{ExpirationDays: 1})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	// Exactly at expiry the link is still active.
	if _, err := e.ResolveLink(link.ID, link.ExpiresAt); err != nil {
		t.Errorf("ResolveLink at expiry: %v, want success", err)
	}

	// One instant past expiry it is gone for good.
	_, err = e.ResolveLink(link.ID, link.ExpiresAt.Add(time.Nanosecond))
	if !errors.Is(err, ErrLinkExpired) {
		t.Errorf("err = %v, want ErrLinkExpired", err)
	}
}

func TestResolveLinkStoreFailure(t *testing.T) {
	store := newMemLinkStore()
	store.getErr = fmt.Errorf("connection reset")
	e := newTestEngine(store, time.Now())

	_, err := e.ResolveLink("whatever", time.Now())
	if err == nil {
		t.Fatal("expected error when lookup fails")
	}
	if errors.Is(err, ErrLinkNotFound) || errors.Is(err, ErrLinkExpired) {
		t.Errorf("store failure must not masquerade as not-found or expired: %v", err)
	}
}
