package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pulsepoint/pulsepoint/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestClient(t *testing.T, s *Store, id, name string) {
	t.Helper()
	if err := s.CreateClient(model.Client{ID: id, Name: name, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("insertTestClient: %v", err)
	}
}

func insertTestAssessment(t *testing.T, s *Store, id, clientID string, typ model.AssessmentType, score int, level model.RiskLevel, createdAt time.Time) {
	t.Helper()
	err := s.CreateAssessment(model.AssessmentResult{
		ID:        id,
		ClientID:  clientID,
		Type:      typ,
		Answers:   model.AnswerSet{"q1": 2, "q2": "3"},
		Score:     score,
		RiskLevel: level,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("insertTestAssessment: %v", err)
	}
}

func TestClientCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty roster.
	clients, err := s.ListClients()
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 0 {
		t.Fatalf("expected empty roster, got %d", len(clients))
	}

	insertTestClient(t, s, "c1", "Jordan R.")

	c, err := s.GetClient("c1")
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if c == nil {
		t.Fatal("expected client, got nil")
	}
	if c.Name != "Jordan R." {
		t.Errorf("expected name 'Jordan R.', got %q", c.Name)
	}

	// Missing client returns nil without error.
	c, err = s.GetClient("missing")
	if err != nil {
		t.Fatalf("GetClient missing: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil for missing client, got %+v", c)
	}

	exists, err := s.ClientExists("c1")
	if err != nil {
		t.Fatalf("ClientExists: %v", err)
	}
	if !exists {
		t.Error("expected c1 to exist")
	}
	exists, _ = s.ClientExists("missing")
	if exists {
		t.Error("expected missing client to not exist")
	}

	// Listing is ordered by name.
	insertTestClient(t, s, "c2", "Alex B.")
	clients, err = s.ListClients()
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if clients[0].Name != "Alex B." {
		t.Errorf("expected 'Alex B.' first, got %q", clients[0].Name)
	}
}

func TestAssessmentCRUD(t *testing.T) {
	s := newTestStore(t)
	insertTestClient(t, s, "c1", "Jordan R.")

	count, err := s.AssessmentCount()
	if err != nil {
		t.Fatalf("AssessmentCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 assessments, got %d", count)
	}

	now := time.Now()
	insertTestAssessment(t, s, "a1", "c1", model.TypePCL5, 52, model.RiskSevere, now)

	got, err := s.GetAssessment("a1")
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if got.ClientID != "c1" {
		t.Errorf("expected client c1, got %q", got.ClientID)
	}
	if got.Type != model.TypePCL5 {
		t.Errorf("expected type PCL-5, got %q", got.Type)
	}
	if got.Score != 52 {
		t.Errorf("expected score 52, got %d", got.Score)
	}
	if got.RiskLevel != model.RiskSevere {
		t.Errorf("expected severe, got %q", got.RiskLevel)
	}
	// Answers survive the JSON round trip. Numbers come back as float64.
	if v, ok := got.Answers["q1"].(float64); !ok || v != 2 {
		t.Errorf("expected answers[q1] == 2, got %v", got.Answers["q1"])
	}
	if v, ok := got.Answers["q2"].(string); !ok || v != "3" {
		t.Errorf("expected answers[q2] == \"3\", got %v", got.Answers["q2"])
	}

	// Not found.
	_, err = s.GetAssessment("missing")
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	count, _ = s.AssessmentCount()
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestUpdateAssessmentNotes(t *testing.T) {
	s := newTestStore(t)
	insertTestClient(t, s, "c1", "Jordan R.")
	insertTestAssessment(t, s, "a1", "c1", model.TypeACE, 5, model.RiskHigh, time.Now())

	if err := s.UpdateAssessmentNotes("a1", "monitor sleep disruption"); err != nil {
		t.Fatalf("UpdateAssessmentNotes: %v", err)
	}

	got, err := s.GetAssessment("a1")
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if got.Notes != "monitor sleep disruption" {
		t.Errorf("expected notes patched, got %q", got.Notes)
	}
	// Only notes change; the derived fields stay untouched.
	if got.Score != 5 || got.RiskLevel != model.RiskHigh {
		t.Errorf("score/risk changed by notes patch: %d %q", got.Score, got.RiskLevel)
	}

	// Patching a missing record reports ErrNoRows.
	if err := s.UpdateAssessmentNotes("missing", "x"); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestListAssessmentsByClientOrder(t *testing.T) {
	s := newTestStore(t)
	insertTestClient(t, s, "c1", "Jordan R.")
	insertTestClient(t, s, "c2", "Alex B.")

	base := time.Now().Add(-time.Hour)
	insertTestAssessment(t, s, "a1", "c1", model.TypePCL5, 40, model.RiskHigh, base)
	insertTestAssessment(t, s, "a2", "c1", model.TypePCL5, 30, model.RiskModerate, base.Add(10*time.Minute))
	insertTestAssessment(t, s, "a3", "c2", model.TypeTSQ, 7, model.RiskHigh, base)

	results, err := s.ListAssessmentsByClient("c1")
	if err != nil {
		t.Fatalf("ListAssessmentsByClient: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Newest first.
	if results[0].ID != "a2" || results[1].ID != "a1" {
		t.Errorf("expected [a2 a1], got [%s %s]", results[0].ID, results[1].ID)
	}

	// Other clients' records never leak in.
	for _, r := range results {
		if r.ClientID != "c1" {
			t.Errorf("result %s belongs to %s", r.ID, r.ClientID)
		}
	}
}

func TestClientStats(t *testing.T) {
	s := newTestStore(t)
	insertTestClient(t, s, "c1", "Jordan R.")

	// No history.
	stats, err := s.ClientStats("c1")
	if err != nil {
		t.Fatalf("ClientStats: %v", err)
	}
	if stats.TotalAssessments != 0 {
		t.Errorf("expected 0 assessments, got %d", stats.TotalAssessments)
	}
	if stats.LatestScore != nil {
		t.Error("expected nil latest score")
	}
	if stats.RiskTrend != model.TrendInsufficientData {
		t.Errorf("expected insufficient_data, got %q", stats.RiskTrend)
	}

	// Single assessment: still not enough for a trend.
	base := time.Now().Add(-time.Hour)
	insertTestAssessment(t, s, "a1", "c1", model.TypePCL5, 45, model.RiskHigh, base)
	stats, _ = s.ClientStats("c1")
	if stats.TotalAssessments != 1 {
		t.Errorf("expected 1 assessment, got %d", stats.TotalAssessments)
	}
	if stats.LatestScore == nil || *stats.LatestScore != 45 {
		t.Errorf("expected latest score 45, got %v", stats.LatestScore)
	}
	if stats.RiskTrend != model.TrendInsufficientData {
		t.Errorf("expected insufficient_data, got %q", stats.RiskTrend)
	}

	// Score dropped: improving.
	insertTestAssessment(t, s, "a2", "c1", model.TypePCL5, 31, model.RiskModerate, base.Add(10*time.Minute))
	stats, _ = s.ClientStats("c1")
	if stats.RiskTrend != model.TrendImproving {
		t.Errorf("expected improving, got %q", stats.RiskTrend)
	}
	if stats.LatestScore == nil || *stats.LatestScore != 31 {
		t.Errorf("expected latest score 31, got %v", stats.LatestScore)
	}

	// Score climbed back: worsening.
	insertTestAssessment(t, s, "a3", "c1", model.TypePCL5, 50, model.RiskSevere, base.Add(20*time.Minute))
	stats, _ = s.ClientStats("c1")
	if stats.RiskTrend != model.TrendWorsening {
		t.Errorf("expected worsening, got %q", stats.RiskTrend)
	}

	// Same score twice: stable.
	insertTestAssessment(t, s, "a4", "c1", model.TypeTSQ, 50, model.RiskHigh, base.Add(30*time.Minute))
	stats, _ = s.ClientStats("c1")
	if stats.RiskTrend != model.TrendStable {
		t.Errorf("expected stable, got %q", stats.RiskTrend)
	}

	// Per-type counts.
	if stats.AssessmentTypes[model.TypePCL5] != 3 {
		t.Errorf("expected 3 PCL-5, got %d", stats.AssessmentTypes[model.TypePCL5])
	}
	if stats.AssessmentTypes[model.TypeTSQ] != 1 {
		t.Errorf("expected 1 TSQ, got %d", stats.AssessmentTypes[model.TypeTSQ])
	}
}

func TestShareLinkRoundTrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	link := model.ShareLink{
		ID:                "abc123",
		Type:              model.TypePCL5,
		ClientDisplayName: "Jordan R.",
		CreatedAt:         now,
		ExpiresAt:         now.Add(7 * 24 * time.Hour),
		Options: model.ShareOptions{
			IncludeInstructions:   true,
			AllowClientSubmission: false,
			ExpirationDays:        7,
			RequireClientInfo:     true,
		},
	}
	if err := s.SaveShareLink(link); err != nil {
		t.Fatalf("SaveShareLink: %v", err)
	}

	got, err := s.GetShareLink("abc123")
	if err != nil {
		t.Fatalf("GetShareLink: %v", err)
	}
	if got == nil {
		t.Fatal("expected link, got nil")
	}
	if got.Type != model.TypePCL5 {
		t.Errorf("expected type PCL-5, got %q", got.Type)
	}
	if got.ClientDisplayName != "Jordan R." {
		t.Errorf("expected display name 'Jordan R.', got %q", got.ClientDisplayName)
	}
	if !got.Options.IncludeInstructions || got.Options.AllowClientSubmission ||
		got.Options.ExpirationDays != 7 || !got.Options.RequireClientInfo {
		t.Errorf("options did not round-trip: %+v", got.Options)
	}

	// Missing link returns nil without error.
	got, err = s.GetShareLink("missing")
	if err != nil {
		t.Fatalf("GetShareLink missing: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing link, got %+v", got)
	}
}

func TestDeleteExpiredShareLinks(t *testing.T) {
	s := newTestStore(t)

	now := time.Now()
	fresh := model.ShareLink{ID: "fresh", Type: model.TypeTSQ, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := model.ShareLink{ID: "stale", Type: model.TypeTSQ, CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	for _, l := range []model.ShareLink{fresh, stale} {
		if err := s.SaveShareLink(l); err != nil {
			t.Fatalf("SaveShareLink %s: %v", l.ID, err)
		}
	}

	n, err := s.DeleteExpiredShareLinks(now)
	if err != nil {
		t.Fatalf("DeleteExpiredShareLinks: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 deleted, got %d", n)
	}

	count, _ := s.ShareLinkCount()
	if count != 1 {
		t.Errorf("expected 1 remaining link, got %d", count)
	}
	got, _ := s.GetShareLink("fresh")
	if got == nil {
		t.Error("fresh link should survive the sweep")
	}
}

func TestProviderAccounts(t *testing.T) {
	s := newTestStore(t)

	count, err := s.ProviderCount()
	if err != nil {
		t.Fatalf("ProviderCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 providers, got %d", count)
	}

	id, err := s.CreateProvider(model.Provider{
		Username:     "drchen",
		DisplayName:  "Dr. Chen",
		PasswordHash: "$2a$10$fakehash",
		Role:         model.RoleClinician,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}

	p, err := s.GetProviderByUsername("drchen")
	if err != nil {
		t.Fatalf("GetProviderByUsername: %v", err)
	}
	if p == nil {
		t.Fatal("expected provider, got nil")
	}
	if p.ID != id {
		t.Errorf("expected ID %d, got %d", id, p.ID)
	}
	if p.Role != model.RoleClinician {
		t.Errorf("expected clinician, got %q", p.Role)
	}
	if !p.Active {
		t.Error("expected active provider")
	}

	p2, err := s.GetProviderByID(id)
	if err != nil {
		t.Fatalf("GetProviderByID: %v", err)
	}
	if p2 == nil || p2.Username != "drchen" {
		t.Errorf("expected drchen by ID, got %+v", p2)
	}

	// Missing lookups return nil without error.
	p, _ = s.GetProviderByUsername("nobody")
	if p != nil {
		t.Error("expected nil for missing username")
	}
	p, _ = s.GetProviderByID(9999)
	if p != nil {
		t.Error("expected nil for missing ID")
	}

	// Duplicate usernames rejected.
	if _, err := s.CreateProvider(model.Provider{Username: "drchen", PasswordHash: "x", Role: model.RoleAdmin}); err == nil {
		t.Error("expected error for duplicate username")
	}

	// Toggle active.
	if err := s.ToggleProviderActive(id); err != nil {
		t.Fatalf("ToggleProviderActive: %v", err)
	}
	p, _ = s.GetProviderByID(id)
	if p.Active {
		t.Error("expected provider deactivated")
	}
	_ = s.ToggleProviderActive(id)
	p, _ = s.GetProviderByID(id)
	if !p.Active {
		t.Error("expected provider reactivated")
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateProvider(model.Provider{Username: "u", PasswordHash: "x", Role: model.RoleClinician, Active: true})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}

	token, err := s.CreateAuthSession(id)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64-char hex token, got %d chars", len(token))
	}

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ProviderID != id {
		t.Errorf("expected provider %d, got %d", id, sess.ProviderID)
	}

	// Unknown token.
	sess, err = s.GetAuthSession("bogus")
	if err != nil {
		t.Fatalf("GetAuthSession bogus: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for unknown token")
	}

	// Deletion.
	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, _ = s.GetAuthSession(token)
	if sess != nil {
		t.Error("expected nil after deletion")
	}
}

func TestClinicMetadata(t *testing.T) {
	s := newTestStore(t)

	// Missing key reads as empty.
	v, err := s.GetMetadata("clinic_name")
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}

	info := model.ClinicInfo{Name: "Riverside Trauma Center", Contact: "admin@riverside.example", Timezone: "America/Denver"}
	if err := s.SetClinicInfo(info); err != nil {
		t.Fatalf("SetClinicInfo: %v", err)
	}

	got, err := s.GetClinicInfo()
	if err != nil {
		t.Fatalf("GetClinicInfo: %v", err)
	}
	if got != info {
		t.Errorf("expected %+v, got %+v", info, got)
	}

	// Upsert replaces.
	if err := s.SetMetadata("clinic_name", "Riverside East"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	v, _ = s.GetMetadata("clinic_name")
	if v != "Riverside East" {
		t.Errorf("expected 'Riverside East', got %q", v)
	}
}

func TestExportArchive(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetClinicInfo(model.ClinicInfo{Name: "Riverside", Timezone: "UTC"}); err != nil {
		t.Fatalf("SetClinicInfo: %v", err)
	}
	insertTestClient(t, s, "c1", "Jordan R.")
	insertTestClient(t, s, "c2", "Alex B.")
	base := time.Now().Add(-time.Hour)
	insertTestAssessment(t, s, "a1", "c1", model.TypePCL5, 40, model.RiskHigh, base)
	insertTestAssessment(t, s, "a2", "c1", model.TypeACE, 2, model.RiskModerate, base.Add(time.Minute))

	archive, err := s.ExportArchive()
	if err != nil {
		t.Fatalf("ExportArchive: %v", err)
	}
	if archive.Clinic.Name != "Riverside" {
		t.Errorf("expected clinic 'Riverside', got %q", archive.Clinic.Name)
	}
	if archive.ExportedAt.IsZero() {
		t.Error("expected ExportedAt set")
	}
	if len(archive.Clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(archive.Clients))
	}
	// Clients ordered by name: Alex first, with no history.
	if archive.Clients[0].Name != "Alex B." || len(archive.Clients[0].Assessments) != 0 {
		t.Errorf("unexpected first client: %+v", archive.Clients[0])
	}
	if archive.Clients[1].Name != "Jordan R." || len(archive.Clients[1].Assessments) != 2 {
		t.Errorf("unexpected second client: %+v", archive.Clients[1])
	}
	// Newest assessment first.
	if archive.Clients[1].Assessments[0].ID != "a2" {
		t.Errorf("expected a2 first, got %s", archive.Clients[1].Assessments[0].ID)
	}
}
