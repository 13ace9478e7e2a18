// Package assessment orchestrates completing a screening: score, classify,
// persist, then a best-effort enrichment patch that never blocks or fails
// the primary save.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsepoint/pulsepoint/internal/instrument"
	"github.com/pulsepoint/pulsepoint/internal/model"
)

var (
	// ErrClientNotFound means the client ID does not resolve to a roster entry.
	ErrClientNotFound = errors.New("client not found")
	// ErrValidation means the input shape is wrong; the caller must fix it.
	ErrValidation = errors.New("invalid assessment input")
)

// PersistenceError reports a storage collaborator failure on the primary
// save path. It is always surfaced to the caller and never retried here.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store is the narrow persistence contract the manager needs. The core
// never assumes a query language, only these operations.
type Store interface {
	ClientExists(id string) (bool, error)
	CreateAssessment(model.AssessmentResult) error
	UpdateAssessmentNotes(id, notes string) error
}

// Interpreter is the optional enrichment provider. A nil Interpreter
// disables enrichment entirely.
type Interpreter interface {
	Interpret(ctx context.Context, t model.AssessmentType, answers model.AnswerSet, score int) (string, error)
}

// DefaultEnrichTimeout bounds a single enrichment attempt.
const DefaultEnrichTimeout = 15 * time.Second

// Manager completes assessments against a store and an optional
// enrichment provider.
type Manager struct {
	store         Store
	interp        Interpreter
	enrichTimeout time.Duration

	wg sync.WaitGroup
}

// NewManager creates a manager. interp may be nil; enrichTimeout <= 0
// falls back to DefaultEnrichTimeout.
func NewManager(store Store, interp Interpreter, enrichTimeout time.Duration) *Manager {
	if enrichTimeout <= 0 {
		enrichTimeout = DefaultEnrichTimeout
	}
	return &Manager{store: store, interp: interp, enrichTimeout: enrichTimeout}
}

// Complete validates, scores, classifies, and durably persists one
// assessment. Exactly one result is created per successful call; the
// operation either fully succeeds or reports an error with nothing saved.
// Enrichment then races independently to patch the notes field; its
// outcome never changes the return value here.
func (m *Manager) Complete(ctx context.Context, clientID string, t model.AssessmentType, answers model.AnswerSet) (model.AssessmentResult, error) {
	if clientID == "" {
		return model.AssessmentResult{}, fmt.Errorf("%w: client id required", ErrValidation)
	}
	if answers == nil {
		return model.AssessmentResult{}, fmt.Errorf("%w: answers required", ErrValidation)
	}

	exists, err := m.store.ClientExists(clientID)
	if err != nil {
		return model.AssessmentResult{}, &PersistenceError{Op: "client lookup", Err: err}
	}
	if !exists {
		return model.AssessmentResult{}, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}

	score, err := instrument.Score(t, answers)
	if err != nil {
		return model.AssessmentResult{}, err
	}
	risk, err := instrument.Classify(t, score)
	if err != nil {
		// Score never produces a negative total, so this is a defect.
		return model.AssessmentResult{}, fmt.Errorf("classify score %d: %w", score, err)
	}

	now := time.Now()
	rec := model.AssessmentResult{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Type:      t,
		Answers:   answers,
		Score:     score,
		RiskLevel: risk,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateAssessment(rec); err != nil {
		return model.AssessmentResult{}, &PersistenceError{Op: "create assessment", Err: err}
	}
	slog.Info("assessment saved",
		"id", rec.ID,
		"client_id", clientID,
		"type", t,
		"score", score,
		"risk_level", risk,
	)

	m.enrichAsync(rec)
	return rec, nil
}

// enrichAsync fires a single best-effort enrichment attempt. The goroutine
// gets its own deadline detached from the caller's context, so abandoning
// the request never cancels an in-flight patch.
func (m *Manager) enrichAsync(rec model.AssessmentResult) {
	if m.interp == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.enrichTimeout)
		defer cancel()

		note, err := m.interp.Interpret(ctx, rec.Type, rec.Answers, rec.Score)
		if err != nil {
			slog.Info("enrichment unavailable", "id", rec.ID, "error", err)
			return
		}
		if err := m.store.UpdateAssessmentNotes(rec.ID, note); err != nil {
			slog.Warn("notes patch failed", "id", rec.ID, "error", err)
			return
		}
		slog.Info("notes patched", "id", rec.ID)
	}()
}

// Wait blocks until all in-flight enrichment patches finish. Used at
// shutdown so a closing process does not strand a pending patch.
func (m *Manager) Wait() {
	m.wg.Wait()
}
