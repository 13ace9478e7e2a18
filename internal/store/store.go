package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsepoint/pulsepoint/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessment_results (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		assessment_type TEXT NOT NULL,
		answers TEXT NOT NULL DEFAULT '{}',
		score INTEGER NOT NULL DEFAULT 0,
		risk_level TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (client_id) REFERENCES clients(id)
	);

	CREATE TABLE IF NOT EXISTS share_links (
		id TEXT PRIMARY KEY,
		assessment_type TEXT NOT NULL,
		client_display_name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		include_instructions INTEGER NOT NULL DEFAULT 1,
		allow_client_submission INTEGER NOT NULL DEFAULT 1,
		expiration_days INTEGER NOT NULL DEFAULT 7,
		require_client_info INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS providers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'clinician',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		provider_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (provider_id) REFERENCES providers(id)
	);

	CREATE TABLE IF NOT EXISTS clinic_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assessment_results_client
		ON assessment_results(client_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateAssessment stores a completed assessment result.
func (s *Store) CreateAssessment(r model.AssessmentResult) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO assessment_results (id, client_id, assessment_type, answers, score, risk_level, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ClientID, r.Type, string(answers), r.Score, r.RiskLevel, r.Notes, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

// UpdateAssessmentNotes patches only the notes field of a stored result.
func (s *Store) UpdateAssessmentNotes(id, notes string) error {
	res, err := s.db.Exec(
		`UPDATE assessment_results SET notes = ?, updated_at = ? WHERE id = ?`,
		notes, time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetAssessment returns an assessment result by ID.
func (s *Store) GetAssessment(id string) (model.AssessmentResult, error) {
	var r model.AssessmentResult
	var answers string
	err := s.db.QueryRow(
		`SELECT id, client_id, assessment_type, answers, score, risk_level, notes, created_at, updated_at
		 FROM assessment_results WHERE id = ?`, id,
	).Scan(&r.ID, &r.ClientID, &r.Type, &answers, &r.Score, &r.RiskLevel, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return r, fmt.Errorf("unmarshal answers: %w", err)
	}
	return r, nil
}

// ListAssessmentsByClient returns a client's results, newest first.
func (s *Store) ListAssessmentsByClient(clientID string) ([]model.AssessmentResult, error) {
	rows, err := s.db.Query(
		`SELECT id, client_id, assessment_type, answers, score, risk_level, notes, created_at, updated_at
		 FROM assessment_results WHERE client_id = ? ORDER BY created_at DESC, id DESC`, clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.AssessmentResult
	for rows.Next() {
		var r model.AssessmentResult
		var answers string
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Type, &answers, &r.Score, &r.RiskLevel, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// AssessmentCount returns the number of stored results.
func (s *Store) AssessmentCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM assessment_results`).Scan(&count)
	return count, err
}
