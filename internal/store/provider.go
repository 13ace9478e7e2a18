package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/pulsepoint/pulsepoint/internal/model"
)

// CreateProvider inserts a new provider account.
func (s *Store) CreateProvider(p model.Provider) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO providers (username, display_name, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Username, p.DisplayName, p.PasswordHash, p.Role, p.Active, time.Now(),
	)
	if err != nil {
		slog.Error("failed to create provider", "username", p.Username, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created provider", "id", id, "username", p.Username, "role", p.Role)
	return id, nil
}

// GetProviderByUsername returns a provider by username, or nil.
func (s *Store) GetProviderByUsername(username string) (*model.Provider, error) {
	var p model.Provider
	err := s.db.QueryRow(
		`SELECT id, username, display_name, password_hash, role, active, created_at
		 FROM providers WHERE username = ?`, username,
	).Scan(&p.ID, &p.Username, &p.DisplayName, &p.PasswordHash, &p.Role, &p.Active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProviderByID returns a provider by ID, or nil.
func (s *Store) GetProviderByID(id int64) (*model.Provider, error) {
	var p model.Provider
	err := s.db.QueryRow(
		`SELECT id, username, display_name, password_hash, role, active, created_at
		 FROM providers WHERE id = ?`, id,
	).Scan(&p.ID, &p.Username, &p.DisplayName, &p.PasswordHash, &p.Role, &p.Active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProviders returns all provider accounts.
func (s *Store) ListProviders() ([]model.Provider, error) {
	rows, err := s.db.Query(
		`SELECT id, username, display_name, password_hash, role, active, created_at
		 FROM providers ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var providers []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.PasswordHash, &p.Role, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// ToggleProviderActive flips the active flag on a provider account.
func (s *Store) ToggleProviderActive(id int64) error {
	_, err := s.db.Exec(`UPDATE providers SET active = NOT active WHERE id = ?`, id)
	return err
}

// ProviderCount returns the total number of provider accounts.
func (s *Store) ProviderCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM providers`).Scan(&count)
	return count, err
}
