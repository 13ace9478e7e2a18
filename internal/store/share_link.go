package store

import (
	"database/sql"
	"time"

	"github.com/pulsepoint/pulsepoint/internal/model"
)

// SaveShareLink persists a share link record.
func (s *Store) SaveShareLink(l model.ShareLink) error {
	_, err := s.db.Exec(
		`INSERT INTO share_links (id, assessment_type, client_display_name, created_at, expires_at,
		                          include_instructions, allow_client_submission, expiration_days, require_client_info)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Type, l.ClientDisplayName, l.CreatedAt, l.ExpiresAt,
		l.Options.IncludeInstructions, l.Options.AllowClientSubmission,
		l.Options.ExpirationDays, l.Options.RequireClientInfo,
	)
	return err
}

// GetShareLink returns a share link by ID, or nil if no such link exists.
// Expiry is not checked here; the share engine owns that decision.
func (s *Store) GetShareLink(id string) (*model.ShareLink, error) {
	var l model.ShareLink
	err := s.db.QueryRow(
		`SELECT id, assessment_type, client_display_name, created_at, expires_at,
		        include_instructions, allow_client_submission, expiration_days, require_client_info
		 FROM share_links WHERE id = ?`, id,
	).Scan(&l.ID, &l.Type, &l.ClientDisplayName, &l.CreatedAt, &l.ExpiresAt,
		&l.Options.IncludeInstructions, &l.Options.AllowClientSubmission,
		&l.Options.ExpirationDays, &l.Options.RequireClientInfo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteExpiredShareLinks removes links whose expiry has passed. Expired
// links already never resolve; this keeps the table from growing without
// bound.
func (s *Store) DeleteExpiredShareLinks(now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM share_links WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ShareLinkCount returns the number of stored share links.
func (s *Store) ShareLinkCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM share_links`).Scan(&count)
	return count, err
}
