package store

import (
	"database/sql"

	"github.com/pulsepoint/pulsepoint/internal/model"
)

// SetMetadata upserts a key-value pair in the clinic_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO clinic_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM clinic_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetClinicInfo stores all ClinicInfo fields as metadata rows.
func (s *Store) SetClinicInfo(info model.ClinicInfo) error {
	pairs := []struct{ k, v string }{
		{"clinic_name", info.Name},
		{"clinic_contact", info.Contact},
		{"clinic_timezone", info.Timezone},
	}
	for _, p := range pairs {
		if err := s.SetMetadata(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}

// GetClinicInfo reads all ClinicInfo fields from metadata.
func (s *Store) GetClinicInfo() (model.ClinicInfo, error) {
	var info model.ClinicInfo
	var err error

	if info.Name, err = s.GetMetadata("clinic_name"); err != nil {
		return info, err
	}
	if info.Contact, err = s.GetMetadata("clinic_contact"); err != nil {
		return info, err
	}
	if info.Timezone, err = s.GetMetadata("clinic_timezone"); err != nil {
		return info, err
	}
	return info, nil
}
