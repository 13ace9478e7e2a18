package store

import (
	"database/sql"

	"github.com/pulsepoint/pulsepoint/internal/model"
)

// CreateClient inserts a new client roster entry.
func (s *Store) CreateClient(c model.Client) error {
	_, err := s.db.Exec(
		`INSERT INTO clients (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt,
	)
	return err
}

// GetClient returns a client by ID, or nil if not found.
func (s *Store) GetClient(id string) (*model.Client, error) {
	var c model.Client
	err := s.db.QueryRow(
		`SELECT id, name, created_at FROM clients WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClientExists reports whether a client with the given ID is on the roster.
func (s *Store) ClientExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM clients WHERE id = ?`, id).Scan(&count)
	return count > 0, err
}

// ListClients returns all clients ordered by name.
func (s *Store) ListClients() ([]model.Client, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// ClientStats aggregates a client's assessment history: total count,
// latest score, per-type counts and a coarse trend from the two most
// recent scores (lower is better for every registered instrument).
func (s *Store) ClientStats(clientID string) (model.ClientStats, error) {
	stats := model.ClientStats{
		RiskTrend:       model.TrendInsufficientData,
		AssessmentTypes: make(map[model.AssessmentType]int),
	}

	results, err := s.ListAssessmentsByClient(clientID)
	if err != nil {
		return stats, err
	}
	stats.TotalAssessments = len(results)
	if len(results) == 0 {
		return stats, nil
	}

	for _, r := range results {
		stats.AssessmentTypes[r.Type]++
	}

	latest := results[0].Score
	stats.LatestScore = &latest

	if len(results) >= 2 {
		switch {
		case results[0].Score < results[1].Score:
			stats.RiskTrend = model.TrendImproving
		case results[0].Score > results[1].Score:
			stats.RiskTrend = model.TrendWorsening
		default:
			stats.RiskTrend = model.TrendStable
		}
	}

	return stats, nil
}
