package store

import (
	"fmt"
	"time"

	"github.com/pulsepoint/pulsepoint/internal/model"
)

// ExportArchive builds the full export: clinic metadata plus every client
// with their assessment history, newest assessments first.
func (s *Store) ExportArchive() (model.ArchiveExport, error) {
	var archive model.ArchiveExport

	clinic, err := s.GetClinicInfo()
	if err != nil {
		return archive, fmt.Errorf("get clinic info: %w", err)
	}
	archive.Clinic = clinic
	archive.ExportedAt = time.Now()

	clients, err := s.ListClients()
	if err != nil {
		return archive, fmt.Errorf("list clients: %w", err)
	}

	for _, c := range clients {
		results, err := s.ListAssessmentsByClient(c.ID)
		if err != nil {
			return archive, fmt.Errorf("list assessments for %s: %w", c.ID, err)
		}
		archive.Clients = append(archive.Clients, model.ClientExport{
			ID:          c.ID,
			Name:        c.Name,
			CreatedAt:   c.CreatedAt,
			Assessments: results,
		})
	}

	return archive, nil
}
