package model

import "time"

// ArchiveExport is the top-level JSON structure for the export subcommand.
type ArchiveExport struct {
	Clinic     ClinicInfo     `json:"clinic"`
	ExportedAt time.Time      `json:"exported_at"`
	Clients    []ClientExport `json:"clients"`
}

// ClientExport holds one client's roster entry and assessment history.
type ClientExport struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	CreatedAt   time.Time          `json:"created_at"`
	Assessments []AssessmentResult `json:"assessments"`
}
