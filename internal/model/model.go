package model

import (
	"context"
	"time"
)

// ProviderRole represents a provider account's access level.
type ProviderRole string

const (
	// RoleClinician is a standard clinician account.
	RoleClinician ProviderRole = "clinician"
	// RoleAdmin is an administrator account.
	RoleAdmin ProviderRole = "admin"
)

// Provider represents a clinician or administrator account.
type Provider struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         ProviderRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents a provider authentication session.
type AuthSession struct {
	ID         string
	ProviderID int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

type providerCtxKey struct{}

// ContextWithProvider stores the authenticated provider in the request context.
func ContextWithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerCtxKey{}, p)
}

// ProviderFromContext retrieves the authenticated provider from context, or nil.
func ProviderFromContext(ctx context.Context) *Provider {
	p, _ := ctx.Value(providerCtxKey{}).(*Provider)
	return p
}

// AssessmentType identifies a standardized screening instrument.
type AssessmentType string

const (
	TypePCL5    AssessmentType = "PCL-5"
	TypeACE     AssessmentType = "ACE"
	TypeTSQ     AssessmentType = "TSQ"
	TypePCPTSD5 AssessmentType = "PC-PTSD-5"
	// TypeGeneric is the explicit fallback instrument for screens without
	// a bespoke threshold table. Callers opt into it by name; an
	// unrecognized type is an error, never a silent fallback.
	TypeGeneric AssessmentType = "GENERIC"
)

// RiskLevel is the clinically actionable classification of a score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskSevere   RiskLevel = "severe"
)

// AnswerSet maps question identifiers to response values. Values may be
// numeric or numeric-coercible strings; anything else scores as zero.
type AnswerSet map[string]any

// Client represents a client on the provider's roster.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AssessmentResult is a completed screening: the raw answers plus the
// derived score and risk tier. RiskLevel is always derived from Score and
// Type, never set independently.
type AssessmentResult struct {
	ID        string         `json:"id"`
	ClientID  string         `json:"client_id"`
	Type      AssessmentType `json:"assessment_type"`
	Answers   AnswerSet      `json:"answers"`
	Score     int            `json:"score"`
	RiskLevel RiskLevel      `json:"risk_level"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ShareOptions control how a shared assessment behaves for the client.
type ShareOptions struct {
	IncludeInstructions   bool `json:"include_instructions"`
	AllowClientSubmission bool `json:"allow_client_submission"`
	ExpirationDays        int  `json:"expiration_days"`
	RequireClientInfo     bool `json:"require_client_info"`
}

// ShareLink is a time-bounded reference letting a client complete an
// assessment remotely. Once ExpiresAt has passed it never resolves again.
type ShareLink struct {
	ID                string         `json:"id"`
	Type              AssessmentType `json:"assessment_type"`
	ClientDisplayName string         `json:"client_display_name"`
	CreatedAt         time.Time      `json:"created_at"`
	ExpiresAt         time.Time      `json:"expires_at"`
	Options           ShareOptions   `json:"options"`
}

// Accessor is the read-only view of a ShareLink exposed to the
// unauthenticated viewer. It carries only the single bound assessment's
// display data, never other clients' records.
type Accessor struct {
	Type              AssessmentType `json:"assessment_type"`
	ClientDisplayName string         `json:"client_display_name"`
	Options           ShareOptions   `json:"options"`
	ExpiresAt         time.Time      `json:"expires_at"`
}

// RiskTrend summarizes the direction of a client's recent scores.
type RiskTrend string

const (
	TrendImproving        RiskTrend = "improving"
	TrendStable           RiskTrend = "stable"
	TrendWorsening        RiskTrend = "worsening"
	TrendInsufficientData RiskTrend = "insufficient_data"
)

// ClientStats aggregates a client's assessment history.
type ClientStats struct {
	TotalAssessments int                    `json:"total_assessments"`
	LatestScore      *int                   `json:"latest_score"`
	RiskTrend        RiskTrend              `json:"risk_trend"`
	AssessmentTypes  map[AssessmentType]int `json:"assessment_types"`
}

// Config holds runtime server parameters set via CLI flags.
type Config struct {
	Lang          string // viewer-facing message language (en, es)
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	NoteVariant   string // enrichment note variant (brief, standard, detailed)
}

// ClinicInfo holds clinic-level metadata attached to exports.
type ClinicInfo struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Timezone string `json:"timezone"`
}
