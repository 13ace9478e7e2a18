// Package share issues and resolves time-limited links that let a client
// complete an assessment remotely without authenticating.
package share

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pulsepoint/pulsepoint/internal/instrument"
	"github.com/pulsepoint/pulsepoint/internal/model"
)

var (
	// ErrLinkNotFound means no link with that ID exists. Kept distinct
	// from ErrLinkExpired so callers can render different messaging.
	ErrLinkNotFound = errors.New("share link not found")
	// ErrLinkExpired means the link existed but its window has elapsed.
	// Terminal: an expired link never resolves again.
	ErrLinkExpired = errors.New("share link expired")
	// ErrInvalidExpiration is returned for a negative expiration window.
	ErrInvalidExpiration = errors.New("invalid expiration window")
)

// DefaultExpirationDays applies when the caller leaves ExpirationDays
// unset. Links always expire; there is no "never" policy.
const DefaultExpirationDays = 7

// LinkStore is the persistence contract the engine needs.
type LinkStore interface {
	SaveShareLink(model.ShareLink) error
	GetShareLink(id string) (*model.ShareLink, error)
}

// Engine creates and resolves share links.
type Engine struct {
	links LinkStore
	now   func() time.Time
}

// NewEngine creates a share-link engine backed by the given store.
func NewEngine(links LinkStore) *Engine {
	return &Engine{links: links, now: time.Now}
}

// CreateLink allocates a fresh link for the given instrument and persists
// it. The link ID carries 256 bits from crypto/rand, so distinct links
// never collide in practice and IDs are not guessable.
func (e *Engine) CreateLink(t model.AssessmentType, clientDisplayName string, opts model.ShareOptions) (model.ShareLink, error) {
	if _, err := instrument.Lookup(t); err != nil {
		return model.ShareLink{}, err
	}
	if opts.ExpirationDays < 0 {
		return model.ShareLink{}, fmt.Errorf("%w: %d days", ErrInvalidExpiration, opts.ExpirationDays)
	}
	if opts.ExpirationDays == 0 {
		opts.ExpirationDays = DefaultExpirationDays
	}

	id, err := newLinkID()
	if err != nil {
		return model.ShareLink{}, fmt.Errorf("generate link id: %w", err)
	}

	createdAt := e.now()
	link := model.ShareLink{
		ID:                id,
		Type:              t,
		ClientDisplayName: clientDisplayName,
		CreatedAt:         createdAt,
		ExpiresAt:         createdAt.Add(time.Duration(opts.ExpirationDays) * 24 * time.Hour),
		Options:           opts,
	}
	if err := e.links.SaveShareLink(link); err != nil {
		return model.ShareLink{}, fmt.Errorf("save share link: %w", err)
	}
	return link, nil
}

// ResolveLink validates an inbound link ID at the given instant and
// returns the Accessor the unauthenticated viewer may see. The boundary
// is inclusive: a link is still active at exactly ExpiresAt.
func (e *Engine) ResolveLink(id string, now time.Time) (model.Accessor, error) {
	link, err := e.links.GetShareLink(id)
	if err != nil {
		return model.Accessor{}, fmt.Errorf("lookup share link: %w", err)
	}
	if link == nil {
		return model.Accessor{}, ErrLinkNotFound
	}
	if now.After(link.ExpiresAt) {
		return model.Accessor{}, ErrLinkExpired
	}
	return model.Accessor{
		Type:              link.Type,
		ClientDisplayName: link.ClientDisplayName,
		Options:           link.Options,
		ExpiresAt:         link.ExpiresAt,
	}, nil
}

func newLinkID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
