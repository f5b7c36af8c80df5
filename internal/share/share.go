// Package share manages expiring share links for stored files. A link's
// lifecycle is independent of the file it references — deleting the file
// does not revoke a previously issued link from the client's perspective.
package share

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shobayosamuel/cloudbox-go/internal/api"
)

// Expiry choices accepted by the server, in hours. NoExpiry (0) issues a
// link that never expires.
const (
	NoExpiry    = 0
	OneDay      = 24
	ThreeDays   = 72
	OneWeek     = 168
	ThirtyDays  = 720
	sharePrefix = "/share/"
)

// validExpiries is the closed set of accepted expiry values. Anything else
// is a caller-side contract violation rejected before the network call.
var validExpiries = map[int]bool{
	NoExpiry:   true,
	OneDay:     true,
	ThreeDays:  true,
	OneWeek:    true,
	ThirtyDays: true,
}

// ErrInvalidExpiry wraps api.ErrValidation so callers can match either the
// specific condition or the broad class.
var ErrInvalidExpiry = fmt.Errorf("share: expiry must be one of 24, 72, 168, 720, or 0 hours: %w", api.ErrValidation)

// Link is one issued share link. ExpiresInHours of 0 means no expiration.
type Link struct {
	Token          string `json:"token"`
	URL            string `json:"url"`
	ExpiresInHours int    `json:"expiresInHours"`
}

// createRequest mirrors POST /shares.
type createRequest struct {
	FileID    int64 `json:"file_id"`
	ExpiresIn int   `json:"expires_in"`
}

// createResponse carries the capability token issued by the server.
type createResponse struct {
	Token string `json:"token"`
}

// Manager issues, lists, and revokes share links through the
// authenticated client.
type Manager struct {
	client    *api.Client
	shareBase string // public URL prefix for rendered links
	logger    *slog.Logger
}

// NewManager creates a share Manager. shareBase is the public base URL the
// rendered link is built from, e.g. "https://cloudbox.example".
func NewManager(client *api.Client, shareBase string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		client:    client,
		shareBase: strings.TrimRight(shareBase, "/"),
		logger:    logger,
	}
}

// Create issues a share link for a file. expiresInHours must be one of the
// accepted values; invalid values fail locally with ErrInvalidExpiry and no
// request is sent.
func (m *Manager) Create(ctx context.Context, fileID int64, expiresInHours int) (*Link, error) {
	if !validExpiries[expiresInHours] {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidExpiry, expiresInHours)
	}

	var cr createResponse
	err := m.client.PostJSON(ctx, "/shares", createRequest{FileID: fileID, ExpiresIn: expiresInHours}, &cr)
	if err != nil {
		return nil, err
	}

	m.logger.Info("share link created",
		slog.Int64("file_id", fileID),
		slog.Int("expires_in_hours", expiresInHours),
	)

	return &Link{
		Token:          cr.Token,
		URL:            m.shareBase + sharePrefix + cr.Token,
		ExpiresInHours: expiresInHours,
	}, nil
}

// List fetches all share links owned by the authenticated user.
func (m *Manager) List(ctx context.Context) ([]Link, error) {
	var links []Link
	if err := m.client.GetJSON(ctx, "/shares", &links); err != nil {
		return nil, err
	}

	for i := range links {
		if links[i].URL == "" && links[i].Token != "" {
			links[i].URL = m.shareBase + sharePrefix + links[i].Token
		}
	}

	return links, nil
}

// Revoke invalidates a share link. Revoking an unknown or already-revoked
// token surfaces api.ErrNotFound, which callers treat as benign.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	return m.client.Delete(ctx, "/shares/"+token)
}
