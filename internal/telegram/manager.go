package telegram

import (
	"context"
	"fmt"
	"sync"

	"github.com/celestix/gotgproto"

	"github.com/blockedby/tgstats/internal/config"
	"github.com/blockedby/tgstats/internal/logger"
)

// Status represents the Telegram client status.
type Status string

// Status constants define the possible states of the Telegram client.
const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusAuthorized   Status = "AUTHORIZED"
	StatusAuthFailed   Status = "AUTH_FAILED"
)

// ClientFactory is a function that creates a telegram client on a local
// session file.
type ClientFactory func(ctx context.Context, cfg *config.Config, sessionPath string) (*gotgproto.Client, error)

// SessionStore is the durable session storage the manager round-trips
// the session file through. Download and Upload are best-effort.
type SessionStore interface {
	Download(ctx context.Context) bool
	Upload(ctx context.Context) bool
	LocalPath() string
}

// Manager handles Telegram client lifecycle and session continuity.
type Manager struct {
	client *gotgproto.Client
	store  SessionStore
	cfg    *config.Config
	log    *logger.Logger

	status Status
	mu     sync.RWMutex

	clientFactory ClientFactory
}

// NewManager creates a new Telegram Manager.
func NewManager(cfg *config.Config, store SessionStore) *Manager {
	return &Manager{
		store:         store,
		cfg:           cfg,
		log:           logger.Get(),
		status:        StatusDisconnected,
		clientFactory: NewFileSessionClient,
	}
}

// SetClientFactory allows overriding the client creation logic (e.g. for testing).
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientFactory = f
}

// GetStatus returns the current Telegram client status.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// GetClient returns the underlying Telegram client, or nil when not authorized.
func (m *Manager) GetClient() *gotgproto.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Connect pulls the session file from durable storage, builds the client
// on it, and pushes the (possibly refreshed) session back.
// Idempotent: returns immediately when already authorized.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusAuthorized {
		m.mu.Unlock()
		return nil
	}
	m.status = StatusConnecting
	m.mu.Unlock()

	if !m.cfg.HasTelegramCredentials() {
		m.setStatus(StatusAuthFailed)
		return fmt.Errorf("telegram api credentials not configured")
	}

	if !m.store.Download(ctx) {
		m.log.Info().Msg("telegram: no session in storage, trying local session file")
	}

	client, err := m.clientFactory(ctx, m.cfg, m.store.LocalPath())
	if err != nil {
		m.setStatus(StatusAuthFailed)
		return fmt.Errorf("telegram authorization failed: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.status = StatusAuthorized
	m.mu.Unlock()

	// auth key may have been refreshed during connect
	m.store.Upload(ctx)

	m.log.Info().Msg("telegram: client authorized")
	return nil
}

// UploadSession pushes the current session file to durable storage.
func (m *Manager) UploadSession(ctx context.Context) bool {
	return m.store.Upload(ctx)
}

// Stop uploads the session and stops the Telegram client.
func (m *Manager) Stop() {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.status = StatusDisconnected
	m.mu.Unlock()

	if client == nil {
		return
	}

	m.store.Upload(context.Background())
	client.Stop()
	m.log.Info().Msg("telegram: client stopped")
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}
