package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"

	"github.com/blockedby/tgstats/internal/config"
)

// NewFileSessionClient creates a telegram client backed by a sqlite session
// file at sessionPath. The file is the unit the session store round-trips
// through object storage, so everything the client needs to reconnect
// lives in it.
func NewFileSessionClient(ctx context.Context, cfg *config.Config, sessionPath string) (*gotgproto.Client, error) {
	if err := os.MkdirAll(filepath.Dir(sessionPath), 0755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	clientOpts := &gotgproto.ClientOpts{
		Session:          sessionMaker.SqlSession(sqlite.Open(sessionPath)),
		DisableCopyright: true,
	}

	client, err := gotgproto.NewClient(
		cfg.TGApiID,
		cfg.TGApiHash,
		gotgproto.ClientTypePhone(""), // empty = use existing session
		clientOpts,
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	return client, nil
}
