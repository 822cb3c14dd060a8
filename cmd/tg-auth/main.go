package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"

	"github.com/blockedby/tgstats/internal/config"
	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/sessionstore"
)

// tg-auth seeds the session file the scraper runs on. It authenticates
// interactively with a phone number, writes the session to the local
// path the scraper expects, and uploads it to object storage so
// stateless deployments pick it up on boot.
func main() {
	fmt.Println("=== telegram auth tool ===")
	fmt.Println("authenticates once and stores the session for the scraper")
	fmt.Println()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, ""); err != nil {
		fmt.Printf("error: failed to init logger: %v\n", err)
		os.Exit(1)
	}

	if !cfg.HasTelegramCredentials() {
		fmt.Println("error: TG_API_ID and TG_API_HASH must be set")
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("enter your phone number (with country code, e.g. +1234567890): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	if err := os.MkdirAll(filepath.Dir(cfg.LocalSessionPath), 0755); err != nil {
		fmt.Printf("error: create session directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nauthenticating... (check telegram for code)")

	client, err := gotgproto.NewClient(
		cfg.TGApiID,
		cfg.TGApiHash,
		gotgproto.ClientTypePhone(phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(cfg.LocalSessionPath)),
			DisableCopyright: true,
		},
	)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✓ authentication successful!")
	fmt.Printf("logged in as: @%s\n", client.Self.Username)
	fmt.Printf("session stored at: %s\n", cfg.LocalSessionPath)

	client.Stop()

	// push the fresh session to object storage
	ctx := context.Background()
	store := sessionstore.New(cfg)
	if !store.Initialize(ctx) {
		fmt.Println("\ns3 storage not configured, session stays local only")
		return
	}
	if store.Upload(ctx) {
		fmt.Println("session uploaded to s3, the scraper will pick it up on boot")
	} else {
		fmt.Println("warning: session upload failed, the scraper will use the local file")
	}
}
