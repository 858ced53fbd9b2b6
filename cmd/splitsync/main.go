// Command splitsync is an offline-first client for shared expense groups.
// Reads and writes go to the remote service when it is reachable and degrade
// to a local snapshot plus a durable mutation queue when it is not; queued
// writes replay in order on the next sync.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/cache"
	"github.com/mmynk/splitsync/internal/config"
	"github.com/mmynk/splitsync/internal/queue"
	"github.com/mmynk/splitsync/internal/service"
	"github.com/mmynk/splitsync/internal/storage"
	"github.com/mmynk/splitsync/internal/storage/badger"
	"github.com/mmynk/splitsync/internal/storage/memory"
	"github.com/mmynk/splitsync/internal/storage/sqlite"
	"github.com/mmynk/splitsync/internal/sync"
	"github.com/mmynk/splitsync/pkg/logging"
)

var (
	configPath string
	tokenFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "splitsync",
	Short: "Offline-first client for shared expense groups",
	Long: `splitsync tracks shared expenses against a remote ledger service.

Every command works against the server when it is reachable. When it is not,
reads come from the last cached snapshot and writes are queued locally and
replayed in order on the next sync. Records created offline carry a temporary
"local-" id until the server confirms them.

The group token printed by "group create" authenticates every other command.
It is stored in the data directory; pass --token to use a different group.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", "", "group bearer token (overrides the stored one)")
}

// app is the wired client stack behind every command.
type app struct {
	cfg     *config.Config
	client  *api.Client
	ledger  *service.Ledger
	coord   *sync.Coordinator
	store   storage.KV
	dataDir string
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Log.Level)

	var store storage.KV
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err = sqlite.New(filepath.Join(cfg.Storage.Path, "splitsync.db"))
	case "badger":
		store, err = badger.New(badger.DefaultConfig(filepath.Join(cfg.Storage.Path, "badger")))
	case "memory":
		store = memory.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}

	q, err := queue.New(context.Background(), store)
	if err != nil {
		store.Close()
		return nil, err
	}
	c := cache.New(store)

	client := api.New(cfg.Server.URL, slog.Default())
	client.SetHTTPClient(&http.Client{Timeout: cfg.Server.Timeout})
	coord := sync.New(client, c, q, slog.Default())

	return &app{
		cfg:     cfg,
		client:  client,
		ledger:  service.NewLedger(client, c, q, coord),
		coord:   coord,
		store:   store,
		dataDir: cfg.Storage.Path,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func (a *app) tokenPath() string {
	return filepath.Join(a.dataDir, "token")
}

// token returns the bearer token for the current group: the --token flag if
// set, otherwise the one saved by "group create".
func (a *app) token() (string, error) {
	token := tokenFlag
	if token == "" {
		b, err := os.ReadFile(a.tokenPath())
		if err != nil {
			return "", fmt.Errorf("no group token found: create a group first or pass --token")
		}
		token = strings.TrimSpace(string(b))
	}
	if claims, err := api.ParseToken(token); err == nil && claims.Expired() {
		slog.Warn("group token is expired; the server will reject requests",
			"expired_at", claims.ExpiresAt.Time)
	}
	return token, nil
}

func (a *app) saveToken(token string) error {
	if err := os.MkdirAll(a.dataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(a.tokenPath(), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// fail prints the error and exits. Shared by every Run closure.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
