package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mmynk/splitsync/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload queued changes and refresh the local snapshot",
	Long: `Replay queued offline writes against the server in the order they
were made, then refresh the cached snapshot of every touched group.

Replay stops at the first failure; the failed write and everything after it
stay queued for the next attempt. A write the server explicitly rejects is
reported and must be resolved by hand (edit or delete the entry, then sync
again).

With --watch the command keeps running, probes the server periodically, and
syncs whenever connectivity returns.`,
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		app, err := newApp()
		if err != nil {
			fail(err)
		}
		defer app.Close()
		ctx := context.Background()

		if watch {
			runWatch(ctx, app, metricsAddr)
			return
		}

		healthy := app.client.Health(ctx) == nil
		app.ledger.SetOnline(ctx, healthy)
		st, stErr := app.ledger.Status(ctx)
		if !healthy {
			if stErr == nil {
				fmt.Fprintf(os.Stderr, "Server unreachable, %d changes remain queued\n", st.PendingCount)
			}
			os.Exit(1)
		}
		if stErr != nil {
			fail(stErr)
		}
		printSyncOutcome(st)
		if st.LastRejected != nil {
			os.Exit(1)
		}
	},
}

func runWatch(ctx context.Context, app *app, metricsAddr string) {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		fmt.Printf("Serving metrics on http://%s/metrics\n", metricsAddr)
	}

	monitor, err := sync.NewMonitor(app.coord, app.cfg.Sync.ProbeInterval, slog.Default())
	if err != nil {
		fail(err)
	}
	monitor.Start(ctx)
	fmt.Printf("Watching for connectivity every %s, press Ctrl+C to stop\n", app.cfg.Sync.ProbeInterval)

	<-ctx.Done()
	monitor.Stop()
	fmt.Println("Stopped")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity, queued changes, and sync state",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fail(err)
		}
		defer app.Close()
		ctx := context.Background()

		healthy := app.client.Health(ctx) == nil
		st, err := app.ledger.Status(ctx)
		if err != nil {
			fail(err)
		}

		if healthy {
			fmt.Println("Server:      reachable")
		} else {
			fmt.Println("Server:      unreachable")
		}
		fmt.Printf("Queued:      %d\n", st.PendingCount)
		fmt.Printf("Sync version: %d\n", st.SyncVersion)
		if st.LastRejected != nil {
			fmt.Printf("Blocked:     server rejected %s (%d): %s\n",
				st.LastRejected.Op, st.LastRejected.Status, st.LastRejected.Message)
		}
	},
}

func printSyncOutcome(st sync.Status) {
	if st.LastRejected != nil {
		fmt.Fprintf(os.Stderr, "Sync stopped: server rejected %s (%d): %s\n",
			st.LastRejected.Op, st.LastRejected.Status, st.LastRejected.Message)
		fmt.Fprintf(os.Stderr, "%d changes remain queued behind it\n", st.PendingCount)
		return
	}
	if st.PendingCount > 0 {
		fmt.Printf("Sync incomplete, %d changes still queued\n", st.PendingCount)
		return
	}
	fmt.Println("Everything is in sync")
}

func init() {
	syncCmd.Flags().Bool("watch", false, "keep running and sync whenever connectivity returns")
	syncCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while watching")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}
