package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/codewell/codewell/internal/fanout"
	"github.com/codewell/codewell/internal/ignore"
	"github.com/codewell/codewell/internal/walker"
)

// newWatchCmd creates the watch command: it runs the orchestrator's
// initial scan, then forwards watcher events through the orchestrator's
// own debounce stage for as long as the process runs.
//
// Spec explicitly scopes "the HTTP transport layer and its route table"
// as an external collaborator contributing no interesting engineering
// (spec §8 Non-goals); the health/events endpoints below are the stdlib
// net/http minimum needed to let a local dashboard observe liveness, not
// a transport layer implementation of their own.
func newWatchCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Keep the index current by watching for file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runWatch(cmd.Context(), cmd, path, httpAddr)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "Serve a local health/events endpoint at this address (disabled if empty)")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, path, httpAddr string) error {
	root, err := resolveProjectRoot(path)
	if err != nil {
		return err
	}

	proj, err := openProject(root, true)
	if err != nil {
		return err
	}
	defer proj.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "scanning", root)
	if err := proj.orch.InitialScan(ctx); err != nil {
		return fmt.Errorf("watch: initial scan: %w", err)
	}
	if err := proj.orch.FillMissingEmbeddings(ctx); err != nil {
		return fmt.Errorf("watch: embedding fill: %w", err)
	}

	watcher, err := walker.NewWatcher(walker.DefaultOptions(), proj.matcher, func() (*ignore.Matcher, error) {
		return buildIgnoreMatcher(root)
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := watcher.Start(ctx, root); err != nil {
		return fmt.Errorf("watch: start: %w", err)
	}
	defer watcher.Stop()

	var httpServer *http.Server
	if httpAddr != "" {
		httpServer = startWatchHTTPServer(httpAddr, proj.fanout)
		defer httpServer.Close()
		fmt.Fprintln(out, "serving health/events at", httpAddr)
	}

	fmt.Fprintln(out, "watching", root)
	proj.orch.Watch(ctx, watcher.Events())
	if err := ctx.Err(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// startWatchHTTPServer serves /healthz (plain liveness check) and
// /events (a newline-delimited JSON stream of fanout events, the
// simplest possible transport that needs no extra dependency beyond
// stdlib net/http).
func startWatchHTTPServer(addr string, fan fanout.Fanout) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		events, cancel := fan.Subscribe(16)
		defer cancel()

		enc := json.NewEncoder(w)
		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				if err := enc.Encode(evt); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
