package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/codewell/codewell/internal/bundle"
	"github.com/codewell/codewell/internal/chunk"
	"github.com/codewell/codewell/internal/classify"
	"github.com/codewell/codewell/internal/config"
	"github.com/codewell/codewell/internal/embed"
	"github.com/codewell/codewell/internal/fanout"
	"github.com/codewell/codewell/internal/ignore"
	"github.com/codewell/codewell/internal/orchestrator"
	"github.com/codewell/codewell/internal/retrieval"
	"github.com/codewell/codewell/internal/store"
)

// errProjectRootUnreadable marks a project root that exists but cannot be
// statted/walked, distinct from a plain "doesn't exist yet" case that
// init's caller is expected to create.
var errProjectRootUnreadable = errors.New("project root is unreadable")

// project bundles together every collaborator a command needs, wired from
// a project root the way internal/orchestrator's own test helper
// (newTestOrchestrator) wires them, minus the test doubles.
type project struct {
	root      string
	dataDir   string
	store     store.Store
	bundles   bundle.Manager
	fanout    fanout.Fanout
	retrieval retrieval.Engine
	orch      orchestrator.Orchestrator
	matcher   *ignore.Matcher
	lock      *orchestrator.ProjectLock
	logger    *slog.Logger
}

// resolveProjectRoot finds the project root starting from dir (defaulting
// to the working directory), failing with errProjectRootUnreadable when
// the candidate root exists but can't be inspected.
func resolveProjectRoot(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("%w: %v", errProjectRootUnreadable, err)
		}
		dir = wd
	}
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errProjectRootUnreadable, err)
	}
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("%w: %v", errProjectRootUnreadable, err)
	}
	return root, nil
}

// buildIgnoreMatcher constructs the effective matcher from the project's
// .codewellignore and hidden-files manifest, per ignore.NewMatcher's three
// pattern tiers.
func buildIgnoreMatcher(root string) (*ignore.Matcher, error) {
	filePatterns, err := config.LoadIgnoreManifest(root)
	if err != nil {
		return nil, err
	}
	hidden, err := config.LoadHiddenFiles(root)
	if err != nil {
		return nil, err
	}
	return ignore.NewMatcher(hidden.UserPatterns, filePatterns, hidden.DisabledSystemPatterns), nil
}

// openProject wires every collaborator a long-running command (watch, mcp,
// bundle, status) needs against an already-initialized project, acquiring
// the single-writer lock when forWrite is set (spec §5's single-writer
// store discipline, grounded on internal/orchestrator.ProjectLock).
func openProject(root string, forWrite bool) (*project, error) {
	dataDir := config.StateDir(root)
	if err := config.EnsureStateDir(root); err != nil {
		return nil, err
	}

	var lock *orchestrator.ProjectLock
	if forWrite {
		lock = orchestrator.NewProjectLock(dataDir)
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, fmt.Errorf("codewell: another process is already indexing %s", root)
		}
	}

	matcher, err := buildIgnoreMatcher(root)
	if err != nil {
		return nil, err
	}

	s, err := store.NewSQLiteStore(config.BundlesDBPath(root), embed.StaticDimensions)
	if err != nil {
		return nil, err
	}

	embedder := embed.NewDefaultEmbedder(4096)
	fan := fanout.New()
	bundles := bundle.New(s, root, fan)
	retrievalEngine := retrieval.New(s, embedder)

	logger := slog.Default()

	orch := orchestrator.New(orchestrator.Config{
		RootPath:   root,
		DataDir:    dataDir,
		Matcher:    matcher,
		Chunker:    chunk.NewRegistry(),
		Classifier: classify.New(),
		Embedder:   embedder,
		Store:      s,
		Bundles:    bundles,
		Fanout:     fan,
		Logger:     logger,
	})

	return &project{
		root:      root,
		dataDir:   dataDir,
		store:     s,
		bundles:   bundles,
		fanout:    fan,
		retrieval: retrievalEngine,
		orch:      orch,
		matcher:   matcher,
		lock:      lock,
		logger:    logger,
	}, nil
}

// Close releases the project's single-writer lock (if acquired) and the
// underlying store.
func (p *project) Close() error {
	storeErr := p.store.Close()
	if p.lock != nil {
		if lockErr := p.lock.Unlock(); lockErr != nil {
			return lockErr
		}
	}
	return storeErr
}
