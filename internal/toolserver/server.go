package toolserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	codewellerrors "github.com/codewell/codewell/internal/errors"
	"github.com/codewell/codewell/internal/retrieval"
)

const (
	defaultQueryLimit       = 10
	defaultInvestigateLimit = 20
)

// toolServer is the default ToolServer.
type toolServer struct {
	cfg Config
}

func (s *toolServer) Discover(ctx context.Context) (DiscoverOutput, error) {
	chunks, err := s.cfg.Store.AllChunks(ctx)
	if err != nil {
		return DiscoverOutput{}, fmt.Errorf("toolserver: list chunks: %w", err)
	}

	purposeCounts := make(map[string]int)
	for _, c := range chunks {
		purposeCounts[c.Purpose]++
	}
	notable := make([]PurposeCount, 0, len(purposeCounts))
	for p, n := range purposeCounts {
		notable = append(notable, PurposeCount{Purpose: p, Count: n})
	}
	sort.Slice(notable, func(i, j int) bool {
		if notable[i].Count != notable[j].Count {
			return notable[i].Count > notable[j].Count
		}
		return notable[i].Purpose < notable[j].Purpose
	})

	var overviews []BundleOverview
	if s.cfg.Bundles != nil {
		summaries, err := s.cfg.Bundles.List(ctx)
		if err != nil {
			return DiscoverOutput{}, fmt.Errorf("toolserver: list bundles: %w", err)
		}
		for _, b := range summaries {
			overviews = append(overviews, BundleOverview{Name: b.Name, FileCount: b.FileCount, Manual: b.Manual})
		}
	}

	return DiscoverOutput{
		TotalChunks:     len(chunks),
		Bundles:         overviews,
		NotablePurposes: notable,
	}, nil
}

func (s *toolServer) Query(ctx context.Context, in QueryInput) (QueryOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return QueryOutput{}, codewellerrors.ValidationError("query parameter is required", nil)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	results, err := s.cfg.Retrieval.Search(ctx, in.Query, limit, in.Threshold)
	if err != nil {
		return QueryOutput{}, fmt.Errorf("toolserver: search: %w", err)
	}

	out := QueryOutput{Results: make([]QueryResult, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, toQueryResult(r))
	}
	return out, nil
}

func (s *toolServer) Investigate(ctx context.Context, in InvestigateInput) (InvestigateOutput, error) {
	if strings.TrimSpace(in.Description) == "" {
		return InvestigateOutput{}, codewellerrors.ValidationError("description parameter is required", nil)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultInvestigateLimit
	}

	results, err := s.cfg.Retrieval.Search(ctx, in.Description, limit, 0)
	if err != nil {
		return InvestigateOutput{}, fmt.Errorf("toolserver: search: %w", err)
	}

	byFile := make(map[string][]QueryResult)
	byPurpose := make(map[string][]QueryResult)
	matchedPurposes := make(map[string]bool)
	var fileOrder, purposeOrder []string

	for _, r := range results {
		qr := toQueryResult(r)
		if _, seen := byFile[qr.File]; !seen {
			fileOrder = append(fileOrder, qr.File)
		}
		byFile[qr.File] = append(byFile[qr.File], qr)

		if _, seen := byPurpose[qr.Purpose]; !seen {
			purposeOrder = append(purposeOrder, qr.Purpose)
		}
		byPurpose[qr.Purpose] = append(byPurpose[qr.Purpose], qr)
		matchedPurposes[qr.Purpose] = true
	}

	out := InvestigateOutput{}
	for _, f := range fileOrder {
		out.ByFile = append(out.ByFile, FileGroup{File: f, Matches: byFile[f]})
	}
	for _, p := range purposeOrder {
		out.ByPurpose = append(out.ByPurpose, PurposeGroup{Purpose: p, Matches: byPurpose[p]})
	}

	// Gaps: purposes present anywhere in the index but absent from this
	// query's matches, surfacing integration points the query missed.
	all, err := s.cfg.Store.AllChunks(ctx)
	if err != nil {
		return InvestigateOutput{}, fmt.Errorf("toolserver: list chunks: %w", err)
	}
	seenGap := make(map[string]bool)
	for _, c := range all {
		if c.Purpose == "" || matchedPurposes[c.Purpose] || seenGap[c.Purpose] {
			continue
		}
		seenGap[c.Purpose] = true
		out.Gaps = append(out.Gaps, c.Purpose)
	}
	sort.Strings(out.Gaps)

	return out, nil
}

func (s *toolServer) ListBundles(ctx context.Context) (ListBundlesOutput, error) {
	if s.cfg.Bundles == nil {
		return ListBundlesOutput{}, nil
	}
	summaries, err := s.cfg.Bundles.List(ctx)
	if err != nil {
		return ListBundlesOutput{}, fmt.Errorf("toolserver: list bundles: %w", err)
	}

	out := ListBundlesOutput{Bundles: make([]BundleInfo, 0, len(summaries))}
	for _, b := range summaries {
		info := BundleInfo{
			Name:      b.Name,
			Manual:    b.Manual,
			FileCount: b.FileCount,
			SizeBytes: b.SizeBytes,
			Dirty:     b.Dirty,
		}
		if !b.GeneratedAt.IsZero() {
			info.GeneratedAt = b.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		out.Bundles = append(out.Bundles, info)
	}
	return out, nil
}

// ReadFile returns path's content, refusing any path that resolves outside
// the project root (spec §4.J read_file requirement).
func (s *toolServer) ReadFile(_ context.Context, in ReadFileInput) (ReadFileOutput, error) {
	if strings.TrimSpace(in.Path) == "" {
		return ReadFileOutput{}, codewellerrors.ValidationError("path parameter is required", nil)
	}

	root, err := filepath.Abs(s.cfg.RootPath)
	if err != nil {
		return ReadFileOutput{}, fmt.Errorf("toolserver: resolve project root: %w", err)
	}
	candidate := filepath.Join(root, in.Path)

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ReadFileOutput{}, ErrOutsideRoot
	}

	content, err := os.ReadFile(candidate)
	if err != nil {
		return ReadFileOutput{}, codewellerrors.IOError(fmt.Sprintf("read %s", in.Path), err)
	}

	return ReadFileOutput{Path: in.Path, Content: string(content)}, nil
}

func toQueryResult(r retrieval.Result) QueryResult {
	return QueryResult{
		File:       r.Chunk.File,
		Line:       r.Chunk.StartLine,
		Name:       r.Chunk.Name,
		Similarity: r.Similarity,
		Purpose:    r.Chunk.Purpose,
	}
}
