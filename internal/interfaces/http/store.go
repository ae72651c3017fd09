package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/persistence"
	"github.com/sawpanic/scorelab/internal/tune"
)

// Store is the read side the server needs
type Store interface {
	ListRuns(ctx context.Context, limit int) ([]persistence.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*persistence.RunSummary, error)
	ListEvents(ctx context.Context, runID string) ([]persistence.EventRecord, error)
	ListTunes(ctx context.Context, category string, limit int) ([]persistence.TuneRecord, error)
}

// RepositoryStore serves runs from the database repositories
type RepositoryStore struct {
	repo *persistence.Repository
}

// NewRepositoryStore wraps a repository collection
func NewRepositoryStore(repo *persistence.Repository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) ListRuns(ctx context.Context, limit int) ([]persistence.RunSummary, error) {
	return s.repo.Backtests.ListRuns(ctx, limit)
}

func (s *RepositoryStore) GetRun(ctx context.Context, runID string) (*persistence.RunSummary, error) {
	return s.repo.Backtests.GetRun(ctx, runID)
}

func (s *RepositoryStore) ListEvents(ctx context.Context, runID string) ([]persistence.EventRecord, error) {
	return s.repo.Backtests.ListEvents(ctx, runID)
}

func (s *RepositoryStore) ListTunes(ctx context.Context, category string, limit int) ([]persistence.TuneRecord, error) {
	return s.repo.Tunes.ListTunes(ctx, category, limit)
}

// FileStore serves the artifacts written by the backtest and tune
// commands. Each backtest run is a directory holding report.json and
// results.jsonl; each tuning result is <tuneDir>/<category>/result.json.
type FileStore struct {
	backtestDir string
	tuneDir     string
}

// NewFileStore creates a store over the artifact directories
func NewFileStore(backtestDir, tuneDir string) *FileStore {
	return &FileStore{backtestDir: backtestDir, tuneDir: tuneDir}
}

type runEntry struct {
	dir     string
	summary persistence.RunSummary
}

func (s *FileStore) runs() ([]runEntry, error) {
	dirs, err := os.ReadDir(s.backtestDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.backtestDir, err)
	}

	var out []runEntry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(s.backtestDir, d.Name())
		raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
		if err != nil {
			continue
		}
		var report backtest.Report
		if err := json.Unmarshal(raw, &report); err != nil {
			log.Warn().Str("dir", dir).Err(err).Msg("Skipping unreadable report")
			continue
		}
		summary, err := persistence.NewRunSummary(&report, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, runEntry{dir: dir, summary: summary})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].summary, out[j].summary
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		return a.RunID < b.RunID
	})
	return out, nil
}

func (s *FileStore) find(runID string) (*runEntry, error) {
	runs, err := s.runs()
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].summary.RunID == runID {
			return &runs[i], nil
		}
	}
	return nil, nil
}

func (s *FileStore) ListRuns(_ context.Context, limit int) ([]persistence.RunSummary, error) {
	runs, err := s.runs()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	out := make([]persistence.RunSummary, len(runs))
	for i, r := range runs {
		out[i] = r.summary
		out[i].Report = nil
	}
	return out, nil
}

func (s *FileStore) GetRun(_ context.Context, runID string) (*persistence.RunSummary, error) {
	entry, err := s.find(runID)
	if err != nil || entry == nil {
		return nil, err
	}
	return &entry.summary, nil
}

func (s *FileStore) ListEvents(_ context.Context, runID string) ([]persistence.EventRecord, error) {
	entry, err := s.find(runID)
	if err != nil || entry == nil {
		return nil, err
	}

	path := filepath.Join(entry.dir, "results.jsonl")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out := []persistence.EventRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e backtest.Event
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("failed to parse %s line %d: %w", path, line, err)
		}
		rec, err := persistence.NewEventRecord(runID, e)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

func (s *FileStore) ListTunes(_ context.Context, category string, limit int) ([]persistence.TuneRecord, error) {
	dirs, err := os.ReadDir(s.tuneDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []persistence.TuneRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.tuneDir, err)
	}

	out := []persistence.TuneRecord{}
	for _, d := range dirs {
		if !d.IsDir() || (category != "" && d.Name() != category) {
			continue
		}
		path := filepath.Join(s.tuneDir, d.Name(), "result.json")
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var res tune.Result
		if err := json.Unmarshal(raw, &res); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("Skipping unreadable tuning result")
			continue
		}
		rec, err := persistence.NewTuneRecord(res, info.ModTime().UTC())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
