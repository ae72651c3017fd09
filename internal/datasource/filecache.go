package datasource

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	atomicio "github.com/sawpanic/scorelab/internal/io"
	"github.com/sawpanic/scorelab/internal/series"
)

// FileCache keeps one CSV per symbol under dir. The file modification time
// records when the data was fetched.
type FileCache struct {
	dir string
}

// NewFileCache creates a cache rooted at dir
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Path returns the cache file for symbol
func (c *FileCache) Path(symbol string) string {
	r := strings.NewReplacer("=", "_", "-", "_", "^", "_", "/", "_", "\\", "_", ":", "_")
	return filepath.Join(c.dir, r.Replace(symbol)+".csv")
}

// Load returns the cached series and its fetch time. A missing file is ErrNotFound.
func (c *FileCache) Load(symbol string) (series.Series, time.Time, error) {
	path := c.Path(symbol)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return series.Series{}, time.Time{}, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return series.Series{}, time.Time{}, fmt.Errorf("failed to stat cache file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return series.Series{}, time.Time{}, fmt.Errorf("failed to read cache file: %w", err)
	}
	bars, err := DecodeCSV(bytes.NewReader(data))
	if err != nil {
		return series.Series{}, time.Time{}, fmt.Errorf("corrupt cache file %s: %w", path, err)
	}
	s, err := series.FromUnsorted(symbol, bars)
	if err != nil {
		return series.Series{}, time.Time{}, err
	}
	return s, info.ModTime(), nil
}

// Store writes the series and stamps the file with fetchedAt
func (c *FileCache) Store(s series.Series, fetchedAt time.Time) error {
	data, err := EncodeCSV(s.Bars())
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.Symbol(), err)
	}
	path := c.Path(s.Symbol())
	if err := atomicio.WriteFileAtomic(path, data); err != nil {
		return err
	}
	if err := os.Chtimes(path, fetchedAt, fetchedAt); err != nil {
		return fmt.Errorf("failed to stamp cache file: %w", err)
	}
	return nil
}
