package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

// JSONL returns a supplier reading records from the given files. Files are
// read concurrently; records keep the order of paths and of lines within
// each file.
func JSONL(log *zap.Logger, paths ...string) types.Supplier[*Record] {
	return func(ctx context.Context) ([]*Record, error) {
		return ReadJSONL(ctx, log, paths...)
	}
}

// ReadJSONL reads every file and concatenates their records. A nil log
// disables logging.
func ReadJSONL(ctx context.Context, log *zap.Logger, paths ...string) ([]*Record, error) {
	if log == nil {
		log = zap.NewNop()
	}
	parts := make([][]*Record, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			records, err := readJSONL(ctx, log, path)
			if err != nil {
				return err
			}
			parts[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []*Record
	for _, p := range parts {
		all = append(all, p...)
	}
	return all, nil
}

// readJSONL reads one file. Each non-empty line holding a JSON object is a
// record; other lines are skipped.
func readJSONL(ctx context.Context, log *zap.Logger, path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []*Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
			log.Debug("skipping malformed line", zap.String("path", path), zap.Int("line", line), zap.Error(err))
			continue
		}
		records = append(records, newRecord(obj))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// WriteJSONL atomically writes records to path: a temp file in the same
// directory is written, synced and renamed over path.
func WriteJSONL(path string, records []*Record) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r.Object()); err != nil {
			return fail(fmt.Errorf("writing record %s: %w", r.ID, err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
