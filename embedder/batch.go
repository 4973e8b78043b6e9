/*
	Takeoutembed
	Copyright (c) 2025 The Takeoutembed Authors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package embedder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedFormat is the failure reason for media files that are
// discovered but have no embeddable metadata container.
var ErrUnsupportedFormat = errors.New("media format not supported for metadata embedding")

// Options configures a batch run.
type Options struct {
	// Path of the per-file outcome log to create (or truncate).
	LogFile string `json:"log_file"`

	// How many files to process concurrently. Files are independent,
	// so any value is safe; 0 or 1 processes them sequentially.
	Workers int `json:"workers"`

	// Also set each media file's modification (and access) time to its
	// capture time after a successful embed.
	SetFileModTime bool `json:"set_file_mod_time"`

	// Logger for progress and warnings; defaults to the process log.
	Log *zap.Logger `json:"-"`
}

// Batch reconciles every media file under a directory tree with its
// sidecar. Each file is an independent unit of work; no state is
// carried between files.
type Batch struct {
	opts Options
	log  *zap.Logger
}

// NewBatch returns a batch runner with the given options.
func NewBatch(opts Options) *Batch {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LogFile == "" {
		opts.LogFile = "embed_log.txt"
	}
	logger := opts.Log
	if logger == nil {
		logger = Log
	}
	return &Batch{opts: opts, log: logger}
}

// Status is the disposition of one processed media file.
type Status int

const (
	// StatusEmbedded means the sidecar metadata was written into the file.
	StatusEmbedded Status = iota

	// StatusFailed means the file had a sidecar but embedding did not
	// complete (unreadable sidecar, unsupported format, or write error).
	StatusFailed

	// StatusSkipped means no sidecar was found; the file was left untouched.
	StatusSkipped
)

// Outcome records what happened to one media file.
type Outcome struct {
	Path        string
	SidecarPath string
	Status      Status
	CaptureTime string // formatted capture time used, if any
	Err         error

	// set when the failure was reading/decoding the sidecar itself,
	// which the outcome log reports differently from an embed failure
	SidecarUnreadable bool
}

// Summary is the tally of a completed run.
type Summary struct {
	Embedded int
	Failed   int
	Skipped  int
}

// Run walks the tree rooted at rootDir and embeds sidecar metadata into
// every media file that has one, recording a per-file outcome line in
// the run's log file. Per-file errors never abort the batch; the only
// fatal conditions are the root directory being inaccessible and the
// outcome log being uncreatable.
func (b *Batch) Run(ctx context.Context, rootDir string) (Summary, error) {
	sink, err := newOutcomeLog(b.opts.LogFile)
	if err != nil {
		return Summary{}, fmt.Errorf("creating outcome log: %w", err)
	}

	var (
		mu  sync.Mutex
		sum Summary
	)
	record := func(o Outcome) {
		sink.record(o)
		mu.Lock()
		defer mu.Unlock()
		switch o.Status {
		case StatusEmbedded:
			sum.Embedded++
		case StatusFailed:
			sum.Failed++
		case StatusSkipped:
			sum.Skipped++
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	walkErr := b.walkDir(ctx, rootDir, true, func(path string, family Family) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			record(b.processFile(path, family))
			return nil
		})
	})

	err = g.Wait()
	if walkErr != nil {
		err = walkErr
	}
	if closeErr := sink.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing outcome log: %w", closeErr)
	}

	return sum, err
}

// walkDir recursively enumerates dir, visiting each media file. Entries
// are visited in natural sort order, which matches how Takeout orders
// album folder contents and keeps the outcome log stable between runs.
// Unreadable subdirectories are logged and skipped; only the root
// directory is load-bearing.
func (b *Batch) walkDir(ctx context.Context, dir string, isRoot bool, visit func(path string, family Family)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return fmt.Errorf("reading root directory: %w", err)
		}
		b.log.Warn("skipping unreadable directory",
			zap.String("dir", dir),
			zap.Error(err))
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return natural.Less(entries[i].Name(), entries[j].Name())
	})

	for _, d := range entries {
		fpath := filepath.Join(dir, d.Name())
		if d.IsDir() {
			if err := b.walkDir(ctx, fpath, false, visit); err != nil {
				return err
			}
			continue
		}
		if family, ok := classifyMedia(d.Name()); ok {
			visit(fpath, family)
		}
	}

	return nil
}

// processFile runs the resolve → parse → embed pipeline for one media
// file and converts every error into an outcome at this boundary.
func (b *Batch) processFile(path string, family Family) Outcome {
	logger := b.log.With(zap.String("filepath", path))
	logger.Info("checking and embedding metadata")

	sidecarPath, found := ResolveSidecar(path)
	if !found {
		logger.Info("no sidecar metadata file found")
		return Outcome{Path: path, Status: StatusSkipped}
	}

	sc, err := ParseSidecar(sidecarPath)
	if err != nil {
		logger.Warn("failed to read sidecar metadata", zap.Error(err))
		return Outcome{
			Path:              path,
			SidecarPath:       sidecarPath,
			Status:            StatusFailed,
			Err:               err,
			SidecarUnreadable: true,
		}
	}

	var stamp string
	captureTime, hasTime := sc.CaptureTime()
	if hasTime {
		stamp = captureTime.Format(ExifTimeLayout)
	}

	writer, ok := writers[family]
	if !ok {
		logger.Warn("format not supported for metadata embedding")
		return Outcome{
			Path:        path,
			SidecarPath: sidecarPath,
			Status:      StatusFailed,
			CaptureTime: stamp,
			Err:         ErrUnsupportedFormat,
		}
	}

	if err := writer.Embed(path, sc); err != nil {
		logger.Warn("embedding metadata failed", zap.Error(err))
		return Outcome{
			Path:        path,
			SidecarPath: sidecarPath,
			Status:      StatusFailed,
			CaptureTime: stamp,
			Err:         err,
		}
	}

	if b.opts.SetFileModTime && hasTime {
		if err := os.Chtimes(path, captureTime, captureTime); err != nil {
			// embed already succeeded; the stale mtime is only cosmetic
			logger.Warn("could not update file timestamp", zap.Error(err))
		}
	}

	logger.Info("metadata embedded", zap.String("capture_time", stamp))
	return Outcome{
		Path:        path,
		SidecarPath: sidecarPath,
		Status:      StatusEmbedded,
		CaptureTime: stamp,
	}
}

// outcomeLog is the plain-text, one-line-per-file record of a run. It is
// the only shared resource when files are processed concurrently, so
// writes are serialized by a mutex.
type outcomeLog struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func newOutcomeLog(path string) (*outcomeLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &outcomeLog{f: f, w: bufio.NewWriter(f)}, nil
}

func (l *outcomeLog) record(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case o.Status == StatusEmbedded:
		ts := o.CaptureTime
		if ts == "" {
			ts = "None"
		}
		fmt.Fprintf(l.w, "IMAGE EMBEDDED SUCCESSFULLY: %s with date/time %s\n", o.Path, ts)
	case o.Status == StatusSkipped:
		fmt.Fprintf(l.w, "NO JSON METADATA FILE FOUND: %s\n", o.Path)
	case o.SidecarUnreadable:
		fmt.Fprintf(l.w, "FAILED TO READ JSON METADATA: %s\n", o.SidecarPath)
	default:
		fmt.Fprintf(l.w, "IMAGE EMBEDDING FAILED: %s\n", o.Path)
	}
}

func (l *outcomeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	flushErr := l.w.Flush()
	closeErr := l.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
