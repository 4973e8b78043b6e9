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

// Package tecmd facilitates the command line interface (CLI)
// and implements the main().
package tecmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/takeoutembed/takeoutembed/embedder"
	"go.uber.org/zap"
)

func Main() {
	logFile := flag.String("log", "embed_log.txt", "path of the per-file outcome log to write")
	workers := flag.Int("workers", 1, "how many files to process concurrently")
	mtime := flag.Bool("mtime", false, "also set each file's modification time to its capture time")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	rootDir := flag.Arg(0)

	batch := embedder.NewBatch(embedder.Options{
		LogFile:        *logFile,
		Workers:        *workers,
		SetFileModTime: *mtime,
	})

	summary, err := batch.Run(context.Background(), rootDir)
	if err != nil {
		embedder.Log.Fatal("processing directory",
			zap.String("root", rootDir),
			zap.Error(err))
	}

	// per-file failures are batch-internal, not process-fatal
	fmt.Printf("Done. Embedded: %d, Failed: %d, Skipped: %d\n",
		summary.Embedded, summary.Failed, summary.Skipped)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <takeout-photos-dir>\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}
