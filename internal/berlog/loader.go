package berlog

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/rxsens/internal/fsutil"
	"github.com/banshee-data/rxsens/internal/monitoring"
)

// ErrNoCSVFiles is returned when a run directory holds no CSV logs.
var ErrNoCSVFiles = errors.New("no CSV files found")

// FileError records a log that could not be turned into a record.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// Run is the set of condition records loaded from one directory, e.g. the
// logs of one code branch.
type Run struct {
	ID       string
	Dir      string
	Records  []*ConditionRecord
	Failures []*FileError
}

// Loader reads run directories.
type Loader struct {
	FS      fsutil.FileSystem
	Workers int // maximum files parsed concurrently; values below 1 mean 1
}

// NewLoader creates a loader reading from the OS filesystem.
func NewLoader(workers int) *Loader {
	return &Loader{FS: fsutil.OSFileSystem{}, Workers: workers}
}

// LoadRun parses every *.csv file directly inside dir. A file that fails to
// open or parse is logged and recorded in Run.Failures; the other files are
// still loaded. Records are returned in lexical file order.
func (l *Loader) LoadRun(dir string) (*Run, error) {
	fsys := l.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	paths, err := fsutil.ListFiles(fsys, dir, ".csv")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCSVFiles, dir)
	}

	records := make([]*ConditionRecord, len(paths))
	failures := make([]*FileError, len(paths))

	var g errgroup.Group
	g.SetLimit(max(l.Workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			rec, err := readFile(fsys, path)
			if err != nil {
				failures[i] = &FileError{Path: path, Err: err}
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	// Per-file errors are collected above; the group itself never fails.
	_ = g.Wait()

	run := &Run{ID: uuid.NewString(), Dir: dir}
	for i := range paths {
		if failures[i] != nil {
			monitoring.Warnf("skipping %v", failures[i])
			run.Failures = append(run.Failures, failures[i])
			continue
		}
		run.Records = append(run.Records, records[i])
	}
	return run, nil
}

func readFile(fsys fsutil.FileSystem, path string) (*ConditionRecord, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLog(f, filepath.Base(path))
}
