package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/crossbar-heterograph/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeSchema ChangeType = iota
	ChangeTypeTable
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeSchema:
		return "schema"
	case ChangeTypeTable:
		return "table"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// flushDelay batches the burst of events a single save produces
const flushDelay = 100 * time.Millisecond

// FileWatcher watches the data directory and the schema file for changes
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	dataDir    string
	schemaPath string
	events     chan ChangeEvent
	done       chan struct{}
	stopOnce   sync.Once
}

// NewFileWatcher creates a new file system watcher
func NewFileWatcher(dataDir, schemaPath string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:    watcher,
		dataDir:    filepath.Clean(dataDir),
		schemaPath: filepath.Clean(schemaPath),
		events:     make(chan ChangeEvent, 100),
		done:       make(chan struct{}),
	}

	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	if err := fw.watcher.Add(fw.dataDir); err != nil {
		return fmt.Errorf("failed to watch data directory: %w", err)
	}

	// Editors often replace files on save, so watch the directory holding
	// the schema rather than the file itself
	schemaDir := filepath.Dir(fw.schemaPath)
	if schemaDir != fw.dataDir {
		if err := fw.watcher.Add(schemaDir); err != nil {
			logging.Warn("failed to watch schema directory", "path", schemaDir, "error", err)
		}
	}

	logging.Info("started watching inputs", "data", fw.dataDir, "schema", fw.schemaPath)

	// Process events
	go fw.processEvents(ctx)

	return nil
}

// Classify maps a changed path onto a change type. ok is false for paths
// that do not affect the build.
func (fw *FileWatcher) Classify(path string) (ChangeType, bool) {
	path = filepath.Clean(path)
	if path == fw.schemaPath {
		return ChangeTypeSchema, true
	}
	if filepath.Dir(path) == fw.dataDir && strings.EqualFold(filepath.Ext(path), ".csv") {
		return ChangeTypeTable, true
	}
	return 0, false
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	var schemaFiles []string
	var tableFiles []string

	flushTimer := time.NewTimer(flushDelay)
	flushTimer.Stop()

	flush := func() {
		if len(schemaFiles) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeSchema,
				Paths:     schemaFiles,
				Timestamp: time.Now(),
			}
			schemaFiles = nil
		}
		if len(tableFiles) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeTable,
				Paths:     tableFiles,
				Timestamp: time.Now(),
			}
			tableFiles = nil
		}
	}

	defer close(fw.events)

	for {
		select {
		case <-ctx.Done():
			fw.Stop()
			return

		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}

			changeType, relevant := fw.Classify(event.Name)
			if !relevant {
				continue
			}
			logging.Trace("input changed", "path", event.Name, "op", event.Op.String())

			switch changeType {
			case ChangeTypeSchema:
				schemaFiles = append(schemaFiles, event.Name)
			case ChangeTypeTable:
				tableFiles = append(tableFiles, event.Name)
			}
			flushTimer.Reset(flushDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.done)
		err = fw.watcher.Close()
	})
	return err
}
