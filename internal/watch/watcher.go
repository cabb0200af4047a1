package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/pa-autofill/constants"
)

const DefaultDebounce = 2 * time.Second

type Config struct {
	Root        string        // input directory holding one folder per patient
	InitialScan bool          // emit every existing folder once at start
	Debounce    time.Duration // coalesce bursts of writes while files are copied in
}

// Folders watches Root and emits the name of a patient folder after PDFs
// inside it were created, written or renamed. Names are emitted once per
// debounce window, sorted. Both channels close when ctx is done.
func Folders(ctx context.Context, cfg Config, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		return nil, nil, errors.New("no root provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch.create_failed", "error", err)
		return nil, nil, err
	}
	existing, err := addTree(w, cfg.Root)
	if err != nil {
		logger.Error("watch.add_root_failed", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}
	logger.Info("watch.started", "root", cfg.Root, "folders", len(existing))

	out := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watch.close_failed", "error", err)
			}
		}()

		pending := map[string]struct{}{}
		if cfg.InitialScan {
			for _, name := range existing {
				pending[name] = struct{}{}
			}
		}

		var timer *time.Timer
		var fire <-chan time.Time
		if len(pending) > 0 {
			timer = time.NewTimer(0)
			fire = timer.C
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				name, isDir := classify(cfg.Root, e)
				if isDir {
					if err := w.Add(e.Name); err != nil {
						logger.Warn("watch.add_dir_failed", "path", e.Name, "error", err)
					}
				}
				if name == "" {
					continue
				}
				pending[name] = struct{}{}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(cfg.Debounce)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				for _, name := range drain(pending) {
					logger.Debug("watch.folder_changed", "folder", name)
					select {
					case out <- name:
					case <-ctx.Done():
						return
					}
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return out, errCh, nil
}

// addTree watches root and its immediate subdirectories and returns their names.
func addTree(w *fsnotify.Watcher, root string) ([]string, error) {
	if err := w.Add(root); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := w.Add(filepath.Join(root, e.Name())); err != nil {
			return nil, err
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// classify maps an event onto the patient folder it touches. isDir reports a
// new folder directly under root that needs its own watch.
func classify(root string, e fsnotify.Event) (folder string, isDir bool) {
	name, rest, ok := FolderOf(root, e.Name)
	if !ok {
		return "", false
	}
	if rest == "" {
		if e.Has(fsnotify.Create) {
			if st, err := os.Stat(e.Name); err == nil && st.IsDir() {
				return name, true
			}
		}
		return "", false
	}
	if constants.NormalizeExt(filepath.Ext(rest)) != "pdf" {
		return "", false
	}
	if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return "", false
	}
	return name, false
}

// FolderOf splits path into the patient folder under root and the remainder
// inside it. ok is false for paths outside root and for root itself.
func FolderOf(root, path string) (folder, rest string, ok bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", false
	}
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	if len(parts) == 1 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}

func drain(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
		delete(set, k)
	}
	sort.Strings(out)
	return out
}
