// Package reload restarts a child process whenever watched source files
// change. It is a development helper for running `hearth serve` while
// editing configuration or static content.
package reload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultGrace is how long a child gets to exit after SIGTERM.
	DefaultGrace = 2 * time.Second
	// DefaultDebounce coalesces bursts of file events into one restart.
	DefaultDebounce = 500 * time.Millisecond
)

// DefaultExts are the file extensions watched when none are configured.
var DefaultExts = []string{".go", ".json", ".yaml", ".yml", ".html"}

// ErrNoCommand is returned when the watcher has nothing to run.
var ErrNoCommand = errors.New("no command to run")

// ExitError reports a child that exited on its own with a non-zero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("child exited with status %d", e.Code)
}

// Watcher runs Command and restarts it when files under Dirs change.
type Watcher struct {
	Dirs     []string
	Exts     []string
	Command  string
	Args     []string
	Grace    time.Duration
	Debounce time.Duration
	Logger   *slog.Logger

	// Stdout and Stderr receive the child's output; nil means os.Stdout / os.Stderr.
	Stdout *os.File
	Stderr *os.File
}

func (w *Watcher) withDefaults() {
	if len(w.Dirs) == 0 {
		w.Dirs = []string{"."}
	}
	if len(w.Exts) == 0 {
		w.Exts = DefaultExts
	}
	if w.Grace <= 0 {
		w.Grace = DefaultGrace
	}
	if w.Debounce <= 0 {
		w.Debounce = DefaultDebounce
	}
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
	if w.Stdout == nil {
		w.Stdout = os.Stdout
	}
	if w.Stderr == nil {
		w.Stderr = os.Stderr
	}
}

// Run starts the child and supervises it until ctx is cancelled, in which
// case the child is stopped and Run returns nil. A child that exits by
// itself with a non-zero status ends Run with an *ExitError; a clean exit
// waits for the next change and starts it again.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Command == "" {
		return ErrNoCommand
	}
	w.withDefaults()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, dir := range w.Dirs {
		if err := w.addRecursive(fw, dir); err != nil {
			return err
		}
	}

	var (
		child  *exec.Cmd
		exited <-chan error
	)
	start := func() error {
		child, exited, err = w.start()
		return err
	}
	if err := start(); err != nil {
		return err
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("stopping watched process")
			w.stop(child, exited)
			return nil

		case err := <-exited:
			exited = nil
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
				w.Logger.Error("watched process failed", "pid", child.Process.Pid, "code", exitErr.ExitCode())
				return &ExitError{Code: exitErr.ExitCode()}
			}
			w.Logger.Info("watched process exited, waiting for changes", "pid", child.Process.Pid)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					_ = w.addRecursive(fw, ev.Name)
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.Logger.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			debounce = time.After(w.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("watch error", "err", err)

		case <-debounce:
			debounce = nil
			w.Logger.Info("restarting", "command", w.commandLine())
			if exited != nil {
				w.stop(child, exited)
			}
			if err := start(); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) start() (*exec.Cmd, <-chan error, error) {
	cmd := exec.Command(w.Command, w.Args...)
	cmd.Stdout = w.Stdout
	cmd.Stderr = w.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", w.commandLine(), err)
	}
	w.Logger.Info("started watched process", "pid", cmd.Process.Pid, "command", w.commandLine())

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()
	return cmd, exited, nil
}

// stop sends SIGTERM and escalates to SIGKILL after the grace period.
func (w *Watcher) stop(cmd *exec.Cmd, exited <-chan error) {
	if cmd == nil || exited == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		w.Logger.Debug("signal failed", "pid", cmd.Process.Pid, "err", err)
	}

	select {
	case <-exited:
	case <-time.After(w.Grace):
		w.Logger.Warn("process ignored SIGTERM, killing", "pid", cmd.Process.Pid)
		_ = cmd.Process.Kill()
		<-exited
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return slices.Contains(w.Exts, strings.ToLower(filepath.Ext(ev.Name)))
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) commandLine() string {
	return strings.Join(append([]string{w.Command}, w.Args...), " ")
}
