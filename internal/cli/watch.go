package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*CheckOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{CheckOptions: &CheckOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch <scenarios-dir>",
		Short: "Rerun checks when scenarios or the contract change",
		Long: `Run check once, then again every time a scenario (.yaml, .yml) or
contract (.cue) file changes. Bursts of changes are collapsed into one
run. Stop with Ctrl-C.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	addCheckFlags(cmd, opts.CheckOptions)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 300*time.Millisecond, "quiet period before a rerun")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger(formatter.GetErrWriter())

	dirs := []string{scenariosDir}
	if opts.Contract != "" {
		dirs = append(dirs, opts.Contract)
	}
	for _, d := range dirs {
		if _, err := os.Stat(d); os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("directory not found: %s", d))
		}
	}

	w, err := newWatcher(dirs, opts.Debounce, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch", err)
	}
	defer w.Close()

	check := func() {
		err := runCheck(ctx, opts.CheckOptions, scenariosDir, cmd)
		if err != nil && GetExitCode(err) == ExitCommandError && ctx.Err() == nil {
			fmt.Fprintf(formatter.GetErrWriter(), "Error: %v\n", err)
		}
		formatter.VerboseLog("Watching %s for changes", strings.Join(dirs, ", "))
	}

	check()
	w.Run(ctx, check)
	return nil
}

// watcher reports debounced changes to scenario and contract files.
type watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

func newWatcher(dirs []string, debounce time.Duration, logger *slog.Logger) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fs: fsw, debounce: debounce, logger: logger}
	for _, d := range dirs {
		if err := w.addRecursive(d); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run calls onChange after every burst of relevant events until ctx is
// done. onChange runs on the caller's goroutine.
func (w *watcher) Run(ctx context.Context, onChange func()) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			if !isWatchedFile(event.Name) {
				// Pick up new subdirectories.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.addRecursive(event.Name)
					}
				}
				continue
			}

			w.logger.Debug("file change detected", "file", event.Name, "op", event.Op.String())

			// Debounce: reset timer on each event.
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timerC:
			timerC = nil
			onChange()
		}
	}
}

// Close stops watching.
func (w *watcher) Close() error {
	return w.fs.Close()
}

func (w *watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Golden snapshots are written by check itself.
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return w.fs.Add(path)
		}
		return nil
	})
}

func isWatchedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}
