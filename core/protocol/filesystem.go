package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"gocddb/logger"
	"gocddb/model"
)

// Filesystem serves commands from a FreeDB dump unpacked in a directory.
// Category counts for stat are cached in memory (and in stat.db when
// UseStatFile is set) until the dump changes.
type Filesystem struct {
	exchange
	dir       string
	opts      Options
	commands  commandTable
	connected bool

	mu      sync.Mutex
	counts  []model.CategoryCount
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFilesystem returns a backend reading the dump at dir.
func NewFilesystem(dir string, opts Options) *Filesystem {
	f := &Filesystem{dir: dir, opts: opts.withDefaults()}
	cmds := &dumpCommands{store: dirStore{dir: dir}, iface: "Filesystem", opts: f.opts, counts: f.cachedCounts}
	f.commands = cmds.table()
	return f
}

// Connect checks the dump directory and starts watching it.
func (f *Filesystem) Connect(ctx context.Context) error {
	if f.connected {
		return nil
	}
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("failed to open dump %s: %w", f.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("dump %s is not a directory: %w", f.dir, ErrNotConnected)
	}

	if err := f.watch(); err != nil {
		logger.Warn("stat cache will not be invalidated", logger.String("dir", f.dir), logger.ErrorField(err))
	}
	f.connected = true
	return nil
}

// Disconnect stops watching the dump.
func (f *Filesystem) Disconnect() error {
	f.connected = false

	f.mu.Lock()
	w, done := f.watcher, f.done
	f.watcher, f.done = nil, nil
	f.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}

// Connected reports whether Connect succeeded.
func (f *Filesystem) Connected() bool {
	return f.connected
}

// Remote is always false.
func (f *Filesystem) Remote() bool {
	return false
}

// Send executes command against the dump.
func (f *Filesystem) Send(ctx context.Context, command string) error {
	if err := f.Connect(ctx); err != nil {
		return err
	}
	f.run(ctx, f.commands, command)
	logger.Debug("filesystem exchange", logger.String("command", command), logger.Int("status", f.status))
	return nil
}

func (f *Filesystem) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(f.dir); err != nil {
		w.Close()
		return err
	}
	categories, _ := dirStore{dir: f.dir}.Categories(context.Background())
	for _, category := range categories {
		if err := w.Add(filepath.Join(f.dir, category)); err != nil {
			logger.Warn("failed to watch category", logger.String("category", category), logger.ErrorField(err))
		}
	}

	done := make(chan struct{})
	f.mu.Lock()
	f.watcher, f.done = w, done
	f.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				f.handleEvent(w, event)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("dump watcher error", logger.ErrorField(err))
			}
		}
	}()
	return nil
}

func (f *Filesystem) handleEvent(w *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	switch filepath.Base(event.Name) {
	case statFile, motdFile, sitesFile:
		return
	}

	if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == filepath.Clean(f.dir) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.Add(event.Name)
		}
	}
	f.invalidate()
}

func (f *Filesystem) invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = nil
	if f.opts.UseStatFile {
		_ = os.Remove(filepath.Join(f.dir, statFile))
	}
}

func (f *Filesystem) cachedCounts(ctx context.Context) ([]model.CategoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts != nil {
		return f.counts, nil
	}

	store := dirStore{dir: f.dir}
	if f.opts.UseStatFile {
		if counts, ok := f.readStatFile(ctx, store); ok {
			f.counts = counts
			return counts, nil
		}
	}

	counts, err := countAll(ctx, store)
	if err != nil {
		return nil, err
	}
	if f.opts.UseStatFile {
		if err := f.writeStatFile(counts); err != nil {
			logger.Warn("failed to write stat file", logger.String("dir", f.dir), logger.ErrorField(err))
		}
	}
	f.counts = counts
	return counts, nil
}

// readStatFile loads cached counts. The cache is rejected when any current
// category is missing from it.
func (f *Filesystem) readStatFile(ctx context.Context, store dirStore) ([]model.CategoryCount, bool) {
	file, err := os.Open(filepath.Join(f.dir, statFile))
	if err != nil {
		return nil, false
	}
	defer file.Close()

	cached := make(map[string]int)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
			cached[strings.TrimSpace(key)] = n
		}
	}

	categories, err := store.Categories(ctx)
	if err != nil {
		return nil, false
	}
	counts := make([]model.CategoryCount, 0, len(categories))
	for _, category := range categories {
		n, ok := cached[category]
		if !ok {
			return nil, false
		}
		counts = append(counts, model.CategoryCount{Category: category, Count: n})
	}
	return counts, true
}

func (f *Filesystem) writeStatFile(counts []model.CategoryCount) error {
	var b strings.Builder
	for _, c := range counts {
		fmt.Fprintf(&b, "%s=%d\r\n", c.Category, c.Count)
	}
	return os.WriteFile(filepath.Join(f.dir, statFile), []byte(b.String()), 0644)
}

// dirStore is a dumpStore over a local directory.
type dirStore struct {
	dir string
}

func (s dirStore) Categories(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var categories []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			categories = append(categories, e.Name())
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (s dirStore) ReadFile(_ context.Context, category, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, category, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", errNoEntry
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s dirStore) CountEntries(_ context.Context, category string) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, category))
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
