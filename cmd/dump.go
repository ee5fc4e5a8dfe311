package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// dumpEntry is one file of an unpacked FreeDB dump. Category is empty for
// top level files such as motd.txt.
type dumpEntry struct {
	Category string
	Name     string
	Path     string
}

// walkDump calls fn for every file in dir and its category directories.
// Hidden files are skipped.
func walkDump(ctx context.Context, dir string, fn func(dumpEntry) error) error {
	top, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read dump %s: %w", dir, err)
	}
	for _, e := range top {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() {
			if err := fn(dumpEntry{Name: e.Name(), Path: filepath.Join(dir, e.Name())}); err != nil {
				return err
			}
			continue
		}

		catDir := filepath.Join(dir, e.Name())
		files, err := os.ReadDir(catDir)
		if err != nil {
			return fmt.Errorf("failed to read category %s: %w", e.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			entry := dumpEntry{Category: e.Name(), Name: f.Name(), Path: filepath.Join(catDir, f.Name())}
			if err := fn(entry); err != nil {
				return err
			}
		}
	}
	return nil
}
