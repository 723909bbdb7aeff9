package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/howeyc/fsnotify"
	"github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// LoadMapping reads a key to image table from a YAML or TOML file.
// Each value is an image in ParseImage notation, for example
//
//	A: "##...|#..#.|####.|#..#.|#..#."
//
// Keys missing from the file fall back to DefaultImageMapping.
func LoadMapping(path string) (ImageMapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries := map[string]string{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		tree, err := toml.LoadBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, k := range tree.Keys() {
			s, ok := tree.GetPath([]string{k}).(string)
			if !ok {
				return nil, fmt.Errorf("parse %s: key %q is not a string", path, k)
			}
			entries[k] = s
		}
	default:
		return nil, fmt.Errorf("unsupported mapping file extension %q", filepath.Ext(path))
	}

	table := make(map[string]Image, len(entries))
	for k, v := range entries {
		img, err := ParseImage(v)
		if err != nil {
			return nil, fmt.Errorf("%s: key %q: %w", path, k, err)
		}
		table[k] = img
	}
	return TableMapping(table, nil), nil
}

// WatchMapping calls apply with a freshly loaded mapping whenever the file
// changes, until ctx is done. Load errors are logged and the previous
// mapping stays in effect.
func WatchMapping(ctx context.Context, path string, logger *slog.Logger, apply func(ImageMapping)) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Watch(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var reload <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				reload = nil
				m, err := LoadMapping(path)
				if err != nil {
					logger.Warn("Image mapping reload failed", "path", path, "error", err)
					break
				}
				logger.Info("Image mapping reloaded", "path", path)
				apply(m)
			case ev := <-watcher.Event:
				if filepath.Clean(ev.Name) == path && !ev.IsAttrib() && !ev.IsDelete() {
					reload = time.After(100 * time.Millisecond)
				}
			case err := <-watcher.Error:
				logger.Warn("Image mapping watcher", "error", err)
			}
		}
	}()
	return nil
}
