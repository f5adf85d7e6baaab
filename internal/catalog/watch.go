package catalog

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads a collection whenever its dataset file is written or
// replaced, until ctx is done. onReload, if not nil, is called with the
// collection name after each successful reload.
//
// Directories are watched rather than files so that editors replacing a file
// through a rename are noticed.
func (c *Catalog) Watch(ctx context.Context, onReload func(name string)) error {
	byPath := make(map[string][]string)
	c.mu.RLock()
	for name, table := range c.tables {
		byPath[table.Path()] = append(byPath[table.Path()], name)
	}
	c.mu.RUnlock()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for path := range byPath {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return err
		}
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				for _, name := range byPath[filepath.Clean(event.Name)] {
					if err := c.Reload(name); err != nil {
						slog.WarnContext(ctx, "Failed to reload collection", "collection", name, "err", err)
						continue
					}
					slog.InfoContext(ctx, "Reloaded collection", "collection", name)
					if onReload != nil {
						onReload(name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching datasets", "err", err)
			}
		}
	}()
	return nil
}
