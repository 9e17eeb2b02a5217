package salon

import (
	"context"
	"os"
	"time"
)

// Loader builds a fresh DB from whatever sources the caller watches.
type Loader func() (*DB, error)

// Watch rebuilds the knowledge base when any of paths changes and passes the
// result to onUpdate. It performs an initial load before entering the watch
// loop and returns its error. Failed reloads go to onError and keep the
// previous snapshot.
func Watch(ctx context.Context, paths []string, interval time.Duration, load Loader, onUpdate func(*DB), onError func(error)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	db, err := load()
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(db)
	}
	lastMod := latestModTime(paths)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mod := latestModTime(paths)
				if !mod.After(lastMod) {
					continue
				}
				db, err := load()
				if err != nil {
					if onError != nil {
						onError(err)
					}
					lastMod = mod
					continue
				}
				lastMod = mod
				if onUpdate != nil {
					onUpdate(db)
				}
			}
		}
	}()

	return nil
}

func latestModTime(paths []string) time.Time {
	var latest time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}
