package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/model"
)

// PackHandler receives the definitions of a pack file.
// It is called from the watcher goroutine.
type PackHandler func(file string, defs []model.CarDefinition)

type packWatcher struct {
	ctx     context.Context
	dir     string
	handler PackHandler
	log     *log.Logger
}

// WatchPacks loads all pack files in dir and keeps watching the directory
// for new or changed files until ctx is done.
//
//nolint:whitespace // can't make both editor and linter happy
func WatchPacks(
	ctx context.Context, dir string, handler PackHandler,
) error {
	w := &packWatcher{
		ctx:     ctx,
		dir:     dir,
		handler: handler,
		log:     log.GetFromContext(ctx).Named("catalog.packs"),
	}
	w.loadExisting()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Error("could not create fsnotify watcher", log.ErrorField(err))
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		w.log.Error("could not watch pack dir", log.ErrorField(err))
		return err
	}
	go w.watch(watcher)
	return nil
}

func (w *packWatcher) loadExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("could not read pack dir", log.ErrorField(err))
		return
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && isPackFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.load(filepath.Join(w.dir, name))
	}
}

func (w *packWatcher) watch(watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("context done, stopping pack watcher")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				w.log.Info("watcher events channel closed, stopping pack watcher")
				return
			}
			w.log.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			if !isPackFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.load(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				w.log.Info("watcher errors channel closed, stopping pack watcher")
				return
			}
			w.log.Error("watcher error", log.ErrorField(err))
		}
	}
}

func (w *packWatcher) load(file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		w.log.Error("could not read pack", log.String("file", file), log.ErrorField(err))
		return
	}
	defs, err := Parse(data)
	if err != nil {
		w.log.Error("invalid pack", log.String("file", file), log.ErrorField(err))
		return
	}
	w.log.Info("pack loaded", log.String("file", file), log.Int("cars", len(defs)))
	w.handler(file, defs)
}

func isPackFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}
