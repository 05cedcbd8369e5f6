package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/openfs/openfs/internal/index"
	isync "github.com/openfs/openfs/internal/sync"
)

func newWatchCmd() *cobra.Command {
	var queueDB string

	c := &cobra.Command{
		Use:   "watch PATH",
		Short: "Watch a local mount's root for changes and feed them into the durable work queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			doc, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			mc, ok := mountByPrefix(doc, path)
			if !ok {
				return fmt.Errorf("no mount covers %q", path)
			}
			bc, ok := doc.BackendFor(mc.Backend)
			if !ok || bc.Type != "fs" {
				return fmt.Errorf("watch requires an fs-backed mount, mount %q is %q", mc.Path, bc.Type)
			}

			debounce := mc.Watch.Debounce.Std()
			if debounce == 0 {
				debounce = 500 * time.Millisecond
			}

			q, err := isync.OpenWorkQueue(isync.WorkQueueOptions{
				Path:     queueDB,
				Debounce: debounce,
			})
			if err != nil {
				return err
			}
			defer q.Close()

			pipeline, err := pipelineFor(doc, mc)
			if err != nil {
				return err
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			if err := addRecursive(watcher, bc.Root); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go drainWatchQueue(ctx, q, pipeline, bc.Root)

			log.WithField("root", bc.Root).Info("watching for changes")
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					handleWatchEvent(q, bc.Root, ev)
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.WithError(err).Warn("watcher error")
				}
			}
		},
	}
	c.Flags().StringVar(&queueDB, "queue-db", ".openfs-watch-queue.db", "path to the durable watch work-queue database")
	return c
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func handleWatchEvent(q *isync.WorkQueue, root string, ev fsnotify.Event) {
	rel := strings.TrimPrefix(strings.TrimPrefix(ev.Name, root), string(os.PathSeparator))
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&fsnotify.Remove == fsnotify.Remove || ev.Op&fsnotify.Rename == fsnotify.Rename:
		if err := q.Enqueue(rel, isync.EventDeleted); err != nil {
			log.WithError(err).WithField("path", rel).Warn("enqueue delete failed")
		}
	case ev.Op&fsnotify.Write == fsnotify.Write || ev.Op&fsnotify.Create == fsnotify.Create:
		if err := q.Enqueue(rel, isync.EventChanged); err != nil {
			log.WithError(err).WithField("path", rel).Warn("enqueue change failed")
		}
	}
}

// drainWatchQueue polls the work queue and reindexes (or removes) the
// files it reports ready, the way the CachedBackend's SyncEngine drains
// its own in-memory queue against the inner backend.
func drainWatchQueue(ctx context.Context, q *isync.WorkQueue, pipeline *index.Pipeline, root string) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			items, err := q.FetchReady(16)
			if err != nil {
				log.WithError(err).Warn("fetch ready failed")
				continue
			}
			for _, item := range items {
				if processErr := processWatchItem(ctx, pipeline, root, item); processErr != nil {
					if err := q.Fail(item.ID, processErr); err != nil {
						log.WithError(err).WithField("path", item.Path).Warn("mark failed failed")
					}
					continue
				}
				if err := q.Complete(item.ID); err != nil {
					log.WithError(err).WithField("path", item.Path).Warn("mark complete failed")
				}
			}
		}
	}
}

func processWatchItem(ctx context.Context, pipeline *index.Pipeline, root string, item isync.WorkQueueItem) error {
	if item.EventType == isync.EventDeleted {
		return pipeline.DeleteFile(ctx, item.Path)
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(item.Path)))
	if err != nil {
		if os.IsNotExist(err) {
			return pipeline.DeleteFile(ctx, item.Path)
		}
		return err
	}
	_, err = pipeline.IndexFile(ctx, item.Path, data)
	return err
}
