package watchers

import (
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/log"
)

// FileListAnnotation marks canvas documents in the host's file listing.
type FileListAnnotation struct {
	observer
	files    host.FileList
	isCanvas func(path string) bool
}

// NewFileListAnnotation creates a disabled annotation watcher.
func NewFileListAnnotation(ctx *core.Context, events host.UIEvents, files host.FileList, isCanvas func(string) bool) *FileListAnnotation {
	f := &FileListAnnotation{files: files, isCanvas: isCanvas}
	f.observer = observer{name: NameFileList, kind: host.EventFileListChanged, ctx: ctx, events: events, handle: f.onEvent}
	return f
}

// Enable subscribes and rescans every rendered entry.
func (f *FileListAnnotation) Enable() error {
	if err := f.enable(); err != nil {
		return err
	}
	f.mark(f.files.Entries())
	return nil
}

// Disable unsubscribes. Existing markers are left in place.
func (f *FileListAnnotation) Disable() { f.disable() }

func (f *FileListAnnotation) onEvent(ev host.UIEvent) {
	f.mark(ev.Entries)
}

func (f *FileListAnnotation) mark(entries []host.FileEntry) {
	marked := 0
	for _, e := range entries {
		canvas := f.isCanvas(e.Path)
		f.files.SetMarker(e.Path, canvas)
		if canvas {
			marked++
		}
	}
	log.Debug(log.CatWatch, "File list annotated", "entries", len(entries), "canvas", marked)
}
