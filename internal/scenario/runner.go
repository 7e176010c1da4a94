package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/keys"
	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/pubsub"
	"github.com/zjrosen/panesync/internal/session"
	"github.com/zjrosen/panesync/internal/simhost"
	"github.com/zjrosen/panesync/internal/storage"
	"github.com/zjrosen/panesync/internal/tracker"
)

// Epoch is the fake clock's start time. Record offsets are relative to it.
var Epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// Record kinds that do not come from engine notifications.
const (
	KindTextSaveSuppressed = "text-save.suppressed"
	KindKeyUnhandled       = "key.unhandled"
	KindStepFailed         = "step.failed"
)

// Record is one observable outcome of a step.
type Record struct {
	Step   int           // 1-based step number
	At     time.Duration // fake time since Epoch
	Kind   string
	Pane   string // alias, if known
	Path   string
	Detail string
}

func (r Record) String() string {
	s := fmt.Sprintf("#%d +%s %s", r.Step, r.At, r.Kind)
	if r.Pane != "" {
		s += " pane=" + r.Pane
	}
	if r.Path != "" {
		s += " path=" + r.Path
	}
	if r.Detail != "" {
		s += " " + r.Detail
	}
	return s
}

// Result is what a replay produced.
type Result struct {
	Records []Record
	// Files holds the content of every document in the root after the run.
	Files map[string]string
}

// Kinds returns the record kinds in order.
func (r *Result) Kinds() []string {
	out := make([]string, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Kind
	}
	return out
}

type runner struct {
	sc      *Scenario
	sess    *session.Session
	clock   *clock.Fake
	notes   <-chan pubsub.Event[core.Notification]
	panes   map[string]host.PaneID
	aliases map[host.PaneID]string
	windows map[string]host.WindowID
	focus   host.PaneID
	step    int
	records []Record
}

// Run writes the scenario's files under cfg.Storage.Root and replays its
// steps against a fresh session on a fake clock.
func Run(ctx context.Context, sc *Scenario, cfg config.Config) (*Result, error) {
	root := cfg.Storage.Root
	for name, content := range sc.Files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("preparing %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if sc.Device != "" {
		cfg.Device = sc.Device
	}
	if len(sc.Flags) > 0 {
		merged := make(map[string]bool, len(cfg.Flags)+len(sc.Flags))
		for k, v := range cfg.Flags {
			merged[k] = v
		}
		for k, v := range sc.Flags {
			merged[k] = v
		}
		cfg.Flags = merged
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	fake := clock.NewFake(Epoch)
	sess, err := session.Open(ctx, cfg, session.Options{Clock: fake})
	if err != nil {
		return nil, err
	}
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &runner{
		sc:      sc,
		sess:    sess,
		clock:   fake,
		notes:   sess.Ctx.Notifications.Subscribe(subCtx),
		panes:   map[string]host.PaneID{},
		aliases: map[host.PaneID]string{},
		windows: map[string]host.WindowID{"main": simhost.MainWindow},
	}
	log.Info(log.CatView, "Replaying scenario", "name", sc.Name, "steps", len(sc.Steps))

	var runErr error
	for i, st := range sc.Steps {
		r.step = i + 1
		if err := r.apply(ctx, st); err != nil {
			runErr = fmt.Errorf("step %d (%s): %w", r.step, st.Describe(), err)
			break
		}
		r.drain()
	}

	closeErr := sess.Close(ctx)
	r.drain()
	if runErr != nil {
		return &Result{Records: r.records}, errors.Join(runErr, closeErr)
	}

	files, err := snapshot(ctx, sess.Store)
	if err != nil {
		return nil, err
	}
	return &Result{Records: r.records, Files: files}, closeErr
}

func (r *runner) apply(ctx context.Context, st Step) error {
	switch {
	case st.Open != nil:
		window := r.windows[defaultString(st.Open.Window, "main")]
		id, err := r.sess.OpenPane(ctx, window, st.Open.Path)
		if err != nil {
			return err
		}
		r.panes[st.Open.Pane] = id
		r.aliases[id] = st.Open.Pane
	case st.Close != "":
		id := r.panes[st.Close]
		r.sess.ClosePane(id)
		if r.focus == id {
			r.focus = ""
			r.sess.Engine.ActivePaneChanged(ctx, "", tracker.Leaf{})
		}
	case st.Focus != "":
		r.focusPane(ctx, r.panes[st.Focus])
	case st.Edit != "":
		return r.edit(ctx, r.panes[st.Edit])
	case st.Save != "":
		r.save(ctx, r.panes[st.Save])
	case st.Toggle != "":
		return r.toggle(ctx, r.panes[st.Toggle])
	case st.OpenAsText != "":
		r.sess.Engine.OpenAsText(st.OpenAsText)
	case st.Window != "":
		r.windows[st.Window] = r.sess.OpenWindow().ID()
	case st.CloseWindow != "":
		id := r.windows[st.CloseWindow]
		if !r.sess.CloseWindow(id) {
			return fmt.Errorf("window %s cannot be closed", st.CloseWindow)
		}
		delete(r.windows, st.CloseWindow)
	case st.Theme != "":
		r.sess.Host.SetTheme(host.Theme(st.Theme))
	case st.Overlay != "":
		r.sess.Host.ShowOverlay(r.windows[st.Overlay])
	case st.Drawer != "":
		r.sess.Host.ToggleDrawer(r.windows[st.Drawer])
	case st.Key != "":
		if !r.sess.Host.Dispatch(st.Key) {
			r.record(KindKeyUnhandled, r.focus, "", st.Key)
		}
	case st.Restyle:
		return r.sess.Engine.StyleChanged(ctx)
	case st.Advance > 0:
		r.clock.Advance(st.Advance)
	case st.Modify != nil:
		path := filepath.Join(r.sess.Store.Root(), filepath.FromSlash(st.Modify.Path))
		if err := os.WriteFile(path, []byte(st.Modify.Content), 0o600); err != nil {
			return err
		}
		if n := r.sess.Engine.FileModified(ctx, st.Modify.Path); n > 0 {
			r.record("reloaded", "", st.Modify.Path, fmt.Sprintf("views=%d", n))
		}
	case st.Rename != nil:
		if err := r.sess.Host.RenameFile(ctx, st.Rename.From, st.Rename.To); err != nil {
			return err
		}
		r.sess.Engine.FileRenamed(ctx, st.Rename.From, st.Rename.To)
	case st.Delete != "":
		if err := r.sess.Store.Delete(ctx, st.Delete); err != nil {
			return err
		}
		r.sess.Engine.FileDeleted(ctx, st.Delete)
	case st.Teardown:
		return r.sess.Engine.Teardown(ctx)
	}
	return nil
}

func (r *runner) leaf() tracker.Leaf {
	st, ok := r.sess.Host.PaneState(r.focus)
	if !ok {
		return tracker.Leaf{}
	}
	return tracker.Leaf{Pane: r.focus, Type: st.Type, FilePath: st.FilePath}
}

func (r *runner) focusPane(ctx context.Context, id host.PaneID) {
	origin := r.leaf()
	r.focus = id
	r.sess.Engine.ActivePaneChanged(ctx, id, origin)
	r.sess.Engine.LayoutChanged()
}

// edit adds a card to a canvas pane or appends a line through a text pane.
func (r *runner) edit(ctx context.Context, id host.PaneID) error {
	st, ok := r.sess.Host.PaneState(id)
	if !ok {
		return fmt.Errorf("pane %s is closed", r.aliases[id])
	}
	if st.Type == host.ViewTypeCanvas {
		c, ok := r.sess.Host.Canvas(id)
		if !ok {
			return fmt.Errorf("pane %s has no canvas", r.aliases[id])
		}
		c.AddCard(fmt.Sprintf("card %d", len(c.Cards())+1))
		r.sess.Engine.Edited(id)
		return nil
	}

	data, err := r.sess.Store.Read(ctx, st.FilePath)
	if err != nil {
		return err
	}
	_, body := storage.SplitFrontmatter(data)
	line := fmt.Sprintf("- note +%s\n", r.elapsed())
	err = r.sess.Host.SaveText(ctx, st.FilePath, string(body)+line)
	if errors.Is(err, simhost.ErrSuppressed) {
		r.record(KindTextSaveSuppressed, id, st.FilePath, "")
		return nil
	}
	return err
}

func (r *runner) save(ctx context.Context, id host.PaneID) {
	d, ok := r.sess.Engine.Tracker().Lookup(id)
	if !ok {
		return
	}
	if id == r.focus && r.sess.Host.Dispatch(keys.Canvas.Save.Keys()[0]) {
		return
	}
	r.sess.Engine.Autosave().Cancel(id)
	// Failures arrive as a SaveFailed notification.
	_ = d.Save(ctx, false)
}

// toggle flips the pane's mode and focuses it, the way a toggle command
// issued from that pane would.
func (r *runner) toggle(ctx context.Context, id host.PaneID) error {
	st, ok := r.sess.Host.PaneState(id)
	if !ok {
		return fmt.Errorf("pane %s is closed", r.aliases[id])
	}
	origin := r.leaf()
	if _, err := r.sess.Engine.ToggleMode(ctx, id, st.FilePath); err != nil {
		r.record(KindStepFailed, id, st.FilePath, err.Error())
		return nil
	}
	r.focus = id
	r.sess.Engine.ActivePaneChanged(ctx, id, origin)
	return nil
}

func (r *runner) drain() {
	for {
		select {
		case ev, ok := <-r.notes:
			if !ok {
				return
			}
			n := ev.Payload
			var detail string
			switch ev.Type {
			case core.ModeChanged:
				detail = "mode=" + string(n.Mode)
			case core.SaveCompleted:
				detail = fmt.Sprintf("rev=%d", n.Revision)
			case core.BackgroundChanged:
				detail = "color=" + n.Color
			case core.ObserverDisabled:
				detail = "source=" + n.Source
			}
			if n.Err != nil {
				detail = "err=" + n.Err.Error()
			}
			r.records = append(r.records, Record{
				Step:   r.step,
				At:     ev.Timestamp.Sub(Epoch),
				Kind:   string(ev.Type),
				Pane:   r.aliases[n.Pane],
				Path:   n.Path,
				Detail: detail,
			})
		default:
			return
		}
	}
}

func (r *runner) record(kind string, pane host.PaneID, path, detail string) {
	r.records = append(r.records, Record{
		Step:   r.step,
		At:     r.elapsed(),
		Kind:   kind,
		Pane:   r.aliases[pane],
		Path:   path,
		Detail: detail,
	})
}

func (r *runner) elapsed() time.Duration {
	return r.clock.Now().Sub(Epoch)
}

func snapshot(ctx context.Context, store *storage.Store) (map[string]string, error) {
	paths, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := store.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		files[p] = string(data)
	}
	return files, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
