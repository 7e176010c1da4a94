// Package scenario replays scripted workspace sessions against the engine
// on a fake clock and records the notifications they produce.
//
// A scenario is a YAML document:
//
//	files:
//	  a.md: |
//	    ---
//	    canvas-plugin: parsed
//	    ---
//	    - first
//	steps:
//	  - open: {pane: p1, path: a.md}
//	  - focus: p1
//	  - edit: p1
//	  - advance: 20s
//
// Every step carries exactly one action.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name   string            `yaml:"name"`
	Device string            `yaml:"device"`
	Flags  map[string]bool   `yaml:"flags"`
	Files  map[string]string `yaml:"files"`
	Steps  []Step            `yaml:"steps"`
}

// Step is one action. Pane and window fields name aliases introduced by
// open and window steps.
type Step struct {
	Open        *OpenStep     `yaml:"open"`
	Close       string        `yaml:"close"`
	Focus       string        `yaml:"focus"`
	Edit        string        `yaml:"edit"`
	Save        string        `yaml:"save"`
	Toggle      string        `yaml:"toggle"`
	OpenAsText  string        `yaml:"open_as_text"`
	Window      string        `yaml:"window"`
	CloseWindow string        `yaml:"close_window"`
	Theme       string        `yaml:"theme"`
	Overlay     string        `yaml:"overlay"`
	Drawer      string        `yaml:"drawer"`
	Key         string        `yaml:"key"`
	Restyle     bool          `yaml:"restyle"`
	Advance     time.Duration `yaml:"advance"`
	Modify      *FileStep     `yaml:"modify"`
	Rename      *RenameStep   `yaml:"rename"`
	Delete      string        `yaml:"delete"`
	Teardown    bool          `yaml:"teardown"`
}

// OpenStep opens Path in a new pane called Pane. Window defaults to main.
type OpenStep struct {
	Pane   string `yaml:"pane"`
	Path   string `yaml:"path"`
	Window string `yaml:"window"`
}

// FileStep overwrites a file behind the engine's back.
type FileStep struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// RenameStep renames a file.
type RenameStep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Load reads and parses the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: scenario path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every step has exactly one action and that panes
// and windows are introduced before use.
func (s *Scenario) Validate() error {
	var errs []error
	panes := map[string]bool{}
	windows := map[string]bool{"main": true}
	for i, st := range s.Steps {
		if n := st.actions(); n != 1 {
			errs = append(errs, fmt.Errorf("step %d: want exactly one action, got %d", i+1, n))
			continue
		}
		switch {
		case st.Open != nil:
			if st.Open.Pane == "" || st.Open.Path == "" {
				errs = append(errs, fmt.Errorf("step %d: open needs pane and path", i+1))
			}
			if w := st.Open.Window; w != "" && !windows[w] {
				errs = append(errs, fmt.Errorf("step %d: unknown window %q", i+1, w))
			}
			panes[st.Open.Pane] = true
		case st.Window != "":
			windows[st.Window] = true
		case st.Theme != "":
			if st.Theme != "light" && st.Theme != "dark" {
				errs = append(errs, fmt.Errorf("step %d: theme must be light or dark", i+1))
			}
		case st.Rename != nil:
			if st.Rename.From == "" || st.Rename.To == "" {
				errs = append(errs, fmt.Errorf("step %d: rename needs from and to", i+1))
			}
		case st.Modify != nil:
			if st.Modify.Path == "" {
				errs = append(errs, fmt.Errorf("step %d: modify needs a path", i+1))
			}
		}
		for _, ref := range []string{st.Close, st.Focus, st.Edit, st.Save, st.Toggle} {
			if ref != "" && !panes[ref] {
				errs = append(errs, fmt.Errorf("step %d: unknown pane %q", i+1, ref))
			}
		}
		for _, ref := range []string{st.CloseWindow, st.Overlay, st.Drawer} {
			if ref != "" && !windows[ref] {
				errs = append(errs, fmt.Errorf("step %d: unknown window %q", i+1, ref))
			}
		}
		if st.Advance < 0 {
			errs = append(errs, fmt.Errorf("step %d: advance must not be negative", i+1))
		}
	}
	return errors.Join(errs...)
}

// actions counts the non-zero fields of st.
func (st Step) actions() int {
	v := reflect.ValueOf(st)
	n := 0
	for i := range v.NumField() {
		if !v.Field(i).IsZero() {
			n++
		}
	}
	return n
}

// Describe returns a short human description of the step.
func (st Step) Describe() string {
	switch {
	case st.Open != nil:
		w := st.Open.Window
		if w == "" {
			w = "main"
		}
		return fmt.Sprintf("open %s as %s in %s", st.Open.Path, st.Open.Pane, w)
	case st.Modify != nil:
		return "modify " + st.Modify.Path
	case st.Rename != nil:
		return fmt.Sprintf("rename %s to %s", st.Rename.From, st.Rename.To)
	case st.Advance > 0:
		return "advance " + st.Advance.String()
	case st.Restyle:
		return "restyle"
	case st.Teardown:
		return "teardown"
	}
	v := reflect.ValueOf(st)
	t := v.Type()
	for i := range v.NumField() {
		if f := v.Field(i); f.Kind() == reflect.String && f.String() != "" {
			name := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
			return strings.ReplaceAll(name, "_", " ") + " " + f.String()
		}
	}
	return "noop"
}
