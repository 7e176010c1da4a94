package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/require"
)

func TestCanvas_OverridesExcludeSave(t *testing.T) {
	overrides := Canvas.Overrides()
	require.Len(t, overrides, 3)
	for _, b := range overrides {
		require.NotContains(t, b.Keys(), "ctrl+s", "save is installed separately")
	}
}

func TestCanvas_KeyAssignments(t *testing.T) {
	tests := []struct {
		name     string
		binding  key.Binding
		expected []string
	}{
		{"ToggleMode", Canvas.ToggleMode, []string{"ctrl+e"}},
		{"ForceReload", Canvas.ForceReload, []string{"ctrl+r"}},
		{"FlushLinks", Canvas.FlushLinks, []string{"ctrl+l"}},
		{"Save", Canvas.Save, []string{"ctrl+s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.binding.Keys())
			require.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestApp_NoDuplicateKeys(t *testing.T) {
	seen := make(map[string]string)
	for _, group := range App.FullHelp() {
		for _, b := range group {
			for _, k := range b.Keys() {
				if other, ok := seen[k]; ok {
					require.Failf(t, "duplicate key", "%q bound to %q and %q", k, other, b.Help().Desc)
				}
				seen[k] = b.Help().Desc
			}
		}
	}
}

func TestApp_HelpCoversBindings(t *testing.T) {
	count := 0
	for _, group := range App.FullHelp() {
		count += len(group)
	}
	require.Equal(t, 17, count, "every AppKeyMap binding appears in the full help")
	require.Len(t, App.ShortHelp(), 5)
}
