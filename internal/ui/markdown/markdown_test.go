package markdown

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/host"
)

func TestRender(t *testing.T) {
	r := New()

	out, err := r.Render("# Notes\n\nsome body text", host.ThemeDark, 40)

	require.NoError(t, err)
	plain := ansi.Strip(out)
	require.Contains(t, plain, "Notes")
	require.Contains(t, plain, "some body text")
}

func TestRender_CachesPerThemeAndWidth(t *testing.T) {
	r := New()

	_, err := r.Render("a", host.ThemeDark, 40)
	require.NoError(t, err)
	_, err = r.Render("b", host.ThemeDark, 40)
	require.NoError(t, err)
	_, err = r.Render("c", host.ThemeLight, 40)
	require.NoError(t, err)
	_, err = r.Render("d", host.ThemeLight, 2)
	require.NoError(t, err)

	require.Len(t, r.renderers, 3)
}
