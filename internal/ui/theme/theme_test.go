package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/zjrosen/panesync/internal/host"
)

func TestFor(t *testing.T) {
	assert.Equal(t, Light, For(host.ThemeLight))
	assert.Equal(t, Dark, For(host.ThemeDark))
	assert.Equal(t, Dark, For(""))
}

func TestContrast(t *testing.T) {
	assert.Equal(t, Light.Text, Contrast("#ffffff", "x"))
	assert.Equal(t, Dark.Text, Contrast("#1e1e1e", "x"))
	fallback := lipgloss.Color("#123456")
	assert.Equal(t, fallback, Contrast("rgb(1, 2, 3)", fallback))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("#1e1e1e"))
	assert.False(t, Valid("transparent"))
	assert.False(t, Valid(""))
}
