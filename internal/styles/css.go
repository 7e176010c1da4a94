package styles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultVariables is the allow-list of host variables copied into canvas
// style blocks.
var DefaultVariables = []string{
	"--background-primary",
	"--background-primary-alt",
	"--background-secondary",
	"--background-secondary-alt",
	"--background-modifier-border",
	"--background-modifier-hover",
	"--text-normal",
	"--text-muted",
	"--text-faint",
	"--text-accent",
	"--text-on-accent",
	"--text-selection",
	"--interactive-normal",
	"--interactive-hover",
	"--interactive-accent",
	"--interactive-accent-hover",
	"--font-text",
	"--font-interface",
	"--font-monospace",
	"--radius-m",
}

// DefaultFontUnit is used when the computed font size is unusable.
const DefaultFontUnit = 16.0

// FontUnitVariable carries the base font unit in every block.
const FontUnitVariable = "--panesync-font-unit"

// parseFontUnit reads a computed font-size such as "15px" or "14.5".
func parseFontUnit(value string) float64 {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "px"))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return DefaultFontUnit
	}
	return f
}

// normalizeColor rewrites opaque hex and rgb() colours as lower-case
// #rrggbb. Anything else is returned trimmed but otherwise untouched.
func normalizeColor(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "#") {
		if c, err := colorful.Hex(expandShortHex(value)); err == nil {
			return c.Hex()
		}
		return value
	}
	if c, ok := parseRGB(value); ok {
		return c.Hex()
	}
	return value
}

func expandShortHex(value string) string {
	if len(value) != 4 {
		return value
	}
	return string([]byte{'#', value[1], value[1], value[2], value[2], value[3], value[3]})
}

// parseRGB accepts rgb(r, g, b) and rgba(r, g, b, 1).
func parseRGB(value string) (colorful.Color, bool) {
	var body string
	switch {
	case strings.HasPrefix(value, "rgba(") && strings.HasSuffix(value, ")"):
		body = value[len("rgba(") : len(value)-1]
	case strings.HasPrefix(value, "rgb(") && strings.HasSuffix(value, ")"):
		body = value[len("rgb(") : len(value)-1]
	default:
		return colorful.Color{}, false
	}

	parts := strings.Split(body, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return colorful.Color{}, false
	}
	if len(parts) == 4 {
		alpha, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || alpha != 1 {
			return colorful.Color{}, false
		}
	}

	var rgb [3]float64
	for i := range 3 {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return colorful.Color{}, false
		}
		rgb[i] = float64(n) / 255
	}
	return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, true
}

type declaration struct {
	name  string
	value string
}

// composeBlock renders a scoped rule. Declarations keep allow-list order.
func composeBlock(selector string, decls []declaration, fontUnit float64) string {
	var b strings.Builder
	b.WriteString(selector)
	b.WriteString(" {\n")
	for _, d := range decls {
		fmt.Fprintf(&b, "  %s: %s;\n", d.name, d.value)
	}
	fmt.Fprintf(&b, "  %s: %spx;\n", FontUnitVariable, strconv.FormatFloat(fontUnit, 'f', -1, 64))
	b.WriteString("}\n")
	return b.String()
}

// Declarations parses the custom properties out of a block written by
// composeBlock.
func Declarations(block string) map[string]string {
	out := make(map[string]string)
	_, body, ok := strings.Cut(block, "{")
	if !ok {
		return out
	}
	body, _, _ = strings.Cut(body, "}")
	for _, line := range strings.Split(body, ";") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if strings.HasPrefix(name, "--") {
			out[name] = strings.TrimSpace(value)
		}
	}
	return out
}
