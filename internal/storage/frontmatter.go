package storage

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/panesync/internal/host"
)

// Frontmatter keys understood by panesync.
const (
	CanvasKey    = "canvas-plugin"
	CanvasParsed = "parsed"
	TagsKey      = "tags"
)

var fence = []byte("---")

// SplitFrontmatter separates a leading YAML block fenced by "---" lines
// from the body. Documents without one return a nil block.
func SplitFrontmatter(data []byte) (front, body []byte) {
	first, rest, ok := bytes.Cut(data, []byte("\n"))
	if !ok || !bytes.Equal(bytes.TrimRight(first, "\r"), fence) {
		return nil, data
	}
	for offset := 0; offset <= len(rest); {
		line, after, found := bytes.Cut(rest[offset:], []byte("\n"))
		if bytes.Equal(bytes.TrimRight(line, "\r"), fence) {
			return rest[:offset], after
		}
		if !found {
			break
		}
		offset += len(line) + 1
	}
	return nil, data
}

// ParseMetadata reads the canvas marker and tags from data's frontmatter.
func ParseMetadata(data []byte) (host.Metadata, error) {
	front, _ := SplitFrontmatter(data)
	if front == nil {
		return host.Metadata{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(front, &fields); err != nil {
		return host.Metadata{}, fmt.Errorf("parsing frontmatter: %w", err)
	}

	var md host.Metadata
	if v, ok := fields[CanvasKey].(string); ok && v == CanvasParsed {
		md.CanvasDefault = true
	}
	switch tags := fields[TagsKey].(type) {
	case string:
		md.Tags = []string{tags}
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				md.Tags = append(md.Tags, s)
			}
		}
	}
	return md, nil
}

type canvasFront struct {
	Canvas string   `yaml:"canvas-plugin"`
	Tags   []string `yaml:"tags,omitempty"`
}

// NewCanvasDocument renders a document marked as canvas-default.
func NewCanvasDocument(body string, tags ...string) ([]byte, error) {
	front, err := yaml.Marshal(canvasFront{Canvas: CanvasParsed, Tags: tags})
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.Write(fence)
	b.WriteByte('\n')
	b.Write(front)
	b.Write(fence)
	b.WriteByte('\n')
	b.WriteString(body)
	return b.Bytes(), nil
}
