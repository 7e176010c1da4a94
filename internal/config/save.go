package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SaveWatchers updates the watchers section in the config file, preserving
// comments and formatting elsewhere.
func SaveWatchers(configPath string, w WatchersConfig) error {
	node := mappingNode(
		"theme", boolNode(w.Theme),
		"modal", boolNode(w.Modal),
		"drawer", boolNode(w.Drawer),
		"file_list", boolNode(w.FileList),
	)
	return saveSection(configPath, []string{"watchers"}, node)
}

// SaveFlag sets a single feature flag in the config file.
func SaveFlag(configPath, name string, enabled bool) error {
	return saveSection(configPath, []string{"flags", name}, boolNode(enabled))
}

// saveSection replaces (or creates) the value at path in the YAML document
// stored at configPath and writes the file atomically.
func saveSection(configPath string, path []string, value *yaml.Node) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mappingNode()}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config root is not a mapping")
	}

	parent := doc.Content[0]
	for i, key := range path {
		last := i == len(path)-1
		idx := -1
		for j := 0; j+1 < len(parent.Content); j += 2 {
			if parent.Content[j].Value == key {
				idx = j + 1
				break
			}
		}
		switch {
		case last && idx >= 0:
			parent.Content[idx] = value
		case last:
			parent.Content = append(parent.Content, scalarNode(key), value)
		case idx >= 0 && parent.Content[idx].Kind == yaml.MappingNode:
			parent = parent.Content[idx]
		default:
			child := mappingNode()
			if idx >= 0 {
				parent.Content[idx] = child
			} else {
				parent.Content = append(parent.Content, scalarNode(key), child)
			}
			parent = child
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".panesync.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func boolNode(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

// mappingNode builds a mapping from alternating key strings and value nodes.
func mappingNode(kv ...any) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(kv); i += 2 {
		node.Content = append(node.Content, scalarNode(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return node
}
