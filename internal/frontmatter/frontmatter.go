// Package frontmatter reads and updates a single YAML field in a markdown
// file's frontmatter block, preserving the rest of the document (other
// fields, comments, and the markdown body) byte-for-byte where the YAML
// library permits.
//
// The `---`-marker split is a plain regexp anchor; the per-field read/update
// rides on yaml.v3's Node tree so sibling fields and key ordering survive a
// round-trip untouched.
package frontmatter

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var blockRe = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n?`)

// Document is a parsed markdown file: the raw frontmatter YAML node (for
// round-tripping unknown fields) plus the markdown body verbatim.
type Document struct {
	Root *yaml.Node
	Body string
}

// Read loads path and splits it into a frontmatter node tree and body.
// Returns (nil, nil) if the file has no frontmatter block.
func Read(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := blockRe.FindSubmatchIndex(raw)
	if m == nil {
		return nil, nil
	}
	yamlText := raw[m[2]:m[3]]
	body := string(raw[m[1]:])

	var root yaml.Node
	if err := yaml.Unmarshal(yamlText, &root); err != nil {
		return nil, fmt.Errorf("parsing frontmatter of %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		// Empty frontmatter block; synthesize an empty mapping so callers
		// can still SetField.
		root.Kind = yaml.DocumentNode
		root.Content = []*yaml.Node{{Kind: yaml.MappingNode}}
	}
	return &Document{Root: &root, Body: body}, nil
}

// mapping returns the document's top-level mapping node.
func (d *Document) mapping() *yaml.Node {
	n := d.Root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	return n
}

// GetField decodes field into out. Returns false if the field is absent.
func (d *Document) GetField(field string, out interface{}) (bool, error) {
	m := d.mapping()
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == field {
			return true, m.Content[i+1].Decode(out)
		}
	}
	return false, nil
}

// SetField sets field to value, appending it if absent, preserving every
// other key and its position.
func (d *Document) SetField(field string, value interface{}) error {
	m := d.mapping()
	var valueNode yaml.Node
	if err := valueNode.Encode(value); err != nil {
		return err
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == field {
			m.Content[i+1] = &valueNode
			return nil
		}
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: field}
	m.Content = append(m.Content, keyNode, &valueNode)
	return nil
}

// Render serializes the document back to file bytes: frontmatter markers,
// YAML body, the markdown body.
func (d *Document) Render() ([]byte, error) {
	yamlBytes, err := yaml.Marshal(d.Root)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(yamlBytes)
	sb.WriteString("---\n")
	sb.WriteString(d.Body)
	return []byte(sb.String()), nil
}

// Write renders d and writes it to path. Writing is idempotent: rendering
// the same logical content twice yields byte-identical files, since
// SetField on an unchanged document is a no-op on the node tree.
func (d *Document) Write(path string) error {
	b, err := d.Render()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// UpdateField is the common single-field update entry point: read, set,
// write.
func UpdateField(path, field string, value interface{}) error {
	doc, err := Read(path)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%s has no frontmatter block", path)
	}
	if err := doc.SetField(field, value); err != nil {
		return err
	}
	return doc.Write(path)
}
