// Package msgcat holds the user-facing texts of the sparring service as
// text/template strings keyed by dotted paths ("chess.status.checkmate").
package msgcat

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.ko.yaml
var embedded embed.FS

const defaultFile = "messages.ko.yaml"

// Catalog is immutable after New and safe for concurrent use.
type Catalog struct {
	templates map[string]*template.Template
}

// New compiles the embedded Korean texts, then layers every *.yaml / *.yml
// file of overrideDir on top. A key defined by two override files is an error.
func New(overrideDir string) (*Catalog, error) {
	raw, err := embedded.ReadFile(defaultFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	texts, err := flatten(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", defaultFile, err)
	}

	if dir := strings.TrimSpace(overrideDir); dir != "" {
		overrides, err := loadDir(dir)
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			texts[k] = v
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(texts))}
	for key, text := range texts {
		tpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", key, err)
		}
		c.templates[key] = tpl
	}
	return c, nil
}

func loadDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read messages dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	slices.Sort(names)

	out := make(map[string]string)
	origin := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		texts, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for k, v := range texts {
			if prev, dup := origin[k]; dup {
				return nil, fmt.Errorf("message %q defined in both %s and %s", k, prev, name)
			}
			origin[k] = name
			out[k] = v
		}
	}
	return out, nil
}

// flatten turns nested YAML mappings into dotted keys. Leaves must be strings.
func flatten(raw []byte) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if len(doc.Content) == 0 {
		return out, nil
	}
	if err := walk(doc.Content[0], "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(n *yaml.Node, path string, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if path != "" {
				key = path + "." + key
			}
			if err := walk(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if path == "" {
			return fmt.Errorf("top-level scalar at line %d", n.Line)
		}
		if n.Tag != "!!str" && n.Tag != "!!null" {
			return fmt.Errorf("%s: expected a string, got %s (line %d)", path, n.Tag, n.Line)
		}
		if n.Tag == "!!str" {
			out[path] = n.Value
		}
		return nil
	case yaml.AliasNode:
		return walk(n.Alias, path, out)
	default:
		return fmt.Errorf("%s: unsupported yaml node at line %d", path, n.Line)
	}
}

// Render executes the template stored under key. Unknown keys and
// fields missing from data are errors; callers pick their own fallback.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := c.templates[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("message not found: %s", key)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return sb.String(), nil
}

// Has reports whether key is present.
func (c *Catalog) Has(key string) bool {
	_, ok := c.templates[strings.TrimSpace(key)]
	return ok
}
