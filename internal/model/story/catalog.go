package story

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source binds a story name, and any alternative spellings, to its reference text file.
type Source struct {
	Name    string   `yaml:"name" json:"name"`
	File    string   `yaml:"file" json:"file"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Seed provides the epics bundled with the service.
func Seed() []Source {
	return []Source{
		{Name: "koroghlu", File: "koroghlu.txt", Aliases: []string{"khoroglu"}},
		{Name: "dedegorgud", File: "dedegorgud.txt", Aliases: []string{"dede_gorgud"}},
	}
}

// Catalog resolves story names to reference text.
type Catalog interface {
	Names() []string
	Files() map[string]string
	Lookup(name string) (string, error)
}

// FileCatalog reads reference texts from a directory.
type FileCatalog struct {
	dir   string
	names []string
	files map[string]string
}

// NewFileCatalog returns a catalog rooted at dir serving the supplied sources.
func NewFileCatalog(dir string, sources []Source) *FileCatalog {
	c := &FileCatalog{dir: dir, files: make(map[string]string)}
	for _, src := range sources {
		for _, name := range append([]string{src.Name}, src.Aliases...) {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			if _, dup := c.files[key]; dup {
				continue
			}
			c.names = append(c.names, key)
			c.files[key] = src.File
		}
	}
	return c
}

// Names lists every accepted story name, aliases included, in declaration order.
func (c *FileCatalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Files returns the name to file mapping.
func (c *FileCatalog) Files() map[string]string {
	out := make(map[string]string, len(c.files))
	for k, v := range c.files {
		out[k] = v
	}
	return out
}

// Lookup returns the reference text for name, matched case-insensitively.
func (c *FileCatalog) Lookup(name string) (string, error) {
	file, ok := c.files[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: story %q not found, available stories: %s",
			ErrNotFound, name, strings.Join(c.names, ", "))
	}

	data, err := os.ReadFile(filepath.Join(c.dir, file))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: story file %q not found", ErrNotFound, file)
		}
		return "", fmt.Errorf("%w: read story file %q: %v", ErrStorage, file, err)
	}
	return string(data), nil
}

type manifest struct {
	Stories []Source `yaml:"stories"`
}

// LoadManifest reads a YAML story manifest of the form
//
//	stories:
//	  - name: koroghlu
//	    file: koroghlu.txt
//	    aliases: [khoroglu]
func LoadManifest(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse story manifest: %w", err)
	}
	for i, src := range m.Stories {
		if strings.TrimSpace(src.Name) == "" || strings.TrimSpace(src.File) == "" {
			return nil, fmt.Errorf("story manifest entry %d: name and file are required", i)
		}
	}
	return m.Stories, nil
}
