// Package styles provides the CSS templates conversions are styled with.
// Three templates ship embedded; a CSS file of the same name in the
// configured override directory takes precedence.
package styles

import (
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed default.css minimal.css modern.css
var embedded embed.FS

// DefaultName is the template used when a requested name is unknown.
const DefaultName = "default"

// Provider resolves CSS templates by name.
type Provider struct {
	overrideDir string
}

// NewProvider returns a Provider that checks overrideDir before the
// embedded templates. An empty overrideDir disables overrides.
func NewProvider(overrideDir string) *Provider {
	return &Provider{overrideDir: overrideDir}
}

// Template returns the CSS payload for name. Unknown names fall back to the
// default template so styling never fails a conversion.
func (p *Provider) Template(name string) string {
	name = normalizeName(name)

	if p.overrideDir != "" {
		path := filepath.Join(p.overrideDir, name+".css")
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return string(data)
		}
	}

	if data, err := embedded.ReadFile(name + ".css"); err == nil {
		return string(data)
	}
	data, _ := embedded.ReadFile(DefaultName + ".css")
	return string(data)
}

// Names lists the available template names, embedded plus overrides, sorted.
func (p *Provider) Names() []string {
	seen := map[string]struct{}{}
	entries, _ := embedded.ReadDir(".")
	for _, entry := range entries {
		seen[strings.TrimSuffix(entry.Name(), ".css")] = struct{}{}
	}
	if p.overrideDir != "" {
		files, err := os.ReadDir(p.overrideDir)
		if err == nil {
			for _, file := range files {
				if file.IsDir() || !strings.HasSuffix(file.Name(), ".css") {
					continue
				}
				seen[strings.TrimSuffix(file.Name(), ".css")] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultName
	}
	// Strip any path components so overrides cannot escape the directory.
	return filepath.Base(name)
}
