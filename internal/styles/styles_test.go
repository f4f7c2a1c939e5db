package styles_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipbook/internal/styles"
)

func TestEmbeddedTemplates(t *testing.T) {
	provider := styles.NewProvider("")
	for _, name := range []string{"default", "minimal", "modern"} {
		css := provider.Template(name)
		if !strings.Contains(css, "body") {
			t.Fatalf("template %q looks empty: %q", name, css[:min(len(css), 40)])
		}
	}
}

func TestUnknownNameFallsBackToDefault(t *testing.T) {
	provider := styles.NewProvider("")
	if provider.Template("no-such-template") != provider.Template("default") {
		t.Fatal("unknown template must fall back to default")
	}
	if provider.Template("") != provider.Template("default") {
		t.Fatal("empty name must fall back to default")
	}
}

func TestOverrideDirectoryWins(t *testing.T) {
	dir := t.TempDir()
	custom := "body { color: rebeccapurple; }"
	if err := os.WriteFile(filepath.Join(dir, "default.css"), []byte(custom), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	provider := styles.NewProvider(dir)
	if got := provider.Template("default"); got != custom {
		t.Fatalf("expected override content, got %q", got)
	}
	// Other names still resolve from the embedded set.
	if css := provider.Template("minimal"); !strings.Contains(css, "sans-serif") {
		t.Fatalf("embedded minimal template lost: %q", css)
	}
}

func TestNamesIncludesOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sepia.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	names := styles.NewProvider(dir).Names()
	want := map[string]bool{"default": false, "minimal": false, "modern": false, "sepia": false}
	for _, name := range names {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("expected template %q in %v", name, names)
		}
	}
}

func TestNameCannotEscapeOverrideDir(t *testing.T) {
	provider := styles.NewProvider(t.TempDir())
	// Path components are stripped; this must resolve to an embedded
	// template or the default, never a file outside the directory.
	css := provider.Template("../../etc/passwd")
	if !strings.Contains(css, "body") {
		t.Fatalf("unexpected template payload: %q", css)
	}
}
