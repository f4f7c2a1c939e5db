package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertCommandConvertsFile(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "note.md")
	if err := os.WriteFile(input, []byte("# Field Notes\n\nSome markdown content."), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, _, err := runCLI(t, []string{"convert", input}, env.configPath, "")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	// The file name becomes the title when none is given.
	requireContains(t, out, "note")

	files, err := os.ReadDir(env.outputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(files) != 1 || !strings.HasSuffix(files[0].Name(), ".html") {
		t.Fatalf("output dir = %v", files)
	}
	data, err := os.ReadFile(filepath.Join(env.outputDir, files[0].Name()))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "Field Notes") {
		t.Fatalf("document missing converted heading:\n%s", data)
	}
}

func TestConvertCommandReadsStdin(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"convert", "--title", "Pasted"}, env.configPath, "plain text from the clipboard")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	requireContains(t, out, "Pasted")
}

func TestConvertCommandCombinesInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	first := filepath.Join(env.baseDir, "one.txt")
	second := filepath.Join(env.baseDir, "two.txt")
	if err := os.WriteFile(first, []byte("first clip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(second, []byte("second clip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, _, err := runCLI(t, []string{"convert", "--combine", first, second}, env.configPath, "")
	if err != nil {
		t.Fatalf("convert --combine: %v", err)
	}
	requireContains(t, out, "one")

	files, err := os.ReadDir(env.outputDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("combine must produce a single document, got %d", len(files))
	}
	data, err := os.ReadFile(filepath.Join(env.outputDir, files[0].Name()))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "first clip") || !strings.Contains(string(data), "second clip") {
		t.Fatalf("combined document missing clips:\n%s", data)
	}
}

func TestConvertCommandRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"convert", "--title", "Logged", "--tag", "test"}, env.configPath, "something worth keeping"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "Logged")
	requireContains(t, out, "test")
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.txt")
	if err := os.WriteFile(path, []byte("from file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	inputs, err := collectInputs(strings.NewReader("from stdin"), []string{path, "-", "https://example.com/a"})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("inputs = %+v", inputs)
	}
	if inputs[0].label != "clip" || inputs[0].content != "from file" || !inputs[0].fromFile {
		t.Fatalf("file input = %+v", inputs[0])
	}
	if inputs[1].label != "stdin" || inputs[1].content != "from stdin" {
		t.Fatalf("stdin input = %+v", inputs[1])
	}
	if inputs[2].content != "https://example.com/a" || inputs[2].fromFile {
		t.Fatalf("url input = %+v", inputs[2])
	}

	if _, err := collectInputs(strings.NewReader(""), []string{filepath.Join(dir, "missing.txt")}); err == nil {
		t.Fatal("missing file must fail")
	}
}
