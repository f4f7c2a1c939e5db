package main

import (
	"testing"
)

func TestRootShowsHelp(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, nil, env.configPath, "")
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	requireContains(t, out, "convert")
	requireContains(t, out, "history")
	requireContains(t, out, "cache")
}

func TestUnknownCommandFails(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"bogus"}, env.configPath, ""); err == nil {
		t.Fatal("expected unknown command to fail")
	}
}
