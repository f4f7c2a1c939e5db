package convert

import (
	"strings"
	"testing"
)

func TestStripRTFBasic(t *testing.T) {
	input := `{\rtf1\ansi\deff0 {\fonttbl{\f0 Helvetica;}}\f0\fs24 Hello, World!\par Second paragraph.}`
	got, err := stripRTF(input)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if !strings.Contains(got, "Hello, World!") {
		t.Fatalf("expected body text, got %q", got)
	}
	if !strings.Contains(got, "\nSecond paragraph.") {
		t.Fatalf("expected paragraph break, got %q", got)
	}
	if strings.Contains(got, "Helvetica") {
		t.Fatalf("font table leaked: %q", got)
	}
}

func TestStripRTFEscapes(t *testing.T) {
	input := `{\rtf1 caf\'e9 and \u8212?dash \{braces\}}`
	got, err := stripRTF(input)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if !strings.Contains(got, "caf\xe9") {
		t.Fatalf("hex escape not decoded: %q", got)
	}
	if !strings.Contains(got, "—dash") {
		t.Fatalf("unicode escape not decoded or fallback kept: %q", got)
	}
	if !strings.Contains(got, "{braces}") {
		t.Fatalf("escaped braces lost: %q", got)
	}
}

func TestStripRTFSkipsOptionalDestinations(t *testing.T) {
	input := `{\rtf1 {\*\generator Some Editor 1.0;}visible}`
	got, err := stripRTF(input)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	if got != "visible" {
		t.Fatalf("expected only visible text, got %q", got)
	}
}

func TestStripRTFRejectsNonRTF(t *testing.T) {
	if _, err := stripRTF("just plain text"); err == nil {
		t.Fatal("expected error for missing signature")
	}
	if _, err := stripRTF(`{\rtf1\ansi}`); err == nil {
		t.Fatal("expected error for empty document")
	}
}
