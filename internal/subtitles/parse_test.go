package subtitles

import "testing"

func TestFlattenVTT(t *testing.T) {
	const input = "\uFEFFWEBVTT Kind: captions\n" +
		"NOTE generated\n" +
		"STYLE\n" +
		"\n" +
		"00:00:01.000 --> 00:00:03.000\n" +
		"[Music]\n" +
		"first cue\n" +
		"\n" +
		"00:00:03.500 --> 00:00:06.000\n" +
		"second   cue\n"
	got := FlattenVTT(input)
	want := "first cue second cue"
	if got != want {
		t.Fatalf("FlattenVTT = %q, want %q", got, want)
	}
}

func TestFlattenSRT(t *testing.T) {
	const input = "1\n" +
		"00:00:01,000 --> 00:00:03,000\n" +
		"first cue\n" +
		"\n" +
		"2\n" +
		"00:00:03,500 --> 00:00:06,000\n" +
		"second cue\n" +
		"[Applause]\n"
	got := FlattenSRT(input)
	want := "first cue second cue"
	if got != want {
		t.Fatalf("FlattenSRT = %q, want %q", got, want)
	}
}

func TestParseTrackFilePicksFormatByHeader(t *testing.T) {
	if got := FlattenVTT("WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nhello\n"); got != "hello" {
		t.Fatalf("vtt = %q", got)
	}
	if got := FlattenSRT(""); got != "" {
		t.Fatalf("empty srt = %q", got)
	}
}
