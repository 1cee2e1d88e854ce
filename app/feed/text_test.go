package feed

import "testing"

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "  Keep dogs   indoors ", "Keep dogs indoors"},
		{"paragraphs", "<p>First</p><p>Second</p>", "First Second"},
		{"inline markup", "Check <b>daily</b> for <a href=\"#\">ticks</a>.", "Check daily for ticks."},
		{"line breaks", "Line one<br>Line two", "Line one Line two"},
		{"scripts removed", "<p>Visible</p><script>alert(1)</script>", "Visible"},
		{"entities", "Snakes &amp; spiders", "Snakes & spiders"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.input); got != tt.want {
				t.Errorf("StripHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	if got := Truncate("abcdefghij", 10); got != "abcdefghij" {
		t.Errorf("Expected string at limit unchanged, got %q", got)
	}
	if got := Truncate("abcdefghijk", 10); got != "abcdefg..." {
		t.Errorf("Expected truncated string, got %q", got)
	}
	if got := Truncate("ééééééééééé", 5); got != "éé..." {
		t.Errorf("Expected rune-aware truncation, got %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("Expected no limit for zero, got %q", got)
	}
}
