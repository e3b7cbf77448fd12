package manifest

import "testing"

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces kept", "Chapter 1", "Chapter 1"},
		{"punctuation stripped", "Union: a history?", "Union a history"},
		{"unicode letters kept", "NHỮNG QUỐC GIA", "NHỮNG QUỐC GIA"},
		{"trailing spaces trimmed", "Intro   ", "Intro"},
		{"keeps dashes and underscores", "part-two_draft", "part-two_draft"},
		{"empty falls back", "???", "section"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFileName(tt.in); got != tt.want {
				t.Errorf("SafeFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
