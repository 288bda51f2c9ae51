package telegram

import (
	"errors"
	"slices"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain fields",
			line: "/watch alice",
			want: []string{"/watch", "alice"},
		},
		{
			name: "double-quoted pattern",
			line: `/watch moujaatumare "mildom\.com"`,
			want: []string{"/watch", "moujaatumare", `mildom\.com`},
		},
		{
			name: "quoted pattern with spaces",
			line: `/watch moujaatumare "#mildom live"`,
			want: []string{"/watch", "moujaatumare", "#mildom live"},
		},
		{
			name: "single quotes",
			line: "/watch alice 'go release'",
			want: []string{"/watch", "alice", "go release"},
		},
		{
			name: "extra whitespace",
			line: "  /watch   alice  ",
			want: []string{"/watch", "alice"},
		},
		{
			name: "empty quotes make an empty field",
			line: `/watch alice ""`,
			want: []string{"/watch", "alice", ""},
		},
		{
			name: "quote glued to text",
			line: `/watch alice pre"fix"`,
			want: []string{"/watch", "alice", "prefix"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if err != nil {
				t.Fatalf("splitArgs(%q) error = %v", tt.line, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("splitArgs(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplitArgsUnterminatedQuote(t *testing.T) {
	_, err := splitArgs(`/watch alice "broken`)
	if !errors.Is(err, errUnterminatedQuote) {
		t.Errorf("splitArgs() error = %v, want errUnterminatedQuote", err)
	}
}
