package retrieve

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "lowercases and splits on punctuation",
			in:   "Central Bank RAISES rates, again!",
			want: []string{"central", "bank", "raises", "rates", "again"},
		},
		{
			name: "keeps digits",
			in:   "inflation hit 4.5% in 2025",
			want: []string{"inflation", "hit", "4", "5", "in", "2025"},
		},
		{
			name: "handles accented text",
			in:   "Banco Central elevou a taxa básica",
			want: []string{"banco", "central", "elevou", "a", "taxa", "básica"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
		{
			name: "only punctuation",
			in:   "--- ... !!!",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
