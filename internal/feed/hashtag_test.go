package feed

import (
	"reflect"
	"testing"
)

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"no tags", "just a plain chirp", []string{}},
		{"single tag", "hello #golang", []string{"golang"}},
		{"multiple tags", "#go and #redis and #postgres", []string{"go", "redis", "postgres"}},
		{"case folded", "#Go #GO #go", []string{"go"}},
		{"dedup keeps first occurrence order", "#beta #alpha #beta", []string{"beta", "alpha"}},
		{"underscore and digits", "#go_1_2", []string{"go_1_2"}},
		{"punctuation terminates", "ship it! #done.", []string{"done"}},
		{"bare hash ignored", "# not a tag", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractHashtags(tt.body); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractHashtags(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}
