package corpus

import (
	"strings"
	"testing"
)

func TestLoadDictionarySkipsMalformedLines(t *testing.T) {
	r := strings.NewReader("ni 你\nhao 好\n\nmalformed-no-second-field\nnihao 你好\n")
	d, err := LoadDictionary(r)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	if words := d.Find("ni"); len(words) != 1 || words[0].Text != "你" {
		t.Fatalf("unexpected entries for 'ni': %v", words)
	}
}

func TestLoadSamples(t *testing.T) {
	r := strings.NewReader("nihao 你好\nwoaini 我爱你\nbad-line\n")
	samples, err := LoadSamples(r)
	if err != nil {
		t.Fatalf("LoadSamples: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d: %v", len(samples), samples)
	}
	if samples[0].Code != "nihao" || samples[0].Text != "你好" {
		t.Fatalf("unexpected sample: %+v", samples[0])
	}
}
