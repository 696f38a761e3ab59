package theme

import (
	"strings"
	"testing"
)

func TestBucketKeepsCode(t *testing.T) {
	for _, code := range []string{"GREEN", "RED", "CUSTOM"} {
		if got := Bucket(code); !strings.Contains(got, code) {
			t.Errorf("Bucket(%q) = %q, missing code", code, got)
		}
	}
}

func TestTableIncludesCells(t *testing.T) {
	out := Table([]string{"Code", "Bucket"}, [][]string{{"SAFETY", "RED"}, {"CULTURE", "GREEN"}})
	for _, want := range []string{"Code", "Bucket", "SAFETY", "CULTURE", "GREEN"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}
