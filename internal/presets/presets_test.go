package presets

import (
	"errors"
	"testing"

	"github.com/clawdesk/clawdesk/internal/scheduler"
)

func TestEmbeddedPresetsAreValid(t *testing.T) {
	all := All()
	if len(all) != 3 {
		t.Fatalf("expected 3 presets, got %d", len(all))
	}
	for _, p := range all {
		if p.Schedule != "" {
			if _, err := scheduler.ParseCron(p.Schedule); err != nil {
				t.Errorf("preset %s has invalid schedule %q: %v", p.Key, p.Schedule, err)
			}
		}
	}
	for _, key := range []string{Trending, Hashtag, Digest} {
		if _, err := Get(key); err != nil {
			t.Errorf("missing well-known preset %s: %v", key, err)
		}
	}
}

func TestBrowserPresetsAreApprovalGated(t *testing.T) {
	for _, key := range []string{Trending, Hashtag} {
		a := MustGet(key).Agent()
		if !a.HasTool("browser") {
			t.Errorf("%s preset must carry the browser tool", key)
		}
	}
	if MustGet(Digest).Agent().HasTool("browser") {
		t.Error("digest preset should auto-execute")
	}
}

func TestAgentCopiesTools(t *testing.T) {
	p := MustGet(Trending)
	a := p.Agent()
	a.Tools[0] = "mutated"
	if MustGet(Trending).Tools[0] == "mutated" {
		t.Fatal("Agent() must not alias the preset's tool slice")
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Get("nope"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
	if p, err := Get("  TRENDING "); err != nil || p.Key != Trending {
		t.Fatalf("expected case-insensitive lookup, got %+v %v", p, err)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	doc := []byte("presets:\n  - {key: a, name: A}\n  - {key: a, name: B}\n")
	if _, err := Parse(doc); err == nil {
		t.Fatal("expected duplicate key error")
	}
	if _, err := Parse([]byte("presets:\n  - {name: nameless}\n")); err == nil {
		t.Fatal("expected missing key error")
	}
}
