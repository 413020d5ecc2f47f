package honeycomb

import "testing"

func TestAtomTags(t *testing.T) {
	version := NewTag[string]("version")
	cell := State(1, WithAtomTag(version, "1.2.0"), WithName("versioned"))

	v, ok := version.Get(cell)
	if !ok || v != "1.2.0" {
		t.Errorf("expected (1.2.0, true), got (%q, %v)", v, ok)
	}
	if got := version.GetOrDefault(cell, "none"); got != "1.2.0" {
		t.Errorf("expected 1.2.0, got %q", got)
	}

	other := State(2)
	if _, ok := version.Get(other); ok {
		t.Error("tag found on untagged atom")
	}
	if got := version.GetOrDefault(other, "none"); got != "none" {
		t.Errorf("expected default, got %q", got)
	}
}

func TestTagWorksAcrossCarriers(t *testing.T) {
	region := NewTag[string]("region")

	cell := State(0)
	region.Set(cell, "eu-west")
	c := NewContainer()
	defer c.Dispose()
	region.Set(c, "us-east")

	// One key, independent values per carrier.
	if v, _ := region.Get(cell); v != "eu-west" {
		t.Errorf("expected eu-west on atom, got %q", v)
	}
	if v, _ := region.Get(c); v != "us-east" {
		t.Errorf("expected us-east on container, got %q", v)
	}
}

func TestAtomLabel(t *testing.T) {
	named := State(1, WithName("counter"))
	if got := AtomLabel(named); got != "counter" {
		t.Errorf("expected counter, got %q", got)
	}
	anon := Computed(func(ctx *ResolveCtx) (int, error) { return 0, nil })
	if got := AtomLabel(anon); got != "<anonymous computed>" {
		t.Errorf("unexpected label %q", got)
	}
}
