package hook

import "testing"

func TestContext_Params(t *testing.T) {
	params := []any{"a", 2}
	c := NewContext("evt", params...)

	params[0] = "changed"

	if c.Hook() != "evt" {
		t.Errorf("expected hook evt, got %q", c.Hook())
	}
	if c.NumParams() != 2 {
		t.Fatalf("expected 2 params, got %d", c.NumParams())
	}
	if c.Param(0) != "a" {
		t.Errorf("expected params to be copied, got %v", c.Param(0))
	}
	if c.Param(5) != nil || c.Param(-1) != nil {
		t.Error("expected nil for out of range params")
	}

	got := c.Params()
	got[1] = 99
	if c.Param(1) != 2 {
		t.Error("expected Params to return a copy")
	}
}

func TestContext_Fields(t *testing.T) {
	c := NewContext("evt")

	c.Set("b", 1)
	c.Set("a", "x")

	if !c.Has("a") || c.Has("missing") {
		t.Error("unexpected Has result")
	}
	if v, ok := c.Get("b"); !ok || v != 1 {
		t.Errorf("expected b=1, got %v (%v)", v, ok)
	}
	if keys := c.Keys(); !equalStrings(keys, []string{"a", "b"}) {
		t.Errorf("expected sorted keys, got %v", keys)
	}

	fields := c.Fields()
	fields["c"] = true
	if c.Has("c") {
		t.Error("expected Fields to return a copy")
	}

	c.Delete("a")
	if c.Len() != 1 {
		t.Errorf("expected 1 field, got %d", c.Len())
	}
}

func TestValue(t *testing.T) {
	c := NewContext("evt")
	c.Set("n", 42)

	if n, ok := Value[int](c, "n"); !ok || n != 42 {
		t.Errorf("expected 42, got %v (%v)", n, ok)
	}
	if _, ok := Value[string](c, "n"); ok {
		t.Error("expected type mismatch to miss")
	}
	if _, ok := Value[int](c, "missing"); ok {
		t.Error("expected missing key to miss")
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		segments []string
		expected string
	}{
		{[]string{"user", "save"}, "user.save"},
		{[]string{"user", "", "save"}, "user.save"},
		{[]string{".user.", " save "}, "user.save"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := Name(tt.segments...); got != tt.expected {
			t.Errorf("Name(%v) = %q, want %q", tt.segments, got, tt.expected)
		}
	}
}

func TestPriority_String(t *testing.T) {
	tests := []struct {
		p        Priority
		expected string
	}{
		{PriorityCore, "core"},
		{-5000, "core"},
		{PriorityHighest, "highest"},
		{PriorityHigh, "high"},
		{PriorityNeutral, "neutral"},
		{100, "neutral"},
		{PriorityLow, "low"},
		{PriorityLowest, "lowest"},
		{5000, "lowest"},
	}

	for _, tt := range tests {
		if got := tt.p.String(); got != tt.expected {
			t.Errorf("Priority(%d).String() = %q, want %q", tt.p, got, tt.expected)
		}
	}
}
