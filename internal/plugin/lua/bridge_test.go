package lua

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestBridge_ToGoValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	arr := L.NewTable()
	arr.Append(lua.LString("a"))
	arr.Append(lua.LNumber(2))

	obj := L.NewTable()
	obj.RawSetString("name", lua.LString("x"))
	obj.RawSetString("ratio", lua.LNumber(0.5))

	tests := []struct {
		name  string
		input lua.LValue
		check func(t *testing.T, v any)
	}{
		{"nil", lua.LNil, func(t *testing.T, v any) {
			if v != nil {
				t.Errorf("expected nil, got %v", v)
			}
		}},
		{"bool", lua.LTrue, func(t *testing.T, v any) {
			if v != true {
				t.Errorf("expected true, got %v", v)
			}
		}},
		{"integer", lua.LNumber(42), func(t *testing.T, v any) {
			if v != int64(42) {
				t.Errorf("expected int64 42, got %v (%T)", v, v)
			}
		}},
		{"float", lua.LNumber(1.5), func(t *testing.T, v any) {
			if v != 1.5 {
				t.Errorf("expected 1.5, got %v", v)
			}
		}},
		{"string", lua.LString("s"), func(t *testing.T, v any) {
			if v != "s" {
				t.Errorf("expected s, got %v", v)
			}
		}},
		{"array", arr, func(t *testing.T, v any) {
			s, ok := v.([]any)
			if !ok || len(s) != 2 || s[0] != "a" || s[1] != int64(2) {
				t.Errorf("expected [a 2], got %#v", v)
			}
		}},
		{"map", obj, func(t *testing.T, v any) {
			m, ok := v.(map[string]any)
			if !ok || m["name"] != "x" || m["ratio"] != 0.5 {
				t.Errorf("expected map, got %#v", v)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, b.ToGoValue(tt.input))
		})
	}
}

func TestBridge_ToGoValue_Cycle(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	tbl := L.NewTable()
	tbl.RawSetString("self", tbl)

	m, ok := b.ToGoValue(tbl).(map[string]any)
	if !ok {
		t.Fatal("expected map")
	}
	if m["self"] != nil {
		t.Errorf("expected cycle to be cut, got %v", m["self"])
	}
}

func TestBridge_ToLuaValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	if v := b.ToLuaValue(nil); v != lua.LNil {
		t.Errorf("expected LNil, got %v", v)
	}
	if v := b.ToLuaValue(7); v != lua.LNumber(7) {
		t.Errorf("expected 7, got %v", v)
	}
	if v := b.ToLuaValue("s"); v != lua.LString("s") {
		t.Errorf("expected s, got %v", v)
	}

	tbl, ok := b.ToLuaValue([]any{"a", true}).(*lua.LTable)
	if !ok || tbl.Len() != 2 || tbl.RawGetInt(2) != lua.LTrue {
		t.Errorf("expected array table, got %v", tbl)
	}

	type payload struct {
		Name   string `json:"name,omitempty"`
		Count  int
		hidden string
	}
	st, ok := b.ToLuaValue(&payload{Name: "n", Count: 3, hidden: "h"}).(*lua.LTable)
	if !ok {
		t.Fatal("expected struct table")
	}
	if st.RawGetString("name") != lua.LString("n") || st.RawGetString("Count") != lua.LNumber(3) {
		t.Errorf("unexpected struct conversion")
	}
	if st.RawGetString("hidden") != lua.LNil {
		t.Error("expected unexported field to be skipped")
	}

	ints, ok := b.ToLuaValue([]int{1, 2, 3}).(*lua.LTable)
	if !ok || ints.Len() != 3 {
		t.Errorf("expected reflected slice table, got %v", ints)
	}
}

func TestBridge_ToGoValue_SharedTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	shared := L.NewTable()
	shared.Append(lua.LNumber(1))
	shared.Append(lua.LNumber(2))

	outer := L.NewTable()
	outer.RawSetString("a", shared)
	outer.RawSetString("b", shared)
	outer.RawSetString("c", shared)

	m, ok := b.ToGoValue(outer).(map[string]any)
	if !ok {
		t.Fatal("expected map")
	}
	for _, key := range []string{"a", "b", "c"} {
		s, ok := m[key].([]any)
		if !ok || len(s) != 2 || s[0] != int64(1) || s[1] != int64(2) {
			t.Errorf("%s: expected [1 2], got %#v", key, m[key])
		}
	}
}

func TestBridge_ToLuaValue_Numbers(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	type celsius float32

	tests := []struct {
		name  string
		input any
		want  lua.LNumber
	}{
		{"int8", int8(-8), -8},
		{"int16", int16(16), 16},
		{"uint8", uint8(8), 8},
		{"uint16", uint16(16), 16},
		{"uint32", uint32(5), 5},
		{"uintptr", uintptr(7), 7},
		{"named float", celsius(1.5), 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.ToLuaValue(tt.input)
			if got != tt.want {
				t.Errorf("expected %v, got %v (%s)", tt.want, got, got.Type())
			}
		})
	}
}

func TestBridge_ToLuaValue_Cycle(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	m := map[string]any{"name": "root"}
	m["self"] = m

	tbl, ok := b.ToLuaValue(m).(*lua.LTable)
	if !ok {
		t.Fatal("expected table")
	}
	if tbl.RawGetString("name") != lua.LString("root") {
		t.Error("expected name to survive")
	}
	if tbl.RawGetString("self") != lua.LNil {
		t.Errorf("expected cycle to be cut, got %v", tbl.RawGetString("self"))
	}

	type node struct {
		Value int
		Next  *node
	}
	n := &node{Value: 1}
	n.Next = n

	nt, ok := b.ToLuaValue(n).(*lua.LTable)
	if !ok {
		t.Fatal("expected struct table")
	}
	if nt.RawGetString("Value") != lua.LNumber(1) || nt.RawGetString("Next") != lua.LNil {
		t.Errorf("unexpected node conversion: value=%v next=%v", nt.RawGetString("Value"), nt.RawGetString("Next"))
	}
}

func TestBridge_ToLuaValue_SharedValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := NewBridge(L)

	shared := []any{"x"}
	tbl, ok := b.ToLuaValue(map[string]any{"a": shared, "b": shared}).(*lua.LTable)
	if !ok {
		t.Fatal("expected table")
	}
	for _, key := range []string{"a", "b"} {
		sub, ok := tbl.RawGetString(key).(*lua.LTable)
		if !ok || sub.RawGetInt(1) != lua.LString("x") {
			t.Errorf("%s: expected shared slice to convert, got %v", key, tbl.RawGetString(key))
		}
	}
}
