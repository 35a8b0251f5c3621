package lua

import (
	"fmt"
	"reflect"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value.
// Integral numbers become int64, other numbers float64. Tables with keys
// 1..n become []any, other tables map[string]any. Functions become nil.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		// Only tables on the current path are cycles; a table shared by
		// two keys converts at both.
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func (b *Bridge) tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.Len()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && count == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = b.toGo(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			key = k.String()
		}
		m[key] = b.toGo(v, visited)
	})
	return m
}

// ToLuaValue converts a Go value to a Lua value.
// A map, slice or pointer that refers back to itself converts to nil at the
// point where it repeats.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	return b.toLua(v, make(map[visit]bool))
}

// visit identifies a reference value on the current conversion path.
type visit struct {
	ptr uintptr
	typ reflect.Type
}

func (b *Bridge) toLua(v any, visited map[visit]bool) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case error:
		return lua.LString(val.Error())
	case fmt.Stringer:
		return lua.LString(val.String())
	default:
		return b.reflectToLua(reflect.ValueOf(v), visited)
	}
}

// reflectToLua converts numbers, slices, maps, pointers and structs by
// reflection. Anything else is wrapped in userdata.
func (b *Bridge) reflectToLua(rv reflect.Value, visited map[visit]bool) lua.LValue {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.String:
		return lua.LString(rv.String())

	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		if rv.Kind() == reflect.Ptr {
			leave, ok := enter(visited, rv)
			if !ok {
				return lua.LNil
			}
			defer leave()
		}
		return b.toLua(rv.Elem().Interface(), visited)

	case reflect.Slice:
		if rv.IsNil() {
			return b.L.NewTable()
		}
		leave, ok := enter(visited, rv)
		if !ok {
			return lua.LNil
		}
		defer leave()
		return b.listToTable(rv, visited)

	case reflect.Array:
		return b.listToTable(rv, visited)

	case reflect.Map:
		if rv.IsNil() {
			return b.L.NewTable()
		}
		leave, ok := enter(visited, rv)
		if !ok {
			return lua.LNil
		}
		defer leave()

		t := b.L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			key := b.toLua(iter.Key().Interface(), visited)
			if key == lua.LNil {
				continue
			}
			t.RawSet(key, b.toLua(iter.Value().Interface(), visited))
		}
		return t

	case reflect.Struct:
		return b.structToTable(rv, visited)

	default:
		if !rv.IsValid() {
			return lua.LNil
		}
		ud := b.L.NewUserData()
		ud.Value = rv.Interface()
		return ud
	}
}

// enter marks rv as being on the conversion path. It reports false when rv
// is already on the path.
func enter(visited map[visit]bool, rv reflect.Value) (func(), bool) {
	key := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if visited[key] {
		return nil, false
	}
	visited[key] = true
	return func() { delete(visited, key) }, true
}

func (b *Bridge) listToTable(rv reflect.Value, visited map[visit]bool) *lua.LTable {
	t := b.L.NewTable()
	for i := 0; i < rv.Len(); i++ {
		t.RawSetInt(i+1, b.toLua(rv.Index(i).Interface(), visited))
	}
	return t
}

// structToTable converts exported struct fields, named by their json tag
// when present.
func (b *Bridge) structToTable(rv reflect.Value, visited map[visit]bool) *lua.LTable {
	t := b.L.NewTable()
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" && tag != "-" {
			for j := 0; j < len(tag); j++ {
				if tag[j] == ',' {
					tag = tag[:j]
					break
				}
			}
			if tag != "" {
				name = tag
			}
		}

		t.RawSetString(name, b.toLua(rv.Field(i).Interface(), visited))
	}

	return t
}

// GetTableString gets a string field from a Lua table.
func (b *Bridge) GetTableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// GetTableInt gets an integral number field from a Lua table.
func (b *Bridge) GetTableInt(t *lua.LTable, key string) (int, bool) {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n), true
	}
	return 0, false
}
