// Package cmap exposes machine.Map's host-facing surface to scripts as a
// "map" module: insert/get/remove/keys/values/contains_key/size/is_empty
// natives operating on a *machine.Map argument, grounded directly on
// src/runtime/src/core/map.rs's make_module (same function names, same
// "returns null rather than erroring when a key is missing" convention
// for get/insert/remove).
package cmap

import (
	"github.com/mna/vela/lang/machine"
)

// New returns the host module value bound under a name such as "map" in a
// Thread's Predeclared set or import table.
func New() *machine.Map {
	m := machine.NewMap(8)
	set(m, "contains_key", containsKey)
	set(m, "keys", keys)
	set(m, "values", values)
	set(m, "get", get)
	set(m, "insert", insert)
	set(m, "remove", remove)
	set(m, "size", size)
	set(m, "is_empty", isEmpty)
	return m
}

func set(m *machine.Map, name string, fn func(*machine.Thread, []machine.Value) (machine.Value, error)) {
	_ = m.SetKey(machine.NewString(name), &machine.NativeFunc{FuncName: "map." + name, Fn: fn})
}

func containsKey(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	a := machine.Args(args)
	m, err := a.Map(0, "map.contains_key")
	if err != nil {
		return nil, err
	}
	k, err := a.Get(1, "map.contains_key")
	if err != nil {
		return nil, err
	}
	_, found, err := m.Get(k)
	if err != nil {
		return nil, err
	}
	return machine.Bool(found), nil
}

func keys(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	m, err := machine.Args(args).Map(0, "map.keys")
	if err != nil {
		return nil, err
	}
	var out []machine.Value
	it := m.Iterate()
	var pair machine.Value
	for it.Next(&pair) {
		t := pair.(*machine.Tuple)
		out = append(out, t.Index(0))
	}
	return machine.NewList(out), nil
}

func values(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	m, err := machine.Args(args).Map(0, "map.values")
	if err != nil {
		return nil, err
	}
	var out []machine.Value
	it := m.Iterate()
	var pair machine.Value
	for it.Next(&pair) {
		t := pair.(*machine.Tuple)
		out = append(out, t.Index(1))
	}
	return machine.NewList(out), nil
}

func get(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	a := machine.Args(args)
	m, err := a.Map(0, "map.get")
	if err != nil {
		return nil, err
	}
	k, err := a.Get(1, "map.get")
	if err != nil {
		return nil, err
	}
	v, found, err := m.Get(k)
	if err != nil {
		return nil, err
	}
	if !found {
		return machine.Null, nil
	}
	return v, nil
}

func insert(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	a := machine.Args(args)
	m, err := a.Map(0, "map.insert")
	if err != nil {
		return nil, err
	}
	k, err := a.Get(1, "map.insert")
	if err != nil {
		return nil, err
	}
	var v machine.Value = machine.Null
	if len(args) > 2 {
		v = args[2]
	}
	old, found, err := m.Get(k)
	if err != nil {
		return nil, err
	}
	if err := m.SetKey(k, v); err != nil {
		return nil, err
	}
	if !found {
		return machine.Null, nil
	}
	return old, nil
}

// remove deletes k from the map with machine.Map.Delete and returns the
// value it was bound to, or null when k is absent.
func remove(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	a := machine.Args(args)
	m, err := a.Map(0, "map.remove")
	if err != nil {
		return nil, err
	}
	k, err := a.Get(1, "map.remove")
	if err != nil {
		return nil, err
	}
	old, found, err := m.Get(k)
	if err != nil {
		return nil, err
	}
	if !found {
		return machine.Null, nil
	}
	if err := m.Delete(k); err != nil {
		return nil, err
	}
	return old, nil
}

func size(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	m, err := machine.Args(args).Map(0, "map.size")
	if err != nil {
		return nil, err
	}
	return machine.Int(m.Len()), nil
}

func isEmpty(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	m, err := machine.Args(args).Map(0, "map.is_empty")
	if err != nil {
		return nil, err
	}
	return machine.Bool(m.Len() == 0), nil
}
