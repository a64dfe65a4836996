package util

import (
	"reflect"
	"sync"

	"github.com/tiendc/go-deepcopy"
)

// opaqueTypes caches whether a type needs the reflective copier.
var opaqueTypes sync.Map

// DeepCopy returns a deep copy of src. Maps, slices, pointers and structs are
// copied recursively; scalars are returned as-is. Structs with unexported
// state, such as time.Time, keep that state as a value copy. When a value
// cannot be copied (for example a struct holding a channel or a func), src
// itself is returned.
func DeepCopy(src interface{}) interface{} {
	if src == nil {
		return nil
	}
	t := reflect.TypeOf(src)
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return src
	}
	if hasOpaqueParts(t) {
		return cloneValue(reflect.ValueOf(src)).Interface()
	}

	dst := reflect.New(t)
	if err := deepcopy.Copy(dst.Interface(), src); err != nil {
		return src
	}
	return dst.Elem().Interface()
}

// hasOpaqueParts reports whether t reaches a struct with unexported fields
// or an interface, whose dynamic value may be one.
func hasOpaqueParts(t reflect.Type) bool {
	if v, ok := opaqueTypes.Load(t); ok {
		return v.(bool)
	}
	opaque := isOpaque(t, map[reflect.Type]bool{})
	opaqueTypes.Store(t, opaque)
	return opaque
}

func isOpaque(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Ptr, reflect.Slice, reflect.Array:
		return isOpaque(t.Elem(), seen)
	case reflect.Map:
		return isOpaque(t.Key(), seen) || isOpaque(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || isOpaque(f.Type, seen) {
				return true
			}
		}
	}
	return false
}

// cloneValue copies v recursively. Struct values start as a shallow copy, so
// unexported fields are carried over unchanged, then exported fields are
// replaced by their own copies. Channels and funcs are shared.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneValue(v.Elem()))
		return out
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			out.Field(i).Set(cloneValue(v.Field(i)))
		}
		return out
	}
	return v
}
