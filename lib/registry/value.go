package registry

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// exportAll lets cmp compare unexported struct fields of stored values instead of panicking.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// DeepEqual reports whether a and b are structurally equal.
// Types that define an Equal method (e.g. time.Time) are compared with it.
func DeepEqual(a, b Value) bool {
	return cmp.Equal(a, b, exportAll)
}

// merge returns the value that results from writing next over prev.
// Two Objects are merged shallowly into a new Object (keys of next win),
// a nil next keeps prev, any other combination yields next.
func merge(prev, next Value) Value {
	if next == nil {
		return prev
	}
	nextObj, ok := next.(Object)
	if !ok {
		return next
	}
	prevObj, _ := prev.(Object)

	merged := make(Object, len(prevObj)+len(nextObj))
	for k, v := range prevObj {
		merged[k] = v
	}
	for k, v := range nextObj {
		merged[k] = v
	}
	return merged
}

// orEmpty maps an unset value to an empty Object.
func orEmpty(v Value) Value {
	if v == nil {
		return Object{}
	}
	return v
}

// shallowCopy returns a copy of an Object, other values are returned as they are.
func shallowCopy(v Value) Value {
	obj, ok := v.(Object)
	if !ok || obj == nil {
		return v
	}
	c := make(Object, len(obj))
	for k, val := range obj {
		c[k] = val
	}
	return c
}
