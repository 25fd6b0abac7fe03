package omitnilpointers

import (
	"reflect"
	"sort"
)

// Split separates fields into the values to write (pointers dereferenced) and
// the sorted keys whose value is nil, so callers can delete them.
func Split(fields map[string]any) (map[string]any, []string) {
	set := make(map[string]any, len(fields))
	var unset []string
	for key, value := range fields {
		if value == nil {
			unset = append(unset, key)
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() != reflect.Ptr {
			set[key] = value
			continue
		}

		if v.IsNil() {
			unset = append(unset, key)
			continue
		}

		set[key] = v.Elem().Interface()
	}

	sort.Strings(unset)
	return set, unset
}
