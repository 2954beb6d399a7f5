package output

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ApplyAgentOptions sorts and truncates list output according to the
// --result-limit, --result-sort-by and --result-desc flags. Non-list values
// are returned unchanged. The input is never mutated.
func ApplyAgentOptions(ctx context.Context, data interface{}) interface{} {
	limit := LimitFromContext(ctx)
	sortBy, desc := SortFromContext(ctx)
	if data == nil || (limit <= 0 && sortBy == "") {
		return data
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return data
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return data
	}

	length := v.Len()
	out := reflect.MakeSlice(reflect.SliceOf(v.Type().Elem()), length, length)
	reflect.Copy(out, v)

	if sortBy != "" {
		path := strings.Split(sortBy, ".")
		sort.SliceStable(out.Interface(), func(i, j int) bool {
			a, aok := lookupField(out.Index(i), path)
			b, bok := lookupField(out.Index(j), path)
			switch {
			case !aok:
				return false
			case !bok:
				return true
			}
			cmp := compareValues(a, b)
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if limit > 0 && limit < length {
		out = out.Slice(0, limit)
	}
	return out.Interface()
}

// lookupField follows a dotted path through structs (by json tag or field
// name) and string-keyed maps. Names match case-insensitively and ignore
// '_' and '-'.
func lookupField(v reflect.Value, path []string) (interface{}, bool) {
	for _, name := range path {
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		want := normalizeName(name)
		found := false
		switch v.Kind() {
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			for _, key := range v.MapKeys() {
				if normalizeName(key.String()) == want {
					v, found = v.MapIndex(key), true
					break
				}
			}
		case reflect.Struct:
			t := v.Type()
			for i := 0; i < t.NumField(); i++ {
				f := t.Field(i)
				if f.IsExported() && normalizeName(fieldLabel(f)) == want {
					v, found = v.Field(i), true
					break
				}
			}
		}
		if !found {
			return nil, false
		}
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}

func fieldLabel(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(s, "_", ""), "-", ""))
}

func compareValues(a, b interface{}) int {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
