package check

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/kasuganosora/battlerunner/errs"
)

var indexRe = regexp.MustCompile(`^([^\[\]]+)\[(\d+)\](?:\.(.+))?$`)

// Resolve looks path up in vars. It tries, in order: the literal key,
// "arr[i].field" against a slice variable, a dotted path walking nested
// maps, and finally a numeric literal.
func Resolve(vars map[string]any, path string) (any, error) {
	path = strings.TrimSpace(path)
	if v, ok := vars[path]; ok {
		return v, nil
	}

	if m := indexRe.FindStringSubmatch(path); m != nil {
		if arr, ok := vars[m[1]]; ok {
			i, _ := strconv.Atoi(m[2])
			elem, err := index(arr, i)
			if err != nil {
				return nil, err
			}
			if m[3] == "" {
				return elem, nil
			}
			if v, ok := field(elem, strings.Split(m[3], ".")); ok {
				return v, nil
			}
		}
	}

	if strings.Contains(path, ".") {
		parts := strings.Split(path, ".")
		for i := len(parts) - 1; i > 0; i-- {
			base, ok := vars[strings.Join(parts[:i], ".")]
			if !ok {
				continue
			}
			if v, ok := field(base, parts[i:]); ok {
				return v, nil
			}
		}
	}

	if n, err := strconv.Atoi(path); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(path, 64); err == nil {
		return f, nil
	}
	return nil, errs.NotFound("variable", path)
}

func index(arr any, i int) (any, error) {
	rv := reflect.ValueOf(arr)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errs.NotFound("array", rv.Kind().String())
	}
	if i < 0 || i >= rv.Len() {
		return nil, errs.NotFound("index", strconv.Itoa(i))
	}
	return rv.Index(i).Interface(), nil
}

// field walks keys through nested string-keyed maps.
func field(v any, keys []string) (any, bool) {
	for _, k := range keys {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		e := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
		if !e.IsValid() {
			return nil, false
		}
		v = e.Interface()
	}
	return v, true
}

// isPath reports whether s is a dotted or indexed variable path that
// resolves. Bare words stay literals so "victory" never reads a variable.
func isPath(vars map[string]any, s string) bool {
	if !strings.ContainsAny(s, ".[") {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	_, err := Resolve(vars, s)
	return err == nil
}
