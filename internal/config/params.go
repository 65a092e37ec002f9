package config

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var (
	paramIndexOnce sync.Once
	paramIndex     map[string]int // yaml key → struct field index
)

func buildParamIndex() {
	paramIndex = make(map[string]int)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		paramIndex[name] = i
	}
}

func knownKeys() map[string]bool {
	paramIndexOnce.Do(buildParamIndex)
	out := make(map[string]bool, len(paramIndex))
	for k := range paramIndex {
		out[k] = true
	}
	return out
}

// ParamNames returns the sorted keys of every scalar numeric or boolean
// parameter, the ones SetParam and Param accept.
func ParamNames() []string {
	paramIndexOnce.Do(buildParamIndex)
	t := reflect.TypeOf(Config{})
	var names []string
	for name, idx := range paramIndex {
		switch t.Field(idx).Type.Kind() {
		case reflect.Float64, reflect.Int, reflect.Bool:
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SetParam assigns a scalar parameter by its key. Integer parameters are
// rounded to the nearest integer; booleans treat any non-zero value as true.
func (c *Config) SetParam(name string, value float64) error {
	paramIndexOnce.Do(buildParamIndex)
	idx, ok := paramIndex[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	f := reflect.ValueOf(c).Elem().Field(idx)
	switch f.Kind() {
	case reflect.Float64:
		f.SetFloat(value)
	case reflect.Int:
		f.SetInt(int64(math.Round(value)))
	case reflect.Bool:
		f.SetBool(value != 0)
	default:
		return fmt.Errorf("parameter %q is not scalar (%s)", name, f.Kind())
	}
	return nil
}

// Param reads a scalar parameter by its key.
func (c *Config) Param(name string) (float64, error) {
	paramIndexOnce.Do(buildParamIndex)
	idx, ok := paramIndex[name]
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
	f := reflect.ValueOf(c).Elem().Field(idx)
	switch f.Kind() {
	case reflect.Float64:
		return f.Float(), nil
	case reflect.Int:
		return float64(f.Int()), nil
	case reflect.Bool:
		if f.Bool() {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("parameter %q is not scalar (%s)", name, f.Kind())
	}
}

// ParamIsInt reports whether the named parameter holds an integer.
func ParamIsInt(name string) bool {
	paramIndexOnce.Do(buildParamIndex)
	idx, ok := paramIndex[name]
	if !ok {
		return false
	}
	return reflect.TypeOf(Config{}).Field(idx).Type.Kind() == reflect.Int
}
