// Package serialize turns device payloads into JSON-safe values.
//
// Device snapshots are opaque to the gateway. Canonicalize walks them once
// and leaves only maps with string keys, slices and JSON scalars behind, so
// encoding/json can emit them with sorted keys.
package serialize

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

// TimeFormat is the ISO-8601 layout used for timestamp leaves.
const TimeFormat = time.RFC3339Nano

var (
	timeType       = reflect.TypeOf(time.Time{})
	jsonNumberType = reflect.TypeOf(json.Number(""))
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
)

// Canonicalize returns v rewritten into JSON-safe form:
// time.Time becomes its ISO-8601 string, maps become map[string]any, slices
// and arrays become []any, and any other non-primitive value is replaced by
// its fmt.Sprint form.
func Canonicalize(v any) any {
	if v == nil {
		return nil
	}
	return canonical(reflect.ValueOf(v))
}

func canonical(rv reflect.Value) any {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Type() {
	case timeType:
		return rv.Interface().(time.Time).Format(TimeFormat)
	case jsonNumberType:
		return rv.Interface()
	case rawMessageType:
		var decoded any
		if err := json.Unmarshal(rv.Bytes(), &decoded); err != nil {
			return string(rv.Bytes())
		}
		return decoded
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f)
		}
		return f
	case reflect.String:
		return rv.String()
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = canonical(iter.Value())
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i))
		}
		return out
	default:
		return fmt.Sprint(rv.Interface())
	}
}

func mapKey(k reflect.Value) string {
	for k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.Type() == timeType {
		return k.Interface().(time.Time).Format(TimeFormat)
	}
	return fmt.Sprint(k.Interface())
}

// Marshal canonicalizes v and encodes it. Object keys come out sorted.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(Canonicalize(v))
}
