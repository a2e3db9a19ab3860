package python

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/caffeineduck/eyesy/hostfunc"
	"github.com/caffeineduck/eyesy/interp"
)

// Values cross the pipe as JSON. Anything JSON cannot carry is tagged:
//
//	{"$func": name}      host function, called back through the registry
//	{"$object": {...}}   attribute bag, materialized as a guest object
//	{"$ref": name}       the guest's own global of that name
//	{"$callable": id}    guest callable kept in the guest's handle table

func marshalLine(cmd command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return append(data, '\n'), nil
}

func (r *runtime) encode(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64, float32, int, int64, int32, int16, uint8, json.Number:
		return x
	case interp.Func:
		return map[string]any{"$func": r.registerFunc(x)}
	case func(args ...any) (any, error):
		return map[string]any{"$func": r.registerFunc(x)}
	case interp.Object:
		return map[string]any{"$object": r.encodeMap(x)}
	case interp.Ref:
		return map[string]any{"$ref": string(x)}
	case *handle:
		return map[string]any{"$callable": x.id}
	case map[string]any:
		return r.encodeMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = r.encode(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = r.encode(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func (r *runtime) encodeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = r.encode(e)
	}
	return out
}

func (r *runtime) registerFunc(fn interp.Func) string {
	r.funcMu.Lock()
	defer r.funcMu.Unlock()

	r.funcSeq++
	name := "f" + strconv.Itoa(r.funcSeq)
	r.funcs[name] = fn
	r.registry.Register(name, hostfunc.Positional(func(args ...any) (any, error) {
		decoded := make([]any, len(args))
		for i, a := range args {
			decoded[i] = r.decode(a)
		}
		result, err := fn(decoded...)
		if err != nil {
			return nil, err
		}
		return r.encode(result), nil
	}))
	return name
}

func (r *runtime) decode(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = r.decode(e)
		}
		return out
	case map[string]any:
		if id, ok := x["$callable"]; ok {
			n, _ := interp.ToFloat(r.decode(id))
			return r.newHandle(int64(n))
		}
		if name, ok := x["$func"].(string); ok {
			r.funcMu.Lock()
			fn := r.funcs[name]
			r.funcMu.Unlock()
			if fn != nil {
				return fn
			}
		}
		if attrs, ok := x["$object"].(map[string]any); ok {
			obj := make(interp.Object, len(attrs))
			for k, e := range attrs {
				obj[k] = r.decode(e)
			}
			return obj
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = r.decode(e)
		}
		return out
	}
	return v
}
