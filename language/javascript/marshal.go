package javascript

import (
	"strconv"

	"github.com/caffeineduck/eyesy/interp"
	"github.com/dop251/goja"
)

// toValue converts a host value into the VM.
func (r *runtime) toValue(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case goja.Value:
		return x
	case *function:
		return x.value
	case interp.Ref:
		if ref := r.vm.Get(string(x)); ref != nil {
			return ref
		}
		return goja.Undefined()
	case interp.Func:
		return r.vm.ToValue(r.wrapFunc(x))
	case interp.Object:
		return r.object(x)
	case map[string]any:
		return r.object(x)
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = r.toValue(item)
		}
		return r.vm.NewArray(items...)
	case []int:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = item
		}
		return r.vm.NewArray(items...)
	case []float64:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = item
		}
		return r.vm.NewArray(items...)
	case []bool:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = item
		}
		return r.vm.NewArray(items...)
	case []string:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = item
		}
		return r.vm.NewArray(items...)
	default:
		return r.vm.ToValue(v)
	}
}

func (r *runtime) object(attrs map[string]any) *goja.Object {
	obj := r.vm.NewObject()
	for k, val := range attrs {
		obj.Set(k, r.toValue(val))
	}
	return obj
}

// wrapFunc exposes a host function. Errors surface in the script as thrown
// GoError exceptions.
func (r *runtime) wrapFunc(f interp.Func) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = r.export(a)
		}
		out, err := f(args...)
		if err != nil {
			panic(r.vm.NewGoError(err))
		}
		return r.toValue(out)
	}
}

// export converts a VM value to the host vocabulary. Functions become
// opaque callables; undefined and null become nil.
func (r *runtime) export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if fn, ok := goja.AssertFunction(v); ok {
		return &function{vm: r.vm, fn: fn, value: v}
	}
	if obj, ok := v.(*goja.Object); ok {
		switch obj.ClassName() {
		case "Array":
			n := int(obj.Get("length").ToInteger())
			out := make([]any, n)
			for i := 0; i < n; i++ {
				out[i] = r.export(obj.Get(strconv.Itoa(i)))
			}
			return out
		case "Object":
			out := make(map[string]any, len(obj.Keys()))
			for _, k := range obj.Keys() {
				out[k] = r.export(obj.Get(k))
			}
			return out
		}
	}
	return v.Export()
}
