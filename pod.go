package render

import (
	"fmt"
	"reflect"
	"unsafe"
)

// mustBePOD panics unless T can be copied to and from device memory byte for
// byte: fixed and non-zero size, no implicit padding, and nothing the garbage
// collector traces.
func mustBePOD[T any]() {
	t := reflect.TypeFor[T]()
	if t.Size() == 0 {
		panic(fmt.Sprintf("render: element type %s has zero size", t))
	}
	if err := checkPOD(t); err != nil {
		panic(fmt.Sprintf("render: element type %s is not plain data: %v", t, err))
	}
}

func checkPOD(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Array:
		return checkPOD(t.Elem())
	case reflect.Struct:
		var packed uintptr
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if err := checkPOD(f.Type); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			if f.Offset != packed {
				return fmt.Errorf("%d bytes of padding before field %s", f.Offset-packed, f.Name)
			}
			packed += f.Type.Size()
		}
		if packed != t.Size() {
			return fmt.Errorf("%d bytes of trailing padding", t.Size()-packed)
		}
		return nil
	default:
		// int, uint and uintptr are excluded too: their size depends on the
		// host, not on anything a shader can declare.
		return fmt.Errorf("kind %s has no fixed device layout", t.Kind())
	}
}

// asBytes reinterprets s as its backing bytes.
func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// asElements reinterprets the first n elements' worth of b as []T. The result
// has no spare capacity.
func asElements[T any](b []byte, n int) []T {
	if n == 0 {
		return []T{}
	}
	s := unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
	return s[:n:n]
}
