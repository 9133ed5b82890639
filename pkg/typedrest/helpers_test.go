package typedrest_test

import "reflect"

func reflectTypeOf(v interface{}) reflect.Type {
	return reflect.TypeOf(v)
}
