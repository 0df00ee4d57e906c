package ai

import (
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
)

var schemaCache sync.Map // reflect.Type -> *jsonschema.Schema

// schemaFor reflects a strict JSON schema from the struct pointed to by out.
func schemaFor(out any) *jsonschema.Schema {
	t := reflect.TypeOf(out)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := schemaCache.Load(t); ok {
		return s.(*jsonschema.Schema)
	}
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.ReflectFromType(t)
	schemaCache.Store(t, s)
	return s
}
