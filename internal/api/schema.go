package api

import (
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/Lynx32/forge/internal/level"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

// SnapshotSchema returns the JSON schema of a saved snapshot document.
// Data values are kind-specific and left unconstrained.
func SnapshotSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			RequiredFromJSONSchemaTags: false,
			DoNotReference:             true,
		}
		s := reflector.ReflectFromType(reflect.TypeOf(level.SnapshotDocument{}))
		s.Title = "Forge Snapshot"
		s.Description = "Saved simulation state: tick, id reservation, global entity and entities with current and previous data."
		schema = s
	})
	return schema
}
