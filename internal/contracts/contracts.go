// Package contracts checks raw JSON payloads against the embedded JSON
// schemas before they are decoded into Go types.
package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	PropertySchema      = "schemas/property.v1.json"
	PropertyEventSchema = "schemas/property-event.v1.json"
)

var compiled = make(map[string]*jsonschema.Schema)

func init() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	err := fs.WalkDir(schemaFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".json") {
			return err
		}
		raw, err := schemaFS.ReadFile(path)
		if err != nil {
			return err
		}
		return compiler.AddResource(path, bytes.NewReader(raw))
	})
	if err != nil {
		log.Fatalf("contracts: load schemas: %v", err)
	}
	for _, path := range []string{PropertySchema, PropertyEventSchema} {
		s, err := compiler.Compile(path)
		if err != nil {
			log.Fatalf("contracts: compile %s: %v", path, err)
		}
		compiled[path] = s
	}
}

// ViolationError describes why a payload does not satisfy its schema.
// Field is a JSON pointer to the offending value, "" for the root.
type ViolationError struct {
	Field  string
	Reason string
}

func (e *ViolationError) Error() string {
	if e.Field == "" {
		return "payload " + e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks body against the named schema.
func Validate(schema string, body []byte) error {
	s, ok := compiled[schema]
	if !ok {
		return fmt.Errorf("unknown schema %q", schema)
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return &ViolationError{Reason: "is not valid JSON: " + err.Error()}
	}
	if err := s.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			leaf := deepest(ve)
			return &ViolationError{Field: leaf.InstanceLocation, Reason: leaf.Message}
		}
		return err
	}
	return nil
}

// ValidateProperty checks a create/update request body.
func ValidateProperty(body []byte) error { return Validate(PropertySchema, body) }

// ValidatePropertyEvent checks a message taken off the events queue.
func ValidatePropertyEvent(body []byte) error { return Validate(PropertyEventSchema, body) }

// deepest follows the first cause chain down to the most specific error.
func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
