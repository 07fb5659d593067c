// Package schemas validates upstream payloads against embedded JSON schemas,
// one per source tag.
package schemas

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/miradorstack/intelligence-core/internal/models"
)

//go:embed definitions/*.json
var definitions embed.FS

const schemaVersion = "v1"

// Registry holds one compiled schema per source tag.
type Registry struct {
	schemas map[string]*jsonschema.Schema
}

// NewRegistry compiles every embedded definition. The file name (without
// extension) is the source tag the schema applies to.
func NewRegistry() (*Registry, error) {
	entries, err := definitions.ReadDir("definitions")
	if err != nil {
		return nil, fmt.Errorf("read schema definitions: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	urls := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		data, err := definitions.ReadFile(path.Join("definitions", name))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", name, err)
		}
		url := "mem://schemas/" + name
		if err := compiler.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		urls[strings.TrimSuffix(name, path.Ext(name))] = url
	}

	schemas := make(map[string]*jsonschema.Schema, len(urls))
	for source, url := range urls {
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", source, err)
		}
		schemas[source] = schema
	}
	return &Registry{schemas: schemas}, nil
}

// Sources lists the tags with a registered schema, sorted.
func (r *Registry) Sources() []string {
	out := make([]string, 0, len(r.schemas))
	for source := range r.schemas {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// Validate checks payload against the schema for source. ok is false when no
// schema is registered for the tag.
func (r *Registry) Validate(source string, payload any) (models.Validation, bool) {
	if r == nil {
		return models.Validation{}, false
	}
	schema, found := r.schemas[source]
	if !found {
		return models.Validation{}, false
	}
	result := models.Validation{Schema: source + "." + schemaVersion, Valid: true}

	instance, err := toInstance(payload)
	if err != nil {
		result.Valid = false
		result.Errors = []string{err.Error()}
		return result, true
	}

	if err := schema.Validate(instance); err != nil {
		result.Valid = false
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			result.Errors = flatten(verr)
		} else {
			result.Errors = []string{err.Error()}
		}
	}
	return result, true
}

// toInstance normalises arbitrary Go values into the JSON data model the
// validator expects.
func toInstance(payload any) (any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload is not JSON encodable: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// flatten reports leaf failures as "<instance path>: <keyword path>".
func flatten(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		location := "/" + strings.Join(err.InstanceLocation, "/")
		keyword := strings.Join(err.ErrorKind.KeywordPath(), "/")
		return []string{fmt.Sprintf("%s: %s", location, keyword)}
	}
	var out []string
	for _, cause := range err.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
