// Package validation checks request bodies against the JSON Schemas bundled
// under schemas/ before they reach a service.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names, one per file in schemas/.
const (
	Order       = "order"
	Topup       = "topup"
	Transfer    = "transfer"
	Application = "application"
	Approval    = "approval"
	Profile     = "profile"
)

const maxBodyBytes = 1 << 20

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	// ErrValidation wraps schema violations; handlers answer 422.
	ErrValidation = errors.New("validation failed")
	// ErrMalformed means the body was not JSON at all.
	ErrMalformed = errors.New("invalid JSON")
)

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	c.AssertFormat = true

	v := &Validator{schemas: make(map[string]*jsonschema.Schema)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		id := "https://getlife.id/schemas/" + e.Name()
		if err := c.AddResource(id, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %q: %w", name, err)
		}
		if v.schemas[name], err = c.Compile(id); err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return v, nil
}

// Validate checks a raw JSON document against the named schema.
func (v *Validator) Validate(name string, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrValidation, leafMessage(ve))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Decode reads at most 1 MiB from r, validates it against the named schema
// and unmarshals it into dst.
func (v *Validator) Decode(name string, r io.Reader, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := v.Validate(name, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// leafMessage picks the first concrete violation, e.g.
// "/amount: must be >= 1 but found 0".
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}
