// Package schema embeds the JSON Schemas for persisted collections and
// validates payloads against them.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	// CollectionV1URL identifies the legacy browser layout schema.
	CollectionV1URL = "https://grantcrm.local/schema/collection.v1.json"
	// CollectionV2URL identifies the current collection schema.
	CollectionV2URL = "https://grantcrm.local/schema/collection.v2.json"
)

//go:embed collection.v1.schema.json
var collectionV1 []byte

//go:embed collection.v2.schema.json
var collectionV2 []byte

var (
	compileOnce sync.Once
	compiled    map[int]*jsonschema.Schema
	compileErr  error
)

func compile() (map[int]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		sources := map[int]struct {
			url string
			raw []byte
		}{
			1: {CollectionV1URL, collectionV1},
			2: {CollectionV2URL, collectionV2},
		}
		out := make(map[int]*jsonschema.Schema, len(sources))
		for version, src := range sources {
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(src.raw))
			if err != nil {
				compileErr = fmt.Errorf("decode schema v%d: %w", version, err)
				return
			}
			if err := c.AddResource(src.url, doc); err != nil {
				compileErr = fmt.Errorf("add schema v%d: %w", version, err)
				return
			}
		}
		for version, src := range sources {
			sch, err := c.Compile(src.url)
			if err != nil {
				compileErr = fmt.Errorf("compile schema v%d: %w", version, err)
				return
			}
			out[version] = sch
		}
		compiled = out
	})
	return compiled, compileErr
}

// ValidateCollection checks payload against the schema for version.
func ValidateCollection(version int, payload []byte) error {
	schemas, err := compile()
	if err != nil {
		return err
	}
	sch, ok := schemas[version]
	if !ok {
		return fmt.Errorf("unsupported schema version %d", version)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("schema v%d: %w", version, err)
	}
	return nil
}

// Raw returns the embedded schema document for version.
func Raw(version int) ([]byte, bool) {
	switch version {
	case 1:
		return append([]byte(nil), collectionV1...), true
	case 2:
		return append([]byte(nil), collectionV2...), true
	default:
		return nil, false
	}
}
