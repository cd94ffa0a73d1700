package neo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	recordSchemaURL = "https://neo-watch.local/schemas/neo.schema.json"
	browseSchemaURL = "https://neo-watch.local/schemas/browse.schema.json"
)

// Only the fields the transform reads are constrained. Optional numerics may
// be absent or null.
const recordSchemaJSON = `{
  "type": "object",
  "required": ["id", "name", "is_potentially_hazardous_asteroid"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "is_potentially_hazardous_asteroid": {"type": "boolean"},
    "absolute_magnitude_h": {"type": ["number", "null"]},
    "estimated_diameter": {
      "type": "object",
      "properties": {
        "meters": {
          "type": "object",
          "properties": {
            "estimated_diameter_min": {"type": ["number", "null"], "minimum": 0},
            "estimated_diameter_max": {"type": ["number", "null"], "minimum": 0}
          }
        }
      }
    },
    "close_approach_data": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "close_approach_date": {"type": ["string", "null"]},
          "relative_velocity": {
            "type": "object",
            "properties": {
              "kilometers_per_second": {"type": ["string", "number", "null"]}
            }
          },
          "miss_distance": {
            "type": "object",
            "properties": {
              "kilometers": {"type": ["string", "number", "null"]}
            }
          }
        }
      }
    }
  }
}`

const browseSchemaJSON = `{
  "type": "object",
  "required": ["near_earth_objects", "page"],
  "properties": {
    "near_earth_objects": {
      "type": "array",
      "items": {"$ref": "neo.schema.json"}
    },
    "page": {
      "type": "object",
      "required": ["number", "size", "total_elements"],
      "properties": {
        "number": {"type": "integer", "minimum": 0},
        "size": {"type": "integer", "minimum": 0},
        "total_elements": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

type compiledSchemas struct {
	record *jsonschema.Schema
	browse *jsonschema.Schema
}

var schemas = sync.OnceValue(func() compiledSchemas {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(recordSchemaURL, strings.NewReader(recordSchemaJSON)); err != nil {
		panic(fmt.Sprintf("neo: record schema load failed: %v", err))
	}
	if err := c.AddResource(browseSchemaURL, strings.NewReader(browseSchemaJSON)); err != nil {
		panic(fmt.Sprintf("neo: browse schema load failed: %v", err))
	}
	return compiledSchemas{
		record: c.MustCompile(recordSchemaURL),
		browse: c.MustCompile(browseSchemaURL),
	}
})

func recordSchema() *jsonschema.Schema { return schemas().record }
func browseSchema() *jsonschema.Schema { return schemas().browse }

// validatePayload checks body against schema. Every failure wraps
// ErrMalformedPayload.
func validatePayload(schema *jsonschema.Schema, body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrMalformedPayload, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
