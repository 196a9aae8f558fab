package config

import (
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"volsampler/pkg/volume"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "volsampler configuration",
  "type": "object",
  "properties": {
    "params": { "type": "object" },
    "network": {
      "type": "object",
      "properties": {
        "inputs":  { "$ref": "#/definitions/layers" },
        "outputs": { "$ref": "#/definitions/layers" }
      },
      "required": ["inputs", "outputs"]
    },
    "images":  { "type": "object", "additionalProperties": { "$ref": "#/definitions/section" } },
    "labels":  { "type": "object", "additionalProperties": { "$ref": "#/definitions/section" } },
    "samples": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": { "type": "integer" }
      }
    },
    "train": { "type": "array", "items": { "type": "integer" } },
    "test":  { "type": "array", "items": { "type": "integer" } }
  },
  "required": ["network", "samples"],
  "definitions": {
    "layers": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "array",
        "minItems": 4,
        "maxItems": 4,
        "items": { "type": "integer", "minimum": 1 }
      }
    },
    "section": {
      "type": "object",
      "properties": {
        "fnames": { "type": "array", "minItems": 1, "items": { "type": "string" } },
        "fmasks": { "type": "array", "items": { "type": "string" } }
      },
      "required": ["fnames"]
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// validate checks a raw YAML or TOML document against the configuration schema.
func validate(data []byte, isTOML bool) error {
	var doc interface{}
	if isTOML {
		m := make(map[string]interface{})
		if _, err := toml.Decode(string(data), &m); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
		doc = m
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	// round-trip through JSON so the validator sees JSON value types
	b, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return fmt.Errorf("error converting config file: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("error converting config file: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("config file does not match schema: %v: %w", err, volume.ErrInvalidConfiguration)
	}
	return nil
}

// stringKeys converts YAML maps with non-string keys, such as numeric
// section ids, into JSON-compatible maps.
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = stringKeys(val)
		}
		return m
	case map[string]interface{}:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case []interface{}:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	}
	return v
}
