// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package routine

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
)

var (
	schemaOnce     sync.Once
	schemaDoc      map[string]any
	schemaCompiled *jschema.Schema
	schemaErr      error
)

// Schema returns the JSON Schema of WeeklyRoutine as a generic document,
// ready to embed in provider requests. Callers get a fresh copy.
func Schema() (map[string]any, error) {
	if err := loadSchema(); err != nil {
		return nil, err
	}
	// Round-trip to hand out an independent copy.
	data, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, oops.Code("ROUTINE_SCHEMA_FAILED").Wrap(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, oops.Code("ROUTINE_SCHEMA_FAILED").Wrap(err)
	}
	return out, nil
}

func loadSchema() error {
	schemaOnce.Do(func() {
		r := jsonschema.Reflector{DoNotReference: true, Anonymous: true}
		s := r.Reflect(&WeeklyRoutine{})
		s.Version = ""
		s.ID = ""
		s.Title = "WeeklyRoutine"
		s.Description = "A personalised one-week gym routine"

		data, err := json.Marshal(s)
		if err != nil {
			schemaErr = oops.Code("ROUTINE_SCHEMA_FAILED").With("operation", "marshal schema").Wrap(err)
			return
		}
		if err := json.Unmarshal(data, &schemaDoc); err != nil {
			schemaErr = oops.Code("ROUTINE_SCHEMA_FAILED").With("operation", "decode schema").Wrap(err)
			return
		}

		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			schemaErr = oops.Code("ROUTINE_SCHEMA_FAILED").With("operation", "parse schema").Wrap(err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("routine.json", doc); err != nil {
			schemaErr = oops.Code("ROUTINE_SCHEMA_FAILED").With("operation", "add schema resource").Wrap(err)
			return
		}
		schemaCompiled, err = c.Compile("routine.json")
		if err != nil {
			schemaErr = oops.Code("ROUTINE_SCHEMA_FAILED").With("operation", "compile schema").Wrap(err)
		}
	})
	return schemaErr
}

// DecodeRoutine validates raw provider output against the routine schema
// and decodes it.
func DecodeRoutine(data []byte) (*WeeklyRoutine, error) {
	if err := loadSchema(); err != nil {
		return nil, err
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.Code(CodeInvalidShape).With("operation", "parse routine json").Wrap(err)
	}
	if err := schemaCompiled.Validate(doc); err != nil {
		return nil, oops.Code(CodeInvalidShape).With("operation", "validate routine").Wrap(err)
	}

	var w WeeklyRoutine
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, oops.Code(CodeInvalidShape).With("operation", "decode routine").Wrap(err)
	}
	return &w, nil
}
