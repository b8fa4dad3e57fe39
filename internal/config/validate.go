// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of tiersolver.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

// Validate checks instance against the embedded config schema, a
// github.com/santhosh-tekuri/jsonschema/v5 compile-then-validate
// sequence scoped down to one schema (there is only one configuration
// shape here, unlike multi-schema validators that dispatch across
// several schema.Kind values).
func Validate(instance json.RawMessage) error {
	raw, err := schemaFiles.ReadFile("schemas/config.schema.json")
	if err != nil {
		return err
	}

	sch, err := jsonschema.CompileString("config.schema.json", string(raw))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("unmarshal instance: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
