// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult is a decoded document.
type ParseResult[T any] struct {
	// Value is the decoded Go struct.
	Value *T
	// Unified is the document unified with its schema definition, for callers
	// that read fields the struct does not carry.
	Unified cue.Value
}

// ParseAndDecode unifies data with the definition at schemaPath in schema
// (e.g. "#FeaturePack"), validates the result and decodes it into T.
// Document errors are *ValidationError values; a schema that does not compile
// or lacks the definition is reported as an internal error.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileBytes(schema)
	if err := schemaValue.Err(); err != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", err)
	}
	definition := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if err := definition.Err(); err != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, err)
	}

	document := ctx.CompileBytes(data, cue.Filename(filename))
	if err := document.Err(); err != nil {
		return nil, FormatError(err, filename)
	}

	unified := definition.Unify(document)
	var validateOpts []cue.Option
	if options.concrete {
		validateOpts = append(validateOpts, cue.Concrete(true))
	}
	if err := unified.Validate(validateOpts...); err != nil {
		return nil, FormatError(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}
	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

// ParseAndDecodeString is ParseAndDecode with the schema given as a string.
func ParseAndDecodeString[T any](schema string, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	return ParseAndDecode[T]([]byte(schema), data, schemaPath, opts...)
}
