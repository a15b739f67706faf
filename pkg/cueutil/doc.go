// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema.
//
// Every descriptor read by provisio goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile the document and unify it with a schema definition
//  3. Validate and decode into a Go struct
//
// # Usage
//
//	//go:embed schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[featurePackDoc](
//	    schema,
//	    data,
//	    "#FeaturePack",
//	    cueutil.WithFilename("feature-pack.cue"),
//	)
//	if err != nil {
//	    return nil, err // a *ValidationError naming the offending path
//	}
//	return result.Value, nil
package cueutil
