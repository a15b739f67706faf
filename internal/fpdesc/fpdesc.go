// SPDX-License-Identifier: MPL-2.0

// Package fpdesc reads feature-pack, provisioning and config schema
// descriptors written in CUE and turns them into domain values through the
// domain builders.
package fpdesc

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/provisio/provisio/internal/schema"
	"github.com/provisio/provisio/pkg/cueutil"
	"github.com/provisio/provisio/pkg/fpconfig"
	"github.com/provisio/provisio/pkg/fpspec"
)

const (
	// FeaturePackFile is the descriptor at the root of a feature-pack directory.
	FeaturePackFile = "feature-pack.cue"
	// ProvisioningFile is the conventional name of a provisioning request.
	ProvisioningFile = "provisioning.cue"
	// PackagesDir holds one directory per package, each with a content/ tree.
	PackagesDir = "packages"
	// ContentDir is the per-package directory copied into the installation.
	ContentDir = "content"
	// PluginsDir holds plugin resources of a feature-pack.
	PluginsDir = "plugins"
)

//go:embed schema.cue
var descriptorSchema string

// LoadFeaturePack reads dir/feature-pack.cue.
func LoadFeaturePack(dir string) (*fpspec.FeaturePackSpec, error) {
	path := filepath.Join(dir, FeaturePackFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature-pack descriptor at %s: %w", path, err)
	}
	return ParseFeaturePack(data, path)
}

// ParseFeaturePack decodes a feature-pack descriptor.
func ParseFeaturePack(data []byte, path string) (*fpspec.FeaturePackSpec, error) {
	doc, err := decode[FeaturePackDoc](data, path, "#FeaturePack")
	if err != nil {
		return nil, err
	}
	spec, err := doc.toSpec()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// LoadProvisioning reads a provisioning request from path.
func LoadProvisioning(path string) (*fpconfig.ProvisioningConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provisioning request at %s: %w", path, err)
	}
	return ParseProvisioning(data, path)
}

// ParseProvisioning decodes a provisioning request.
func ParseProvisioning(data []byte, path string) (*fpconfig.ProvisioningConfig, error) {
	doc, err := decode[ProvisioningDoc](data, path, "#Provisioning")
	if err != nil {
		return nil, err
	}
	cfg, err := doc.toConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadSchema reads a config schema description from path.
func LoadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config schema at %s: %w", path, err)
	}
	return ParseSchema(data, path)
}

// ParseSchema decodes a config schema description.
func ParseSchema(data []byte, path string) (*schema.Schema, error) {
	doc, err := decode[ConfigSchemaDoc](data, path, "#ConfigSchema")
	if err != nil {
		return nil, err
	}
	s, err := doc.toSchema()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// PackageContentDir returns the content directory of a package inside a
// feature-pack directory.
func PackageContentDir(fpDir, pkg string) string {
	return filepath.Join(fpDir, PackagesDir, pkg, ContentDir)
}

func decode[T any](data []byte, path, definition string) (*T, error) {
	result, err := cueutil.ParseAndDecodeString[T](descriptorSchema, data, definition, cueutil.WithFilename(path))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}
