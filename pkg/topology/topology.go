// Package topology loads the declarative description of node groups, nodes,
// sources and patterns into the models used by the engine.
package topology

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-logscope/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
)

// Format identifies the encoding of a topology document.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format by file extension. Anything that is not
// YAML or TOML is read as XML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatXML
	}
}

// Unsealer decrypts sealed secret values (see crypto.Sealer).
type Unsealer interface {
	Unseal(value string) (string, error)
}

// Option configures loading.
type Option func(*builder)

// WithUnsealer decrypts sealed passwords, key passphrases and node params.
// Without one, a sealed value is a configuration error.
func WithUnsealer(u Unsealer) Option {
	return func(b *builder) { b.unsealer = u }
}

// Load reads and validates the topology file at path.
func Load(path string, opts ...Option) (*models.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	return Parse(data, FormatFromPath(path), path, opts...)
}

// Parse decodes a topology document. origin names the document in errors.
func Parse(data []byte, format Format, origin string, opts ...Option) (*models.Topology, error) {
	var (
		doc *document
		p   paths = keyPaths{}
	)

	switch format {
	case FormatXML:
		var x xmlDocument
		if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&x); err != nil {
			return nil, decodeError(origin, "/", err)
		}
		doc = x.toDocument()
		p = xmlPaths{rootName: x.XMLName.Local}
	case FormatYAML:
		doc = &document{}
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, decodeError(origin, ".", err)
		}
	case FormatTOML:
		doc = &document{}
		if _, err := toml.Decode(string(data), doc); err != nil {
			return nil, decodeError(origin, ".", err)
		}
	default:
		return nil, fmt.Errorf("unknown topology format %q", format)
	}

	b := &builder{origin: origin, paths: p}
	for _, opt := range opts {
		opt(b)
	}
	return b.build(doc)
}

func decodeError(origin, path string, err error) error {
	return &apperrors.ConfigError{File: origin, Path: path, Kind: apperrors.InvalidValue, Name: "document", Err: err}
}
