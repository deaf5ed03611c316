package manifest

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/modfort/modfort/pkg/errors"
)

// Codec parses and serializes manifests in one concrete format.
type Codec interface {
	// Parse decodes data into a Manifest. A decode failure is an
	// INVALID_MANIFEST input error, never a panic or a partial result.
	Parse(data []byte) (*Manifest, error)
	// Serialize encodes the manifest for on-disk storage.
	Serialize(m *Manifest) ([]byte, error)
	// Extensions lists the filename extensions this codec handles.
	Extensions() []string
}

// TOMLCodec reads and writes mod.toml descriptors (the canonical format).
type TOMLCodec struct{}

func (TOMLCodec) Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "malformed TOML manifest")
	}
	return &m, nil
}

func (TOMLCodec) Serialize(m *Manifest) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode TOML manifest")
	}
	return buf.Bytes(), nil
}

func (TOMLCodec) Extensions() []string { return []string{".toml"} }

// JSONCodec reads and writes mod.json descriptors.
type JSONCodec struct{}

func (JSONCodec) Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		// Unknown fields are tolerated on a second pass: strictness is for
		// catching typos in known fields, not for rejecting extensions.
		var retry Manifest
		if err2 := json.Unmarshal(data, &retry); err2 != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err2, "malformed JSON manifest")
		}
		return &retry, nil
	}
	return &m, nil
}

func (JSONCodec) Serialize(m *Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode JSON manifest")
	}
	return data, nil
}

func (JSONCodec) Extensions() []string { return []string{".json"} }

// YAMLCodec reads and writes mod.yaml descriptors.
type YAMLCodec struct{}

func (YAMLCodec) Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "malformed YAML manifest")
	}
	return &m, nil
}

func (YAMLCodec) Serialize(m *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode YAML manifest")
	}
	return data, nil
}

func (YAMLCodec) Extensions() []string { return []string{".yaml", ".yml"} }

// CodecFor returns the codec handling the given descriptor filename, or an
// INVALID_MANIFEST error for unrecognized names.
func CodecFor(filename string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, c := range []Codec{TOMLCodec{}, JSONCodec{}, YAMLCodec{}} {
		for _, e := range c.Extensions() {
			if ext == e {
				return c, nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidManifest, "unrecognized manifest format: %s", filename)
}

// Decode parses and validates a descriptor file's contents in one step.
func Decode(filename string, data []byte) (*Manifest, error) {
	codec, err := CodecFor(filename)
	if err != nil {
		return nil, err
	}
	m, err := codec.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
