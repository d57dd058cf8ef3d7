package directory

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Accounts []Account `yaml:"accounts"`
	Users    []User    `yaml:"users"`
}

// LoadFile reads a YAML directory document from path.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML directory document. Unknown fields are rejected.
func Parse(data []byte) (*Directory, error) {
	var doc fileDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("directory: decode yaml: %w", err)
	}
	return New(doc.Accounts, doc.Users)
}
