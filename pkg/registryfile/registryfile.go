// Package registryfile reads the YAML or JSON registries (site profiles,
// publishers) the service is configured with.
package registryfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	name string
	fn   func([]byte, any) error
}

var (
	yamlDecoder = decoder{name: "yaml", fn: yaml.Unmarshal}
	jsonDecoder = decoder{name: "json", fn: json.Unmarshal}

	byExt = map[string]decoder{
		".yaml": yamlDecoder,
		".yml":  yamlDecoder,
		".json": jsonDecoder,
	}
)

// Load reads path and decodes it into out. The extension picks the format;
// any other extension is tried as YAML, then JSON.
func Load(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Decode(raw, filepath.Ext(path), out)
}

// Decode decodes data into out using the format named by ext (".yaml", ".yml", ".json").
func Decode(data []byte, ext string, out any) error {
	if d, ok := byExt[strings.ToLower(strings.TrimSpace(ext))]; ok {
		if err := d.fn(data, out); err != nil {
			return fmt.Errorf("decode %s registry: %w", d.name, err)
		}
		return nil
	}

	var errs []error
	for _, d := range []decoder{yamlDecoder, jsonDecoder} {
		err := d.fn(data, out)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
	}
	return fmt.Errorf("registry format not recognized (expected YAML or JSON): %w", errors.Join(errs...))
}
