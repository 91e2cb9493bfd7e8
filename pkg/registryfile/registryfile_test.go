package registryfile

import (
	"os"
	"path/filepath"
	"testing"
)

type entries struct {
	Items []struct {
		ID string `json:"id" yaml:"id"`
	} `json:"items" yaml:"items"`
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadByExtension(t *testing.T) {
	cases := map[string]string{
		"reg.yaml": "items:\n  - id: a\n  - id: b\n",
		"reg.YML":  "items: [{id: a}, {id: b}]\n",
		"reg.json": `{"items":[{"id":"a"},{"id":"b"}]}`,
		"reg.conf": "items:\n  - id: a\n  - id: b\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			var out entries
			if err := Load(write(t, name, content), &out); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(out.Items) != 2 || out.Items[1].ID != "b" {
				t.Fatalf("unexpected entries %#v", out)
			}
		})
	}
}

func TestLoadReportsDecodeErrors(t *testing.T) {
	var out entries
	if err := Load(write(t, "reg.json", "items: [oops"), &out); err == nil {
		t.Fatalf("expected decode error for malformed JSON")
	}
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &out); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
