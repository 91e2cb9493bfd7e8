package profiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Adda-Baaj/khobor-rss/internal/extract"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profiles file: %v", err)
	}
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeFile(t, "profiles.yaml", `
profiles:
  - id: nyaa
    name: Nyaa
    strategy: TABLE
    hosts: [nyaa.si]
    table:
      row_selector: tr.default
  - id: blog
    generic:
      container_selector: article
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(reg.All()))
	}

	nyaa, ok := reg.ByID("nyaa")
	if !ok {
		t.Fatalf("expected nyaa profile")
	}
	if nyaa.Strategy != extract.StrategyTable {
		t.Fatalf("Strategy = %q", nyaa.Strategy)
	}
	if nyaa.Table.RowSelector != "tr.default" || nyaa.Table.TimeCellSelector != "td.text-center" {
		t.Fatalf("unexpected table config %#v", nyaa.Table)
	}

	blog, _ := reg.ByID("blog")
	if blog.Strategy != extract.StrategyGeneric || blog.Generic.ContainerSelector != "article" {
		t.Fatalf("unexpected blog profile %#v", blog)
	}
	if blog.Generic.TitleSelector != extract.DefaultConfig().TitleSelector {
		t.Fatalf("expected default title selector, got %q", blog.Generic.TitleSelector)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := writeFile(t, "profiles.json", `{"profiles":[{"id":"j","strategy":"generic","hosts":["Example.COM"]}]}`)
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if p, ok := reg.ForHost("www.example.com"); !ok || p.ID != "j" {
		t.Fatalf("ForHost parent-domain match failed: %#v %v", p, ok)
	}
	if _, ok := reg.ForHost("example.org"); ok {
		t.Fatalf("unexpected match for example.org")
	}
}

func TestLoadRegistryRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate id": `
profiles:
  - id: a
  - id: a
`,
		"unknown strategy": `
profiles:
  - id: a
    strategy: auto
`,
		"bad selector": `
profiles:
  - id: a
    generic:
      title_selector: "h1[["
`,
		"shared host": `
profiles:
  - id: a
    hosts: [x.example]
  - id: b
    hosts: [x.example]
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadRegistry(writeFile(t, "profiles.yaml", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRegistryEmptyPath(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestLoadRegistryKeepsUnsetDescriptionLimit(t *testing.T) {
	reg, err := LoadRegistry(writeFile(t, "profiles.yaml", `
profiles:
  - id: unset
  - id: short
    generic:
      description_max_len: 80
`))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	unset, _ := reg.ByID("unset")
	if unset.Generic.DescriptionMaxLen != 0 {
		t.Fatalf("unset limit should stay zero, got %d", unset.Generic.DescriptionMaxLen)
	}
	if unset.Generic.TitleSelector == "" {
		t.Fatalf("selectors should still be defaulted")
	}
	short, _ := reg.ByID("short")
	if short.Generic.DescriptionMaxLen != 80 {
		t.Fatalf("DescriptionMaxLen = %d", short.Generic.DescriptionMaxLen)
	}
}
