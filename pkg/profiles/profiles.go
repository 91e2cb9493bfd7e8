// Package profiles loads named site profiles (extraction strategy plus selectors) from YAML or JSON.
package profiles

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Adda-Baaj/khobor-rss/internal/extract"
	"github.com/Adda-Baaj/khobor-rss/pkg/registryfile"
)

// Profile pins the extraction settings for one family of pages.
type Profile struct {
	ID       string              `json:"id" yaml:"id"`
	Name     string              `json:"name" yaml:"name"`
	Strategy string              `json:"strategy" yaml:"strategy"`
	Hosts    []string            `json:"hosts" yaml:"hosts"`
	MaxItems int                 `json:"max_items" yaml:"max_items"`
	Generic  extract.Config      `json:"generic" yaml:"generic"`
	Table    extract.TableConfig `json:"table" yaml:"table"`
}

// Options converts the profile into extractor options.
func (p Profile) Options() extract.Options {
	return extract.Options{
		Strategy: p.Strategy,
		Generic:  p.Generic,
		Table:    p.Table,
	}
}

type registryFile struct {
	Profiles []Profile `json:"profiles" yaml:"profiles"`
}

// Registry is an immutable set of profiles indexed by id and host.
type Registry struct {
	mu       sync.RWMutex
	profiles []Profile
	byID     map[string]Profile
	byHost   map[string]Profile
}

// Empty returns a registry with no profiles.
func Empty() *Registry {
	return &Registry{byID: map[string]Profile{}, byHost: map[string]Profile{}}
}

// LoadRegistry loads profiles from a YAML/JSON file. An empty path yields an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Empty(), nil
	}

	var parsed registryFile
	if err := registryfile.Load(path, &parsed); err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return newRegistry(parsed.Profiles)
}

func newRegistry(list []Profile) (*Registry, error) {
	reg := Empty()
	for i := range list {
		p := sanitizeProfile(list[i])
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profile[%d]: %w", i, err)
		}
		if _, exists := reg.byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile id %q", p.ID)
		}
		for _, h := range p.Hosts {
			if other, exists := reg.byHost[h]; exists {
				return nil, fmt.Errorf("host %q claimed by profiles %q and %q", h, other.ID, p.ID)
			}
			reg.byHost[h] = p
		}
		reg.byID[p.ID] = p
		reg.profiles = append(reg.profiles, p)
	}
	return reg, nil
}

func sanitizeProfile(p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Strategy = strings.ToLower(strings.TrimSpace(p.Strategy))
	if p.Strategy == "" {
		p.Strategy = extract.StrategyGeneric
	}

	hosts := make([]string, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	p.Hosts = hosts

	// Zero description_max_len stays zero so the service-wide limit applies.
	descMax := p.Generic.DescriptionMaxLen
	if descMax < 0 {
		descMax = 0
	}
	p.Generic = p.Generic.WithDefaults()
	p.Generic.DescriptionMaxLen = descMax
	p.Table = p.Table.WithDefaults()
	return p
}

func validateProfile(p Profile) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	switch p.Strategy {
	case extract.StrategyGeneric:
		if err := p.Generic.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.ID, err)
		}
	case extract.StrategyTable:
		if err := p.Table.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.ID, err)
		}
	default:
		return fmt.Errorf("profile %q has unknown strategy %q", p.ID, p.Strategy)
	}
	if p.MaxItems < 0 {
		return fmt.Errorf("profile %q max_items must not be negative", p.ID)
	}
	return nil
}

// ByID returns the profile with the given id.
func (r *Registry) ByID(id string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// ForHost returns the profile claiming host, matching parent domains too
// ("www.example.com" falls back to "example.com").
func (r *Registry) ForHost(host string) (Profile, bool) {
	if r == nil {
		return Profile{}, false
	}
	host = strings.ToLower(strings.TrimSpace(host))

	r.mu.RLock()
	defer r.mu.RUnlock()
	for host != "" {
		if p, ok := r.byHost[host]; ok {
			return p, true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}
	return Profile{}, false
}

// All returns a copy of every profile in file order.
func (r *Registry) All() []Profile {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}
