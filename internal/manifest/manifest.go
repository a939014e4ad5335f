package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where `repofleet fetch` looks for the fleet definition when
// no --manifest flag is given.
const DefaultPath = "fleet.yaml"

// Descriptor identifies one remote repository to process.
//
// Name is the local directory name under the target root. When empty it is
// derived from the URL (basename with a trailing ".git" stripped). Name
// uniqueness is not enforced here; the fetch planner treats later duplicates
// as already present.
type Descriptor struct {
	URL   string   `yaml:"url"`
	Name  string   `yaml:"name,omitempty"`
	Paths []string `yaml:"paths,omitempty"`
}

// Manifest is the static fleet definition read from a YAML file.
//
// Example:
//
//	root: repos
//	paths:
//	  - README*
//	  - src
//	repos:
//	  - url: git@example.com:acme/widget.git
//	  - url: https://example.com/acme/gadget.git
//	    name: gadget-mirror
//	    paths: [docs]
type Manifest struct {
	// Root is the target root directory for local copies. Optional; the
	// fetch command falls back to its configured default.
	Root string `yaml:"root,omitempty"`

	// Paths is the default sparse path filter set applied to every
	// repository that does not override it.
	Paths []string `yaml:"paths,omitempty"`

	Repos []Descriptor `yaml:"repos"`
}

// Load reads and validates a manifest file.
//
// Validation is shallow: every entry must carry a non-empty URL, and derived
// names must be non-empty. Duplicate names are allowed (idempotence handling
// is the orchestrator's concern, not the store's).
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	for i := range m.Repos {
		d := &m.Repos[i]
		d.URL = strings.TrimSpace(d.URL)
		d.Name = strings.TrimSpace(d.Name)
		if d.URL == "" {
			return nil, fmt.Errorf("manifest %s: repos[%d] has no url", path, i)
		}
		if d.Name == "" {
			d.Name = DeriveName(d.URL)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("manifest %s: cannot derive a name from %q; set name explicitly", path, d.URL)
		}
	}

	return &m, nil
}

// DeriveName extracts the local directory name from a repository locator:
// the last path segment with a trailing ".git" stripped. It accepts both
// URL-style ("https://host/org/repo.git") and scp-style
// ("git@host:org/repo.git") locators.
func DeriveName(url string) string {
	s := strings.TrimRight(strings.TrimSpace(url), "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	// scp-style locators without a path separator: git@host:repo.git
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(s, ".git")
}

// PathsFor returns the effective sparse path filter set for a descriptor:
// its own Paths when set, otherwise the manifest-wide default.
func (m *Manifest) PathsFor(d Descriptor) []string {
	if len(d.Paths) > 0 {
		return d.Paths
	}
	return m.Paths
}
