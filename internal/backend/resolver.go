package backend

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"speechact/internal/intent/ports"
	"speechact/pkg/domain"
	"speechact/pkg/platform/sentinel"
)

// HashResolver derives a stable child id in [0, 1000) from the first name.
// It stands in for the backend's child lookup, which has no API yet; the same
// name always resolves to the same id, across processes and restarts.
type HashResolver struct{}

func NewHashResolver() HashResolver {
	return HashResolver{}
}

func (HashResolver) Resolve(_ context.Context, firstname string) (*ports.Child, error) {
	if firstname == "" {
		return nil, fmt.Errorf("child with empty name: %w", sentinel.ErrNotFound)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(firstname))
	id, err := domain.NewChildID(int64(h.Sum32() % 1000))
	if err != nil {
		return nil, err
	}
	return &ports.Child{ID: id, Firstname: firstname}, nil
}

// DirectoryResolver looks children up in a fixed roster. Names match
// case-insensitively after trimming.
type DirectoryResolver struct {
	children map[string]ports.Child
}

// NewDirectoryResolver builds a resolver from name → id pairs.
func NewDirectoryResolver(roster map[string]int64) (*DirectoryResolver, error) {
	children := make(map[string]ports.Child, len(roster))
	for name, raw := range roster {
		id, err := domain.NewChildID(raw)
		if err != nil {
			return nil, fmt.Errorf("roster entry %q: %w", name, err)
		}
		key := normalizeName(name)
		if key == "" {
			return nil, fmt.Errorf("roster contains an empty name")
		}
		if _, dup := children[key]; dup {
			return nil, fmt.Errorf("roster contains %q twice", name)
		}
		children[key] = ports.Child{ID: id, Firstname: strings.TrimSpace(name)}
	}
	return &DirectoryResolver{children: children}, nil
}

type rosterFile struct {
	Children []struct {
		Firstname string `yaml:"firstname"`
		ID        int64  `yaml:"id"`
	} `yaml:"children"`
}

// LoadDirectoryResolver reads a YAML roster:
//
//	children:
//	  - firstname: Gabriel
//	    id: 123
func LoadDirectoryResolver(path string) (*DirectoryResolver, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	roster := make(map[string]int64, len(file.Children))
	for _, c := range file.Children {
		if _, dup := roster[c.Firstname]; dup {
			return nil, fmt.Errorf("roster contains %q twice", c.Firstname)
		}
		roster[c.Firstname] = c.ID
	}
	return NewDirectoryResolver(roster)
}

func (r *DirectoryResolver) Resolve(_ context.Context, firstname string) (*ports.Child, error) {
	child, ok := r.children[normalizeName(firstname)]
	if !ok {
		return nil, fmt.Errorf("child %q: %w", firstname, sentinel.ErrNotFound)
	}
	return &child, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
