// Package department maps free-text keywords to canonical hospital departments.
package department

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFallback is the department used when no keyword maps to a known department.
const DefaultFallback = "General Medicine"

// Entry is a single keyword → department binding.
type Entry struct {
	Keyword string `yaml:"keyword" toml:"keyword" json:"keyword"`
	Name    string `yaml:"name" toml:"name" json:"name"`
}

// Map is an ordered, read-only keyword → canonical department mapping.
// Lookup order is the declaration order; the first keyword found in a text wins.
// A Map is safe for concurrent use once built.
type Map struct {
	entries  []Entry
	index    map[string]string
	fallback string
}

// defaultEntries is the built-in keyword table, in match priority order.
var defaultEntries = []Entry{
	{"dentist", "Dentistry"},
	{"dental", "Dentistry"},
	{"doctor", "General Medicine"},
	{"physician", "General Medicine"},
	{"cardiology", "Cardiology"},
	{"cardiac", "Cardiology"},
	{"orthopedic", "Orthopedics"},
	{"ortho", "Orthopedics"},
	{"dermatology", "Dermatology"},
	{"dermatologist", "Dermatology"},
	{"ophthalmology", "Ophthalmology"},
	{"eye", "Ophthalmology"},
	{"neurology", "Neurology"},
	{"psychiatry", "Psychiatry"},
	{"psychologist", "Psychiatry"},
}

// Default returns the built-in department map.
func Default() *Map {
	m, _ := New(defaultEntries, DefaultFallback)
	return m
}

// New builds a Map from entries. Keywords are lower-cased and trimmed;
// a repeated keyword keeps its first position and binding.
func New(entries []Entry, fallback string) (*Map, error) {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultFallback
	}

	m := &Map{
		entries:  make([]Entry, 0, len(entries)),
		index:    make(map[string]string, len(entries)),
		fallback: fallback,
	}
	for i, e := range entries {
		keyword := strings.ToLower(strings.TrimSpace(e.Keyword))
		name := strings.TrimSpace(e.Name)
		if keyword == "" {
			return nil, errors.Errorf("department entry %d: empty keyword", i)
		}
		if name == "" {
			return nil, errors.Errorf("department entry %d (%s): empty name", i, keyword)
		}
		if _, dup := m.index[keyword]; dup {
			continue
		}
		m.index[keyword] = name
		m.entries = append(m.entries, Entry{Keyword: keyword, Name: name})
	}
	if len(m.entries) == 0 {
		return nil, errors.New("department map has no entries")
	}
	return m, nil
}

// fileFormat is the on-disk layout of a department map.
type fileFormat struct {
	Fallback    string  `yaml:"fallback" toml:"fallback"`
	Departments []Entry `yaml:"departments" toml:"departments"`
}

// Load reads a department map from a file. Files ending in .toml are decoded
// as TOML; anything else as YAML.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read department file %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// ParseTOML decodes a department map from TOML:
//
//	fallback = "General Medicine"
//
//	[[departments]]
//	keyword = "dentist"
//	name = "Dentistry"
func ParseTOML(data []byte) (*Map, error) {
	var f fileFormat
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse department map")
	}
	return New(f.Departments, f.Fallback)
}

// Parse decodes a department map from YAML.
func Parse(data []byte) (*Map, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse department map")
	}
	return New(f.Departments, f.Fallback)
}

// Find returns the first keyword, in map order, that occurs in lowerText.
// lowerText must already be lower-cased.
func (m *Map) Find(lowerText string) (string, bool) {
	for _, e := range m.entries {
		if strings.Contains(lowerText, e.Keyword) {
			return e.Keyword, true
		}
	}
	return "", false
}

// Canonical resolves a keyword (case-insensitive) to its department name.
// Unknown or empty keywords resolve to the fallback department with ok=false.
func (m *Map) Canonical(keyword string) (name string, ok bool) {
	if name, ok := m.index[strings.ToLower(strings.TrimSpace(keyword))]; ok {
		return name, true
	}
	return m.fallback, false
}

// Fallback returns the fallback department name.
func (m *Map) Fallback() string {
	return m.fallback
}

// Entries returns a copy of the entries in match order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of keywords.
func (m *Map) Len() int {
	return len(m.entries)
}
