package department

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Find(t *testing.T) {
	m := Default()

	tests := []struct {
		name    string
		text    string
		want    string
		wantHit bool
	}{
		{"dentist", "i need a dentist appointment", "dentist", true},
		{"first in map order wins", "dental check with a doctor", "dental", true},
		{"longer keyword when shorter absent", "see the dermatologist", "dermatologist", true},
		{"substring match", "my eyes hurt", "eye", true},
		{"ortho via orthopedic", "orthopedic consult", "orthopedic", true},
		{"none", "book something for me", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Find(tt.text)
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonical(t *testing.T) {
	m := Default()

	name, ok := m.Canonical("Dentist")
	assert.True(t, ok)
	assert.Equal(t, "Dentistry", name)

	name, ok = m.Canonical("  CARDIAC ")
	assert.True(t, ok)
	assert.Equal(t, "Cardiology", name)

	name, ok = m.Canonical("podiatry")
	assert.False(t, ok)
	assert.Equal(t, DefaultFallback, name)

	name, ok = m.Canonical("")
	assert.False(t, ok)
	assert.Equal(t, DefaultFallback, name)
}

func TestNew(t *testing.T) {
	t.Run("normalizes and dedups", func(t *testing.T) {
		m, err := New([]Entry{
			{Keyword: " Skin ", Name: "Dermatology"},
			{Keyword: "skin", Name: "Other"},
			{Keyword: "heart", Name: "Cardiology"},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len())
		assert.Equal(t, DefaultFallback, m.Fallback())

		name, ok := m.Canonical("SKIN")
		assert.True(t, ok)
		assert.Equal(t, "Dermatology", name)
	})

	t.Run("rejects empty keyword", func(t *testing.T) {
		_, err := New([]Entry{{Keyword: "", Name: "X"}}, "")
		assert.Error(t, err)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := New([]Entry{{Keyword: "x", Name: " "}}, "")
		assert.Error(t, err)
	})

	t.Run("rejects empty map", func(t *testing.T) {
		_, err := New(nil, "")
		assert.Error(t, err)
	})
}

func TestEntries_ReturnsCopy(t *testing.T) {
	m := Default()
	entries := m.Entries()
	require.NotEmpty(t, entries)
	entries[0].Keyword = "mutated"

	assert.Equal(t, "dentist", m.Entries()[0].Keyword)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "departments.yaml")
	content := `fallback: Family Practice
departments:
  - keyword: ENT
    name: Otolaryngology
  - keyword: ear
    name: Otolaryngology
  - keyword: skin
    name: Dermatology
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Family Practice", m.Fallback())
	assert.Equal(t, 3, m.Len())

	kw, ok := m.Find("my ear hurts")
	assert.True(t, ok)
	assert.Equal(t, "ear", kw)

	name, _ := m.Canonical("ent")
	assert.Equal(t, "Otolaryngology", name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("departments: [not: valid"))
	assert.Error(t, err)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "departments.toml")
	content := `fallback = "Family Practice"

[[departments]]
keyword = "Skin"
name = "Dermatology"

[[departments]]
keyword = "ear"
name = "Otolaryngology"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Family Practice", m.Fallback())
	assert.Equal(t, 2, m.Len())

	name, ok := m.Canonical("skin")
	assert.True(t, ok)
	assert.Equal(t, "Dermatology", name)

	_, err = ParseTOML([]byte("departments = ["))
	assert.Error(t, err)
}
