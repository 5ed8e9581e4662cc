package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Len(t, c.States, 27)
	assert.True(t, c.HasCargoType("Grãos"))
	assert.True(t, c.HasTruckType("Bi-Truck"))
	assert.False(t, c.HasTruckType("Foguete"))
}

func TestIsState(t *testing.T) {
	assert.True(t, IsState("SP"))
	assert.True(t, IsState("TO"))
	assert.False(t, IsState("sp"))
	assert.False(t, IsState("XX"))
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cargo_types:\n  - Soja\n  - Milho\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Soja", "Milho"}, c.CargoTypes)
	assert.Equal(t, Default().TruckTypes, c.TruckTypes, "absent lists keep defaults")
	assert.Len(t, c.States, 27)
}

func TestLoad_EmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cargo_types: [unterminated"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
