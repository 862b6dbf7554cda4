package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManifest() *Manifest {
	m := NewManifest("snap_011")
	m.AddDataset("PartType1", "Coordinates")
	m.AddDataset("PartType1", "Masses")
	m.AddDataset("PartType4", "Coordinates")
	m.AddDataset("PartType4", "ElementMassFractions")
	m.SetNamedColumns("ElementMassFractions", []string{"Hydrogen", "Helium", "Oxygen"})
	return m
}

func TestDatasets_Resolve(t *testing.T) {
	d := NewDatasets(newTestManifest())

	ref, err := d.Resolve("PartType1/Coordinates")
	require.NoError(t, err)
	assert.Equal(t, DatasetRef{PartType: "PartType1", Name: "Coordinates"}, ref)

	// Membership datasets resolve for every particle type even though the
	// snapshot does not store them.
	ref, err = d.Resolve("PartType4/GroupNr_bound")
	require.NoError(t, err)
	assert.Equal(t, DatasetRef{PartType: "PartType4", Name: "GroupNr_bound"}, ref)
}

func TestDatasets_ResolveNotFound(t *testing.T) {
	d := NewDatasets(newTestManifest())

	_, err := d.Resolve("PartType1/Velocities")

	var notFound *ErrDatasetNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "PartType1/Velocities", notFound.Name)
	assert.Contains(t, notFound.Available, "PartType1/Coordinates")
	assert.Contains(t, notFound.Available, "PartType1/GroupNr_all")
	assert.IsIncreasing(t, notFound.Available)
	assert.Contains(t, err.Error(), "available:")
}

func TestDatasets_Aliases(t *testing.T) {
	d := NewDatasets(newTestManifest())

	require.NoError(t, d.SetupAliases(map[string]string{
		"PartType1/Pos":        "PartType1/Coordinates",
		"PartType4/Abundances": "PartType4/ElementMassFractions",
	}))

	ref, err := d.Resolve("PartType1/Pos")
	require.NoError(t, err)
	assert.Equal(t, DatasetRef{PartType: "PartType1", Name: "Coordinates"}, ref)

	// The target's named-column table follows the alias.
	idx, err := d.Column("Abundances", "Helium")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestDatasets_AliasErrors(t *testing.T) {
	d := NewDatasets(newTestManifest())

	err := d.SetupAliases(map[string]string{"Pos": "PartType1/Coordinates"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `alias "Pos"`)

	err = d.SetupAliases(map[string]string{"PartType1/Pos": "Coordinates"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `alias target "Coordinates"`)
}

func TestDatasets_Column(t *testing.T) {
	d := NewDatasets(newTestManifest())

	idx, err := d.Column("ElementMassFractions", "Oxygen")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = d.Column("ElementMassFractions", "Iron")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: Helium, Hydrogen, Oxygen")

	_, err = d.Column("Masses", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no named columns")
}

func TestSplitDatasetName(t *testing.T) {
	ptype, dset, err := splitDatasetName("PartType1/Coordinates")
	require.NoError(t, err)
	assert.Equal(t, "PartType1", ptype)
	assert.Equal(t, "Coordinates", dset)

	for _, name := range []string{"Coordinates", "/Coordinates", "PartType1/", ""} {
		_, _, err := splitDatasetName(name)
		assert.Error(t, err, "name %q", name)
	}
}
