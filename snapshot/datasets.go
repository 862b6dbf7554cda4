package snapshot

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// MembershipDatasets are registered for every particle type even though
// the snapshot itself does not store them; group membership is produced
// by a separate pipeline stage.
var MembershipDatasets = []string{"GroupNr_all", "GroupNr_bound"}

// DatasetRef locates a dataset in storage.
type DatasetRef struct {
	PartType string
	Name     string
}

// ErrDatasetNotFound indicates a name that no dataset or alias resolves
// to. Available lists every resolvable name, sorted.
type ErrDatasetNotFound struct {
	Name      string
	Available []string
}

func (e *ErrDatasetNotFound) Error() string {
	return fmt.Sprintf("snapshot: dataset %q not found (available: %s)",
		e.Name, strings.Join(e.Available, ", "))
}

// Datasets resolves logical dataset names to storage locations and named
// sub-columns within multi-column datasets. Read-only after SetupAliases;
// safe for concurrent use by every rank of a group.
type Datasets struct {
	inFile  map[string][]string
	columns map[string]map[string]int
	refs    map[string]DatasetRef
}

// NewDatasets builds the resolution table from a manifest. Every stored
// dataset resolves under its "PartTypeN/Name" form, and the membership
// datasets resolve for every particle type.
func NewDatasets(m *Manifest) *Datasets {
	d := &Datasets{
		inFile:  make(map[string][]string, len(m.Datasets)),
		columns: make(map[string]map[string]int, len(m.NamedColumns)),
		refs:    make(map[string]DatasetRef),
	}

	for ptype, dsets := range m.Datasets {
		d.inFile[ptype] = append([]string(nil), dsets...)
		for _, dset := range dsets {
			d.refs[ptype+"/"+dset] = DatasetRef{PartType: ptype, Name: dset}
		}
		for _, dset := range MembershipDatasets {
			d.refs[ptype+"/"+dset] = DatasetRef{PartType: ptype, Name: dset}
		}
	}

	for dset, names := range m.NamedColumns {
		cols := make(map[string]int, len(names))
		for i, name := range names {
			cols[name] = i
		}
		d.columns[dset] = cols
	}

	return d
}

// SetupAliases registers alias names on top of the stored datasets. Keys
// and values take the "PartTypeN/Name" form; each alias resolves to its
// target's location. A target dataset's named-column table is propagated
// to the alias when the alias name has none of its own.
func (d *Datasets) SetupAliases(aliases map[string]string) error {
	for alias, target := range aliases {
		_, aliasDset, err := splitDatasetName(alias)
		if err != nil {
			return fmt.Errorf("snapshot: alias %q: %w", alias, err)
		}
		targetPtype, targetDset, err := splitDatasetName(target)
		if err != nil {
			return fmt.Errorf("snapshot: alias target %q: %w", target, err)
		}

		d.refs[alias] = DatasetRef{PartType: targetPtype, Name: targetDset}

		if cols, ok := d.columns[targetDset]; ok {
			if _, exists := d.columns[aliasDset]; !exists {
				d.columns[aliasDset] = maps.Clone(cols)
			}
		}
	}
	return nil
}

// Resolve maps a logical dataset name to its storage location.
func (d *Datasets) Resolve(name string) (DatasetRef, error) {
	ref, ok := d.refs[name]
	if !ok {
		return DatasetRef{}, &ErrDatasetNotFound{Name: name, Available: d.Names()}
	}
	return ref, nil
}

// Column returns the storage index of a named column within a
// multi-column dataset.
func (d *Datasets) Column(dset, column string) (int, error) {
	cols, ok := d.columns[dset]
	if !ok {
		return 0, fmt.Errorf("snapshot: dataset %q has no named columns", dset)
	}
	idx, ok := cols[column]
	if !ok {
		available := make([]string, 0, len(cols))
		for name := range cols {
			available = append(available, name)
		}
		sort.Strings(available)
		return 0, fmt.Errorf("snapshot: column %q not found in %q (available: %s)",
			column, dset, strings.Join(available, ", "))
	}
	return idx, nil
}

// Names returns every resolvable dataset name, sorted.
func (d *Datasets) Names() []string {
	names := make([]string, 0, len(d.refs))
	for name := range d.refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// splitDatasetName splits "PartTypeN/Name" at the first slash.
func splitDatasetName(name string) (ptype, dset string, err error) {
	ptype, dset, ok := strings.Cut(name, "/")
	if !ok || ptype == "" || dset == "" {
		return "", "", fmt.Errorf("want \"PartTypeN/Name\", got %q", name)
	}
	return ptype, dset, nil
}
