package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/hupe1980/meshgo/blobstore"
)

const (
	// ManifestFileName is the blob name of a snapshot's manifest, relative
	// to the snapshot prefix.
	ManifestFileName = "manifest.json"
	// CurrentFileName is the blob holding the name of the current
	// snapshot, at the root of the store.
	CurrentFileName = "CURRENT"
	// ManifestVersion is the current manifest schema version.
	ManifestVersion = 1
)

// Manifest describes the datasets of one snapshot. It is stored as
// manifest.json under the snapshot prefix and is the last blob a writer
// uploads: a snapshot without a manifest is invisible to readers.
type Manifest struct {
	Version  int    `json:"version"`
	Snapshot string `json:"snapshot"`

	// Datasets maps a particle type ("PartType1") to the names of its
	// stored datasets ("Coordinates", "Masses").
	Datasets map[string][]string `json:"datasets"`

	// NamedColumns maps a multi-column dataset name to its column names
	// in storage order ("ElementMassFractions" -> ["Hydrogen", ...]).
	NamedColumns map[string][]string `json:"named_columns,omitempty"`
}

// NewManifest returns an empty manifest for the given snapshot name.
func NewManifest(snapshot string) *Manifest {
	return &Manifest{
		Version:  ManifestVersion,
		Snapshot: snapshot,
		Datasets: make(map[string][]string),
	}
}

// AddDataset records a dataset under a particle type. Adding the same
// dataset twice is a no-op.
func (m *Manifest) AddDataset(ptype, dset string) {
	if m.Datasets == nil {
		m.Datasets = make(map[string][]string)
	}
	if slices.Contains(m.Datasets[ptype], dset) {
		return
	}
	m.Datasets[ptype] = append(m.Datasets[ptype], dset)
}

// SetNamedColumns records the column names of a multi-column dataset in
// storage order.
func (m *Manifest) SetNamedColumns(dset string, columns []string) {
	if m.NamedColumns == nil {
		m.NamedColumns = make(map[string][]string)
	}
	m.NamedColumns[dset] = slices.Clone(columns)
}

// LoadManifest reads and validates a snapshot's manifest.
// Returns blobstore.ErrNotFound if the snapshot has no manifest, i.e.
// was never committed.
func LoadManifest(ctx context.Context, store blobstore.BlobStore, snapshot string) (*Manifest, error) {
	data, err := readBlob(ctx, store, path.Join(snapshot, ManifestFileName))
	if err != nil {
		return nil, fmt.Errorf("snapshot: load manifest for %q: %w", snapshot, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("snapshot: parse manifest for %q: %w", snapshot, err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("snapshot: unsupported manifest version: %d (expected %d)", m.Version, ManifestVersion)
	}
	return &m, nil
}

// SaveManifest writes the manifest under its snapshot prefix. The write
// is atomic: readers see the previous manifest or this one, never a
// partial blob.
func SaveManifest(ctx context.Context, store blobstore.BlobStore, m *Manifest) error {
	m.Version = ManifestVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: encode manifest: %w", err)
	}

	name := path.Join(m.Snapshot, ManifestFileName)
	if err := store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("snapshot: write manifest: %w", err)
	}
	return nil
}

// CurrentSnapshot resolves the CURRENT pointer to a snapshot name.
// Returns blobstore.ErrNotFound if no snapshot was ever published.
func CurrentSnapshot(ctx context.Context, store blobstore.BlobStore) (string, error) {
	data, err := readBlob(ctx, store, CurrentFileName)
	if err != nil {
		return "", fmt.Errorf("snapshot: read CURRENT: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SetCurrentSnapshot points CURRENT at the given snapshot. Callers
// should commit the snapshot's manifest first.
func SetCurrentSnapshot(ctx context.Context, store blobstore.BlobStore, snapshot string) error {
	if err := store.Put(ctx, CurrentFileName, []byte(snapshot)); err != nil {
		return fmt.Errorf("snapshot: update CURRENT: %w", err)
	}
	return nil
}

// readBlob loads a whole blob into memory.
func readBlob(ctx context.Context, store blobstore.BlobStore, name string) ([]byte, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	size := blob.Size()
	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	if err := readFull(ctx, blob, buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}
