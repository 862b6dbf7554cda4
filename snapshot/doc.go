// Package snapshot stores particle datasets as columnar blobs and reads
// them back, whole or partitioned across a rank group.
//
// A snapshot is a named set of column files under one prefix plus a
// manifest listing the datasets. Columns are written in fixed-row blocks,
// optionally LZ4 or zstd compressed, with a block index so readers can
// fetch just the rows they need.
//
// Writing:
//
//	w := snapshot.NewWriter(store, "snap_011", snapshot.WithCompression(snapshot.CompressionZSTD))
//	if err := w.WriteVec3(ctx, "PartType1/Coordinates", positions); err != nil { ... }
//	if err := w.Commit(ctx); err != nil { ... }
//
// Reading, serial or shared across a group:
//
//	r, err := snapshot.NewReader(ctx, store, "snap_011")
//	positions, err := r.ReadVec3(ctx, "PartType1/Coordinates")
//
//	err = comm.Run(ctx, 4, func(ctx context.Context, c *comm.Comm) error {
//		arr, err := r.ReadVec3Shared(ctx, c, "PartType1/Coordinates")
//		...
//		return arr.Free()
//	})
//
// Dataset names follow the "PartTypeN/Name" convention. Aliases map
// familiar names onto stored ones and can be loaded from YAML with
// LoadAliases.
package snapshot
