// Package s3 provides an S3 implementation of the blobstore.BlobStore
// interface, plus a DynamoDB-backed registry for atomic snapshot
// publication.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("snapshots/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	reader, err := snapshot.NewReader(ctx, store, "snap_011")
//
// # Features
//
//   - Range reads so column blocks stream without whole-file downloads
//   - Multipart uploads with CRC32C checksums for column blobs
//   - Automatic pagination for listing
//   - Configurable prefix for sharing a bucket between simulation runs
//   - Registry: conditional-put versioning in DynamoDB that marks a
//     snapshot upload complete (S3 alone cannot do compare-and-swap)
//   - ExpressStore: S3 Express One Zone directory buckets with
//     conditional writes
package s3
