package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/meshgo/blobstore"
)

// Registry records which snapshot manifest is current, backed by DynamoDB.
//
// S3 has no compare-and-swap, so a writer that uploads all column blobs
// and the manifest still needs an atomic way to mark the snapshot
// complete. The registry provides that: each Publish writes a new
// monotonically increasing version with a conditional put, and readers
// resolve Latest before opening any blobs. A snapshot whose manifest was
// never published is invisible no matter what lies in the bucket.
//
// Table schema:
//   - Partition key: base_uri (string) - the object store URI of the snapshot tree
//   - Sort key: version (number) - monotonically increasing version
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name meshgo-snapshots \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type Registry struct {
	ddb   DDBClient
	table string
	scope string // partition key, e.g. "s3://bucket/prefix"
}

// DDBClient is the subset of the DynamoDB API the registry uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another writer published the
// same version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// NewRegistry creates a registry over the given table. The scope should
// be the "s3://bucket/prefix" URI of the snapshot tree, so multiple trees
// can share one table.
func NewRegistry(ddb DDBClient, table, scope string) *Registry {
	return &Registry{
		ddb:   ddb,
		table: table,
		scope: scope,
	}
}

// Latest returns the most recently published version and its manifest
// key. Returns blobstore.ErrNotFound if nothing has been published.
func (r *Registry) Latest(ctx context.Context) (uint64, string, error) {
	resp, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: r.scope},
		},
		ScanIndexForward: aws.Bool(false), // descending, newest first
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query registry: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", blobstore.ErrNotFound
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("registry item has no numeric version attribute")
	}
	pathAttr, ok := item["manifest_path"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("registry item has no manifest_path attribute")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse registry version: %w", err)
	}

	return version, pathAttr.Value, nil
}

// Publish atomically records manifestKey as the next version and returns
// that version. Returns ErrConcurrentModification if another writer got
// there first; the caller may re-resolve Latest and retry.
func (r *Registry) Publish(ctx context.Context, manifestKey string) (uint64, error) {
	current, _, err := r.Latest(ctx)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return 0, err
	}

	next := current + 1

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: r.scope},
			"version":       &types.AttributeValueMemberN{Value: strconv.FormatUint(next, 10)},
			"manifest_path": &types.AttributeValueMemberS{Value: manifestKey},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return 0, ErrConcurrentModification
		}
		return 0, fmt.Errorf("publish version %d: %w", next, err)
	}

	return next, nil
}
