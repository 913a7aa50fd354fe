package songstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient is the subset of the DynamoDB API used by the Store,
// defined here for easier testing and connection management.
type DynamoDBClient interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store reads and writes songs in a single DynamoDB table. It is the
// sole reader and writer of the backing table: no caching or retry
// happens here, and every operation is one or more table round trips.
//
// The table handle is resolved lazily on first use and exactly once;
// concurrent first use from multiple requests is safe. A Store is safe
// for concurrent use after construction.
type Store struct {
	client    DynamoDBClient
	tableName string

	ready     atomic.Bool // table handle verified
	resolveMu sync.Mutex
}

// NewStore returns a Store over the given client and table. The table
// is not contacted until the first operation.
func NewStore(client DynamoDBClient, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// TableName returns the name of the backing table.
func (s *Store) TableName() string { return s.tableName }

// resolve verifies the table handle on first use. A missing table is
// reported as ErrTableNotFound and a connectivity fault as a
// StorageError; only success is memoized, so a transient fault does not
// poison later attempts.
func (s *Store) resolve(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	s.resolveMu.Lock()
	defer s.resolveMu.Unlock()
	if s.ready.Load() {
		return nil
	}

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, s.tableName)
	}
	if err != nil {
		return storageError("describe table", err)
	}

	s.ready.Store(true)
	return nil
}

// FetchAll returns every song in the table, transparently following
// pagination cursors until the scan is exhausted. An empty table yields
// an empty slice.
func (s *Store) FetchAll(ctx context.Context) ([]Song, error) {
	if err := s.resolve(ctx); err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	}

	var items []Item
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, storageError("scan", err)
		}
		items = append(items, out.Items...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return UnmarshalSongs(items)
}

// FetchByKey returns the song stored under id, or ErrSongNotFound if no
// such item exists.
func (s *Store) FetchByKey(ctx context.Context, id string) (Song, error) {
	if err := s.resolve(ctx); err != nil {
		return Song{}, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       Key(id),
	})
	if err != nil {
		return Song{}, storageError("get item", err)
	}
	if len(out.Item) == 0 {
		return Song{}, ErrSongNotFound
	}

	return UnmarshalSong(out.Item)
}

// Put inserts or replaces the full item for song, keyed by its id.
func (s *Store) Put(ctx context.Context, song Song) error {
	if err := s.resolve(ctx); err != nil {
		return err
	}

	item, err := MarshalSong(song)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return storageError("put item", err)
	}
	return nil
}

// PartialUpdate applies only the fields supplied in patch to the item
// stored under id and returns the resulting full song. The update is
// conditioned on the item existing, so updating an absent key fails
// with ErrSongNotFound rather than creating a partial item.
func (s *Store) PartialUpdate(ctx context.Context, id string, patch SongPatch) (Song, error) {
	if err := s.resolve(ctx); err != nil {
		return Song{}, err
	}

	expr, err := expression.NewBuilder().
		WithUpdate(patch.Update()).
		WithCondition(expression.AttributeExists(expression.Name(AttributeNameID))).
		Build()
	if err != nil {
		return Song{}, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       Key(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	var condFailed *types.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		return Song{}, ErrSongNotFound
	}
	if err != nil {
		return Song{}, storageError("update item", err)
	}

	return UnmarshalSong(out.Attributes)
}

// DeleteByKey removes the item stored under id and returns the song as
// it existed immediately before deletion, or ErrSongNotFound if there
// was no such item.
func (s *Store) DeleteByKey(ctx context.Context, id string) (Song, error) {
	if err := s.resolve(ctx); err != nil {
		return Song{}, err
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          Key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return Song{}, storageError("delete item", err)
	}
	if len(out.Attributes) == 0 {
		return Song{}, ErrSongNotFound
	}

	return UnmarshalSong(out.Attributes)
}
