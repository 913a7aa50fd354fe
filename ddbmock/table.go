package ddbmock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/songstore"
)

// TableFake is an in-memory stand-in for a single id-keyed DynamoDB
// table. Items are stored by their "id" attribute and scanned in sorted
// key order, so pagination is deterministic. Safe for concurrent use.
type TableFake struct {
	// PageSize caps the number of items returned per Scan page. Zero
	// means unlimited; set a small value to force multi-page scans.
	PageSize int

	// MissingTable makes DescribeTable report ResourceNotFoundException,
	// simulating an unprovisioned table.
	MissingTable bool

	mu    sync.Mutex
	items map[string]songstore.Item
}

var _ songstore.DynamoDBClient = (*TableFake)(nil)

// NewTableFake returns an empty fake table.
func NewTableFake() *TableFake {
	return &TableFake{items: make(map[string]songstore.Item)}
}

// Len returns the number of stored items.
func (f *TableFake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// DescribeTable resolves the fake table handle.
func (f *TableFake) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.MissingTable {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String("Requested resource not found: " + aws.ToString(params.TableName)),
		}
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   params.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

// PutItem inserts or replaces the item under its "id" attribute.
func (f *TableFake) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id, err := keyString(params.Item)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id] = copyItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem returns the item under the requested key, or an empty output
// when absent.
func (f *TableFake) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	id, err := keyString(params.Key)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

// UpdateItem applies a SET update expression to the stored item. Any
// condition expression is treated as attribute_exists on the key, which
// matches how the store uses conditions.
func (f *TableFake) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	id, err := keyString(params.Key)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok {
		if params.ConditionExpression != nil {
			return nil, &types.ConditionalCheckFailedException{
				Message: aws.String("The conditional request failed"),
			}
		}
		// Unconditional updates upsert, like the real table.
		item = copyItem(params.Key)
		f.items[id] = item
	}

	if err := applySet(item, params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
		return nil, err
	}

	out := &dynamodb.UpdateItemOutput{}
	if params.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = copyItem(item)
	}
	return out, nil
}

// DeleteItem removes the item under the requested key, returning the
// prior attributes when ALL_OLD is requested.
func (f *TableFake) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id, err := keyString(params.Key)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := &dynamodb.DeleteItemOutput{}
	if item, ok := f.items[id]; ok {
		if params.ReturnValues == types.ReturnValueAllOld {
			out.Attributes = copyItem(item)
		}
		delete(f.items, id)
	}
	return out, nil
}

// Scan returns a page of items in sorted key order, honoring
// ExclusiveStartKey, Limit and PageSize. LastEvaluatedKey is set while
// items remain.
func (f *TableFake) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		after, err := keyString(params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.SearchStrings(ids, after)
		if start < len(ids) && ids[start] == after {
			start++
		}
	}

	end := len(ids)
	if f.PageSize > 0 && start+f.PageSize < end {
		end = start + f.PageSize
	}
	if params.Limit != nil && start+int(*params.Limit) < end {
		end = start + int(*params.Limit)
	}

	out := &dynamodb.ScanOutput{}
	for _, id := range ids[start:end] {
		out.Items = append(out.Items, copyItem(f.items[id]))
	}
	if end < len(ids) {
		out.LastEvaluatedKey = songstore.Key(ids[end-1])
	}
	return out, nil
}

// keyString extracts the string value of the "id" attribute.
func keyString(item songstore.Item) (string, error) {
	attr, ok := item[songstore.AttributeNameID]
	if !ok {
		return "", fmt.Errorf("item has no %q attribute", songstore.AttributeNameID)
	}
	s, ok := attr.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", songstore.AttributeNameID)
	}
	return s.Value, nil
}

func copyItem(item songstore.Item) songstore.Item {
	dup := make(songstore.Item, len(item))
	for k, v := range item {
		dup[k] = v
	}
	return dup
}

// applySet applies a "SET <name> = <value>, ..." update expression,
// resolving substituted attribute names and values. Only SET is
// supported; the store builds nothing else.
func applySet(item songstore.Item, expr *string, names map[string]string, values map[string]types.AttributeValue) error {
	if expr == nil {
		return fmt.Errorf("missing update expression")
	}
	rest, ok := strings.CutPrefix(strings.TrimSpace(*expr), "SET ")
	if !ok {
		return fmt.Errorf("unsupported update expression: %s", *expr)
	}

	for _, assignment := range strings.Split(rest, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(assignment), " = ")
		if !ok {
			return fmt.Errorf("malformed assignment: %s", assignment)
		}
		if resolved, ok := names[name]; ok {
			name = resolved
		}
		attr, ok := values[value]
		if !ok {
			return fmt.Errorf("unbound expression value: %s", value)
		}
		item[name] = attr
	}
	return nil
}
