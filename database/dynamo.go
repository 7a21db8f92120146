package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client DynamoKV uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoKV stores each key as one item in a table with string hash key "pk".
type DynamoKV struct {
	client DynamoAPI
	table  string
}

type ddbEntry struct {
	PK        string `dynamodbav:"pk"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
	// ExpiresAt feeds the table's TTL attribute; zero means never.
	ExpiresAt int64 `dynamodbav:"expires_at,omitempty"`
}

func NewDynamoKV(client DynamoAPI, table string) *DynamoKV {
	return &DynamoKV{client: client, table: table}
}

func (d *DynamoKV) key(k string) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(map[string]string{"pk": k})
}

func (d *DynamoKV) Get(ctx context.Context, k string) (string, bool, error) {
	key, err := d.key(k)
	if err != nil {
		return "", false, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &d.table,
		Key:            key,
		ConsistentRead: boolPtr(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}
	var e ddbEntry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return "", false, fmt.Errorf("unmarshal item: %w", err)
	}
	return e.Value, true, nil
}

func (d *DynamoKV) Set(ctx context.Context, k, value string) error {
	item, err := attributevalue.MarshalMap(ddbEntry{
		PK:        k,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &d.table, Item: item}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

// SetNX writes value with a conditional put that fails when pk already exists.
func (d *DynamoKV) SetNX(ctx context.Context, k, value string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	entry := ddbEntry{PK: k, Value: value, UpdatedAt: now.Format(time.RFC3339)}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return false, fmt.Errorf("marshal item: %w", err)
	}
	cond := "attribute_not_exists(pk)"
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &d.table,
		Item:                item,
		ConditionExpression: &cond,
	})
	var conflict *types.ConditionalCheckFailedException
	if errors.As(err, &conflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return true, nil
}

func (d *DynamoKV) Delete(ctx context.Context, k string) error {
	key, err := d.key(k)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: &d.table, Key: key}); err != nil {
		return fmt.Errorf("dynamodb DeleteItem failed: %w", err)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
