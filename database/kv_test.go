package database

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	_, ok, err := kv.Get(ctx, "cart")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "cart", "[]"))
	v, ok, err := kv.Get(ctx, "cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)

	require.NoError(t, kv.Delete(ctx, "cart"))
	_, ok, _ = kv.Get(ctx, "cart")
	assert.False(t, ok)
}

func TestSessionKV_IsolatesSessions(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryKV()
	a := SessionKV(base, "a")
	b := SessionKV(base, "b")

	require.NoError(t, a.Set(ctx, "cart", "A"))
	require.NoError(t, b.Set(ctx, "cart", "B"))

	va, _, _ := a.Get(ctx, "cart")
	vb, _, _ := b.Get(ctx, "cart")
	assert.Equal(t, "A", va)
	assert.Equal(t, "B", vb)
	assert.ElementsMatch(t, []string{"session:a:cart", "session:b:cart"}, base.Keys())
}

func TestGetJSON(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	var out []string
	found, err := GetJSON(ctx, kv, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, kv, "list", []string{"x", "y"}))
	found, err = GetJSON(ctx, kv, "list", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"x", "y"}, out)

	require.NoError(t, kv.Set(ctx, "bad", "{not json"))
	found, err = GetJSON(ctx, kv, "bad", &out)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestRedisKV_PropagatesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:0",
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("redis disabled in tests")
		},
		MaxRetries: -1,
	})
	kv := NewRedisKV(client, 0)

	_, _, err := kv.Get(context.Background(), "cart")
	assert.Error(t, err)
	assert.Error(t, kv.Set(context.Background(), "cart", "[]"))
}

type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
}

func (f *fakeDynamo) pk(key map[string]types.AttributeValue) string {
	var k struct {
		PK string `dynamodbav:"pk"`
	}
	_ = attributevalue.UnmarshalMap(key, &k)
	return k.PK
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[f.pk(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk := f.pk(in.Item)
	if in.ConditionExpression != nil {
		if _, exists := f.items[pk]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
		}
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, f.pk(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoKV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewDynamoKV(&fakeDynamo{items: map[string]map[string]types.AttributeValue{}}, "state")

	_, ok, err := kv.Get(ctx, "orders")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "orders", `[{"id":"1"}]`))
	v, ok, err := kv.Get(ctx, "orders")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, kv.Delete(ctx, "orders"))
	_, ok, _ = kv.Get(ctx, "orders")
	assert.False(t, ok)
}

func TestSetNX_ClaimsOnce(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryKV()

	tests := []struct {
		name string
		kv   KV
		key  string
	}{
		{"memory", base, "payref:ref_1"},
		{"prefixed", SessionKV(base, "a"), "claim"},
		{"dynamo", NewDynamoKV(&fakeDynamo{items: map[string]map[string]types.AttributeValue{}}, "state"), "payref:ref_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			won, err := SetNX(ctx, tt.kv, tt.key, "first", 0)
			require.NoError(t, err)
			assert.True(t, won)

			won, err = SetNX(ctx, tt.kv, tt.key, "second", 0)
			require.NoError(t, err)
			assert.False(t, won)

			v, ok, err := tt.kv.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "first", v)
		})
	}
}

type plainKV struct{ KV }

func TestSetNX_Unsupported(t *testing.T) {
	_, err := SetNX(context.Background(), plainKV{NewMemoryKV()}, "k", "v", 0)
	assert.ErrorIs(t, err, ErrClaimUnsupported)
}

func TestDynamoKV_SetNXWritesExpiry(t *testing.T) {
	fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	kv := NewDynamoKV(fake, "state")

	won, err := kv.SetNX(context.Background(), "idem:checkout:s:1", "order-1", time.Hour)
	require.NoError(t, err)
	require.True(t, won)

	var e ddbEntry
	require.NoError(t, attributevalue.UnmarshalMap(fake.items["idem:checkout:s:1"], &e))
	assert.Equal(t, "order-1", e.Value)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), e.ExpiresAt, 5)
}
