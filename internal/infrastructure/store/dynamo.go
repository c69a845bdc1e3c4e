package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoKV
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoKV stores entries in a DynamoDB table keyed by (device_id, key)
type DynamoKV struct {
	client    DynamoAPI
	tableName string
	deviceID  string
}

// dynamoEntry represents the DynamoDB item structure
type dynamoEntry struct {
	DeviceID  string `dynamodbav:"device_id"`
	Key       string `dynamodbav:"key"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoKV(client DynamoAPI, tableName, deviceID string) *DynamoKV {
	return &DynamoKV{
		client:    client,
		tableName: tableName,
		deviceID:  deviceID,
	}
}

// NewDynamoClient builds a client from the default AWS credential chain.
// A non-empty endpoint overrides the service URL (DynamoDB Local).
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (kv *DynamoKV) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"device_id": &types.AttributeValueMemberS{Value: kv.deviceID},
		"key":       &types.AttributeValueMemberS{Value: key},
	}
}

// Get retrieves a value by key
func (kv *DynamoKV) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := kv.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(kv.tableName),
		Key:            kv.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if result.Item == nil {
		return "", false, nil
	}

	var entry dynamoEntry
	if err := attributevalue.UnmarshalMap(result.Item, &entry); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set stores a value, overwriting any previous item
func (kv *DynamoKV) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	av, err := attributevalue.MarshalMap(dynamoEntry{
		DeviceID:  kv.deviceID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	_, err = kv.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(kv.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// Remove deletes a value
func (kv *DynamoKV) Remove(ctx context.Context, key string) error {
	_, err := kv.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(kv.tableName),
		Key:       kv.itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
