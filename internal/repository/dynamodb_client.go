package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"meingenie/internal/domain"
)

const skTokens = "TOKENS#"

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore keeps the token pair in a DynamoDB table so several headless
// clients can share one sign-in. Items are keyed PROFILE#<name> / TOKENS#.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	profile   string
	now       func() time.Time
}

// NewDynamoStore creates a store for the given credential profile.
func NewDynamoStore(api dynamodbAPI, tableName, profile string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	return &DynamoStore{api: api, tableName: tableName, profile: profile, now: time.Now}, nil
}

// profilePK returns the partition key for a credential profile.
func profilePK(profile string) string {
	return "PROFILE#" + profile
}

func (s *DynamoStore) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: profilePK(s.profile)},
		"SK": &types.AttributeValueMemberS{Value: skTokens},
	}
}

// Load returns the stored pair, or ErrNotFound when the profile has none.
func (s *DynamoStore) Load(ctx context.Context) (domain.TokenPair, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.TokenPair{}, ErrNotFound
	}
	access, err := strAttr(out.Item, "accessToken")
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("repository: Load decode: %w", err)
	}
	refresh, _ := strAttr(out.Item, "refreshToken") // allow empty
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Save replaces the stored pair.
func (s *DynamoStore) Save(ctx context.Context, pair domain.TokenPair) error {
	if pair.Empty() {
		return errors.New("repository: Save: access token is required")
	}
	item := s.key()
	item["accessToken"] = &types.AttributeValueMemberS{Value: pair.AccessToken}
	item["refreshToken"] = &types.AttributeValueMemberS{Value: pair.RefreshToken}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

// Clear deletes the stored pair. Deleting a missing item is not an error.
func (s *DynamoStore) Clear(ctx context.Context) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(),
	})
	if err != nil {
		return fmt.Errorf("repository: Clear: %w", err)
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
