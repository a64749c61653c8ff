package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Users),
		Key:       stringKey("user_id", userID),
	})
	if err != nil {
		return nil, wrapAWSError(err, "failed to get user")
	}

	if result.Item == nil {
		return nil, store.ErrUserNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return normalizeUser(&user), nil
}

// GetUserByEmail scans for a user with the given email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("email").Equal(expression.Value(email))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tables.Users),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapAWSError(err, "failed to scan users by email")
		}
		if len(page.Items) == 0 {
			continue
		}

		var user models.User
		if err := attributevalue.UnmarshalMap(page.Items[0], &user); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user: %w", err)
		}
		return normalizeUser(&user), nil
	}

	return nil, store.ErrUserNotFound
}

// CreateUser creates a new user
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Users),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return store.ErrUserExists
		}
		return wrapAWSError(err, "failed to create user")
	}

	log.Debug().
		Str("user_id", user.UserID).
		Str("role", string(user.Role)).
		Msg("user created")

	return nil
}

// UpdateUser updates display name, role and profile. Email is left as stored.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	profile := user.Profile
	if profile == nil {
		profile = map[string]any{}
	}

	update := expression.Set(expression.Name("display_name"), expression.Value(user.DisplayName)).
		Set(expression.Name("role"), expression.Value(user.Role)).
		Set(expression.Name("profile"), expression.Value(profile))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("user_id"))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tables.Users),
		Key:                       stringKey("user_id", user.UserID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return store.ErrUserNotFound
		}
		return wrapAWSError(err, "failed to update user")
	}

	return nil
}

// ListUsers scans every user
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.tables.Users),
	})

	var users []*models.User
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapAWSError(err, "failed to list users")
		}

		for _, item := range page.Items {
			var user models.User
			if err := attributevalue.UnmarshalMap(item, &user); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal user, skipping")
				continue
			}
			users = append(users, normalizeUser(&user))
		}
	}

	return users, nil
}

// normalizeUser replaces nil collections left by omitted empty sets.
func normalizeUser(u *models.User) *models.User {
	if u.CompanyIDs == nil {
		u.CompanyIDs = []string{}
	}
	if u.Profile == nil {
		u.Profile = map[string]any{}
	}
	return u
}
