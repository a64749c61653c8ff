package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wolfeidau/onboard/internal/store"
)

// AddMembership adds both sides of a membership in one transaction
func (s *Store) AddMembership(ctx context.Context, userID, companyID string) error {
	return s.writeMembership(ctx, userID, companyID,
		expression.Add(expression.Name("company_ids"), expression.Value(stringSet{companyID})),
		expression.Add(expression.Name("user_ids"), expression.Value(stringSet{userID})),
	)
}

// RemoveMembership removes both sides of a membership in one transaction
func (s *Store) RemoveMembership(ctx context.Context, userID, companyID string) error {
	return s.writeMembership(ctx, userID, companyID,
		expression.Delete(expression.Name("company_ids"), expression.Value(stringSet{companyID})),
		expression.Delete(expression.Name("user_ids"), expression.Value(stringSet{userID})),
	)
}

func (s *Store) writeMembership(ctx context.Context, userID, companyID string, userUpdate, companyUpdate expression.UpdateBuilder) error {
	userExpr, err := membershipExpression(userUpdate, "user_id")
	if err != nil {
		return err
	}
	companyExpr, err := membershipExpression(companyUpdate, "company_id")
	if err != nil {
		return err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: s.updateItem(s.tables.Users, stringKey("user_id", userID), userExpr)},
			{Update: s.updateItem(s.tables.Companies, stringKey("company_id", companyID), companyExpr)},
		},
	})
	if err != nil {
		switch {
		case cancelledAt(err, 0):
			return store.ErrUserNotFound
		case cancelledAt(err, 1):
			return store.ErrCompanyNotFound
		}
		return wrapAWSError(err, "failed to update membership")
	}

	return nil
}

func membershipExpression(update expression.UpdateBuilder, keyAttr string) (expression.Expression, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name(keyAttr))).
		Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build membership expression: %w", err)
	}
	return expr, nil
}
