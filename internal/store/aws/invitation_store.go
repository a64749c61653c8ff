package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
)

// CreateInvitation stores a new invitation keyed by code
func (s *Store) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	item, err := attributevalue.MarshalMap(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invitation: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Invitations),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(code)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return store.ErrInvitationExists
		}
		return wrapAWSError(err, "failed to create invitation")
	}

	log.Debug().
		Str("code", inv.Code).
		Str("company_id", inv.CompanyID).
		Msg("invitation created")

	return nil
}

// GetInvitation retrieves an invitation by code
func (s *Store) GetInvitation(ctx context.Context, code string) (*models.Invitation, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Invitations),
		Key:            stringKey("code", code),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, wrapAWSError(err, "failed to get invitation")
	}

	if result.Item == nil {
		return nil, store.ErrInvitationNotFound
	}

	var inv models.Invitation
	if err := attributevalue.UnmarshalMap(result.Item, &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invitation: %w", err)
	}

	return &inv, nil
}

// RedeemInvitation marks the invitation used and grants membership in one transaction.
// The invitation update is conditional on used = false so concurrent redeemers have one winner.
func (s *Store) RedeemInvitation(ctx context.Context, r store.Redemption) (*models.Invitation, error) {
	inv, err := s.GetInvitation(ctx, r.Code)
	if err != nil {
		return nil, err
	}
	if inv.Used {
		return nil, store.ErrInvitationUsed
	}

	at := r.At.UTC()

	invExpr, err := expression.NewBuilder().
		WithUpdate(expression.Set(expression.Name("used"), expression.Value(true)).
			Set(expression.Name("usedBy"), expression.Value(r.UserID)).
			Set(expression.Name("usedAt"), expression.Value(at)).
			Set(expression.Name("userEmail"), expression.Value(r.Email))).
		WithCondition(expression.Name("used").Equal(expression.Value(false))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build invitation expression: %w", err)
	}

	minimal := models.NewUser(r.UserID, r.Email, "", at)
	userExpr, err := expression.NewBuilder().
		WithUpdate(expression.Add(expression.Name("company_ids"), expression.Value(stringSet{inv.CompanyID})).
			Set(expression.Name("email"), expression.Name("email").IfNotExists(expression.Value(minimal.Email))).
			Set(expression.Name("display_name"), expression.Name("display_name").IfNotExists(expression.Value(minimal.DisplayName))).
			Set(expression.Name("role"), expression.Name("role").IfNotExists(expression.Value(minimal.Role))).
			Set(expression.Name("created_at"), expression.Name("created_at").IfNotExists(expression.Value(minimal.CreatedAt))).
			Set(expression.Name("profile"), expression.Name("profile").IfNotExists(expression.Value(minimal.Profile)))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build user expression: %w", err)
	}

	companyExpr, err := membershipExpression(expression.Add(expression.Name("user_ids"), expression.Value(stringSet{r.UserID})), "company_id")
	if err != nil {
		return nil, err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: s.updateItem(s.tables.Invitations, stringKey("code", r.Code), invExpr)},
			{Update: s.updateItem(s.tables.Users, stringKey("user_id", r.UserID), userExpr)},
			{Update: s.updateItem(s.tables.Companies, stringKey("company_id", inv.CompanyID), companyExpr)},
		},
	})
	if err != nil {
		switch {
		case cancelledAt(err, 0):
			return nil, store.ErrInvitationUsed
		case cancelledAt(err, 2):
			return nil, store.ErrCompanyNotFound
		}
		return nil, wrapAWSError(err, "failed to redeem invitation")
	}

	inv.Used = true
	inv.UsedBy = r.UserID
	inv.UsedAt = &at
	inv.UserEmail = r.Email

	log.Debug().
		Str("code", r.Code).
		Str("user_id", r.UserID).
		Str("company_id", inv.CompanyID).
		Msg("invitation redeemed")

	return inv, nil
}

func (s *Store) updateItem(table string, key map[string]types.AttributeValue, expr expression.Expression) *types.Update {
	return &types.Update{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
}
