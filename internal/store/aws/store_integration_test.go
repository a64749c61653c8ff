//go:build integration

package aws_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/onboard/internal/bootstrap"
	"github.com/wolfeidau/onboard/internal/models"
	"github.com/wolfeidau/onboard/internal/store"
	awsstore "github.com/wolfeidau/onboard/internal/store/aws"
)

const testDynamoDBRegion = "us-east-1"

func setupDynamoDBContainer(t *testing.T, ctx context.Context) (*awsstore.Store, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "amazon/dynamodb-local:latest",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory"},
		WaitingFor:   wait.ForListeningPort("8000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "8000")
	require.NoError(t, err)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(testDynamoDBRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
	)
	require.NoError(t, err)

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("http://%s:%s", host, port.Port()))
	})

	res, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		DynamoClient:   client,
		Environment:    "test",
		CleanResources: true,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = container.Terminate(ctx)
	}

	return awsstore.NewStore(client, res.Tables), cleanup
}

func TestIntegration_DynamoDBStore(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupDynamoDBContainer(t, ctx)
	defer cleanup()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Ping(ctx))

	t.Run("users", func(t *testing.T) {
		require.NoError(t, st.CreateUser(ctx, models.NewUser("user-1", "alice@example.com", "Alice", now)))
		require.ErrorIs(t, st.CreateUser(ctx, models.NewUser("user-1", "alice@example.com", "Alice", now)), store.ErrUserExists)

		u, err := st.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, "user-1", u.UserID)
		require.Empty(t, u.CompanyIDs)

		u.Role = models.RoleAdmin
		u.Email = "changed@example.com"
		require.NoError(t, st.UpdateUser(ctx, u))

		got, err := st.GetUser(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, got.IsAdmin())
		require.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("steps dual write", func(t *testing.T) {
		require.NoError(t, st.CreateCompany(ctx, models.NewCompany("company-1", "Acme", now)))

		steps := []models.OnboardingStep{
			{ID: "a", Name: "A", Status: models.StepStatusTodo, UpdatedAt: now},
			{ID: "b", Name: "B", Status: models.StepStatusTodo, UpdatedAt: now},
		}
		require.NoError(t, st.PutSteps(ctx, "company-1", steps))

		updated := steps[1]
		updated.Status = models.StepStatusDone
		require.NoError(t, st.SaveStep(ctx, "company-1", updated, []models.OnboardingStep{steps[0], updated}))

		doc, err := st.GetStep(ctx, "company-1", "b")
		require.NoError(t, err)
		require.Equal(t, models.StepStatusDone, doc.Status)

		c, err := st.GetCompany(ctx, "company-1")
		require.NoError(t, err)
		require.Len(t, c.OnboardingSteps, 2)
		require.Equal(t, models.StepStatusDone, c.OnboardingSteps[1].Status)

		require.ErrorIs(t, st.SaveStep(ctx, "missing", updated, nil), store.ErrCompanyNotFound)

		n, err := st.DeleteSteps(ctx, "company-1")
		require.NoError(t, err)
		require.Equal(t, 2, n)
	})

	t.Run("membership", func(t *testing.T) {
		require.NoError(t, st.AddMembership(ctx, "user-1", "company-1"))
		require.NoError(t, st.AddMembership(ctx, "user-1", "company-1"))

		u, err := st.GetUser(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, []string{"company-1"}, u.CompanyIDs)

		require.ErrorIs(t, st.AddMembership(ctx, "nobody", "company-1"), store.ErrUserNotFound)

		require.NoError(t, st.RemoveMembership(ctx, "user-1", "company-1"))
		c, err := st.GetCompany(ctx, "company-1")
		require.NoError(t, err)
		require.Empty(t, c.UserIDs)
	})

	t.Run("concurrent redeem has one winner", func(t *testing.T) {
		require.NoError(t, st.CreateInvitation(ctx, &models.Invitation{
			Code:        "CODE1",
			CompanyID:   "company-1",
			CompanyName: "Acme",
			ExpiryDate:  now.Add(24 * time.Hour),
			CreatedAt:   now,
			CreatedBy:   "user-1",
		}))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := range 5 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := st.RedeemInvitation(ctx, store.Redemption{
					Code:   "CODE1",
					UserID: fmt.Sprintf("redeemer-%d", i),
					Email:  fmt.Sprintf("r%d@example.com", i),
					At:     now,
				})
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		require.Equal(t, 1, successes)

		inv, err := st.GetInvitation(ctx, "CODE1")
		require.NoError(t, err)
		require.True(t, inv.Used)

		u, err := st.GetUser(ctx, inv.UsedBy)
		require.NoError(t, err)
		require.Equal(t, []string{"company-1"}, u.CompanyIDs)
		require.Equal(t, models.RoleUser, u.Role)
	})
}
