package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/require"
	awsstore "github.com/wolfeidau/onboard/internal/store/aws"
)

func TestTableSpecs(t *testing.T) {
	specs := tableSpecs(awsstore.TableNamesFor("test"))
	require.Len(t, specs, 4)

	byName := map[string]tableSpec{}
	for _, s := range specs {
		byName[s.name] = s
	}

	require.Equal(t, "company_id", byName["test_onboarding_steps"].hashKey)
	require.Equal(t, "step_id", byName["test_onboarding_steps"].rangeKey)
	require.Equal(t, "code", byName["test_invitations"].hashKey)
	require.Empty(t, byName["test_users"].rangeKey)
}
