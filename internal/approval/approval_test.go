package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func TestAutoApproveEnabled(t *testing.T) {
	t.Setenv("ORDINEX_AUTO_APPROVE", "")
	assert.False(t, AutoApproveEnabled())

	for _, v := range []string{"1", "true", "YES"} {
		t.Setenv("ORDINEX_AUTO_APPROVE", v)
		assert.True(t, AutoApproveEnabled(), v)
	}

	t.Setenv("ORDINEX_AUTO_APPROVE", "0")
	assert.False(t, AutoApproveEnabled())
}

func TestAutoTransportApprovesAndAllowlists(t *testing.T) {
	ctx := context.Background()

	d, err := AutoTransport{}.RequestApproval(ctx, Request{Kind: KindApplyDiff})
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.False(t, d.AlwaysAllow)

	d, err = AutoTransport{}.RequestApproval(ctx, Request{Kind: KindRunTests})
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.True(t, d.AlwaysAllow)
}

func TestAutoTransportPicksDefaultOption(t *testing.T) {
	dp := types.DecisionPoint{
		ID: "dp-1",
		Options: []types.DecisionOption{
			{ID: "retry", Action: types.DecisionRetryNow, Default: true},
			{ID: "abort", Action: types.DecisionAbortStep},
		},
	}
	res, err := AutoTransport{}.ResolveDecision(context.Background(), dp)
	require.NoError(t, err)
	assert.Equal(t, "retry", res.OptionID)
}

func TestAutoTransportFallsBackToAbort(t *testing.T) {
	dp := types.DecisionPoint{
		ID: "dp-1",
		Options: []types.DecisionOption{
			{ID: "abort", Action: types.DecisionAbortStep},
		},
	}
	res, err := AutoTransport{}.ResolveDecision(context.Background(), dp)
	require.NoError(t, err)
	assert.Equal(t, "abort", res.OptionID)
}

func TestDenyTransport(t *testing.T) {
	d, err := DenyTransport{}.RequestApproval(context.Background(), Request{Kind: KindApplyDiff})
	require.NoError(t, err)
	assert.False(t, d.Approved)

	dp := types.DecisionPoint{
		ID: "dp-1",
		Options: []types.DecisionOption{
			{ID: "retry", Action: types.DecisionRetryNow, Default: true},
			{ID: "abort", Action: types.DecisionAbortStep},
		},
	}
	res, err := DenyTransport{}.ResolveDecision(context.Background(), dp)
	require.NoError(t, err)
	assert.Equal(t, "abort", res.OptionID)
}

func TestPickOption(t *testing.T) {
	dp := types.DecisionPoint{
		ID: "dp-1",
		Options: []types.DecisionOption{
			{ID: "retry", Label: "Retry", Default: true},
			{ID: "abort", Label: "Abort"},
		},
	}

	assert.Equal(t, "retry", pickOption(dp, "").ID)
	assert.Equal(t, "abort", pickOption(dp, "abort").ID)
	assert.Equal(t, "abort", pickOption(dp, "2").ID)
	assert.Nil(t, pickOption(dp, "nope"))
}
