package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ibt-bridge/pkg/bridge"
	"ibt-bridge/pkg/types"
)

func TestProgressMessage(t *testing.T) {
	tests := []struct {
		state     bridge.State
		direction types.Direction
		want      string
	}{
		{bridge.StateBurningSource, types.EthToSui, "Step 1/2: Burning tokens on Ethereum..."},
		{bridge.StateMintingDestination, types.EthToSui, "Step 2/2: Minting tokens on Sui..."},
		{bridge.StateBurningSource, types.SuiToEth, "Step 1/2: Burning tokens on Sui..."},
		{bridge.StateMintingDestination, types.SuiToEth, "Step 2/2: Minting tokens on Ethereum..."},
		{bridge.StateCompleted, types.SuiToEth, "Refreshing balances..."},
		{bridge.StateFailed, types.SuiToEth, "failed"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, progressMessage(tt.state, tt.direction))
	}
}

func TestDisplayHelpers(t *testing.T) {
	assert.Equal(t, "(not connected)", displayAccount(""))
	assert.Equal(t, "0xabc", displayAccount("0xabc"))
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "1.5", orDash("1.5"))
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, newLogger(false))
	assert.NotNil(t, newLogger(true))
}

func TestValidateWatchInterval(t *testing.T) {
	tests := []struct {
		seconds int
		wantErr bool
	}{
		{5, false},
		{1, false},
		{0, true},
		{-3, true},
	}

	for _, tt := range tests {
		err := validateWatchInterval(tt.seconds)
		if tt.wantErr {
			assert.Error(t, err, "interval %d", tt.seconds)
		} else {
			assert.NoError(t, err, "interval %d", tt.seconds)
		}
	}
}

func TestWatchBalancesStopsOnCancel(t *testing.T) {
	prev := watchInterval
	watchInterval = 1
	defer func() { watchInterval = prev }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchBalances(ctx, bridge.NewOrchestrator(nil, nil, nil, nil), "", "")
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watch loop did not stop after cancel")
	}
}
