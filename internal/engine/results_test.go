package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryClaimThenDeliver(t *testing.T) {
	reg := newResultRegistry()
	cmdID := newTestMinter().CommandID()

	ch := reg.Claim(cmdID)
	require.NoError(t, reg.deliver(Result{CommandID: cmdID, Kind: CmdCreateDoc}))

	select {
	case res := <-ch:
		assert.Equal(t, cmdID, res.CommandID)
	case <-time.After(time.Second):
		t.Fatal("result not delivered")
	}
}

func TestRegistryDeliverThenClaim(t *testing.T) {
	reg := newResultRegistry()
	cmdID := newTestMinter().CommandID()

	require.NoError(t, reg.deliver(Result{CommandID: cmdID, Kind: CmdQueryStatus}))

	// A late claim still sees the parked result.
	select {
	case res := <-reg.Claim(cmdID):
		assert.Equal(t, cmdID, res.CommandID)
	case <-time.After(time.Second):
		t.Fatal("parked result lost")
	}
}

func TestRegistryClaimIsIdempotent(t *testing.T) {
	reg := newResultRegistry()
	cmdID := newTestMinter().CommandID()

	first := reg.Claim(cmdID)
	second := reg.Claim(cmdID)
	assert.Equal(t, first, second, "claims for one command share a channel")
}

func TestRegistryRejectsDuplicateDelivery(t *testing.T) {
	reg := newResultRegistry()
	cmdID := newTestMinter().CommandID()

	require.NoError(t, reg.deliver(Result{CommandID: cmdID}))

	err := reg.deliver(Result{CommandID: cmdID})
	require.Error(t, err)
	assert.True(t, IsDuplicateCorrelation(err))
	assert.True(t, reg.resolved(cmdID))
}

func TestRegistryIndependentCommands(t *testing.T) {
	reg := newResultRegistry()
	m := newTestMinter()
	a := m.CommandID()
	b := m.CommandID()

	require.NoError(t, reg.deliver(Result{CommandID: a}))
	assert.True(t, reg.resolved(a))
	assert.False(t, reg.resolved(b))
	require.NoError(t, reg.deliver(Result{CommandID: b}))
}
