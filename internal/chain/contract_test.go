package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeLog(t *testing.T, contract, from, to common.Address, amount int64) types.Log {
	t.Helper()

	data, err := SubscriptionABI.Events[executeSubscriptionEvent].Inputs.NonIndexed().Pack(
		common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
		big.NewInt(amount),
		big.NewInt(2592000),
		big.NewInt(4_000_000_000),
		big.NewInt(3),
	)
	require.NoError(t, err)

	return types.Log{
		Address: contract,
		Topics: []common.Hash{
			ExecuteSubscriptionTopic(),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash("0xabc"),
		BlockNumber: 100,
		Index:       2,
	}
}

func TestParseExecuteSubscription(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	from := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	to := common.HexToAddress("0x00000000000000000000000000000000000000b1")

	event, err := ParseExecuteSubscription(executeLog(t, contract, from, to, 5000))
	require.NoError(t, err)

	assert.Equal(t, contract, event.Contract)
	assert.Equal(t, from, event.From)
	assert.Equal(t, to, event.To)
	assert.Equal(t, common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), event.TokenAddress)
	assert.EqualValues(t, 5000, event.TokenAmount.Int64())
	assert.EqualValues(t, 2592000, event.PeriodSeconds.Int64())
	assert.EqualValues(t, 4_000_000_000, event.GasPrice.Int64())
	assert.EqualValues(t, 3, event.Nonce.Int64())
	assert.EqualValues(t, 100, event.BlockNumber)
	assert.Equal(t, common.HexToHash("0xabc"), event.TxHash)
}

func TestParseExecuteSubscriptionRejectsOtherLogs(t *testing.T) {
	_, err := ParseExecuteSubscription(types.Log{Topics: []common.Hash{common.HexToHash("0x01")}})
	assert.Error(t, err)

	l := executeLog(t, common.Address{}, common.Address{}, common.Address{}, 1)
	l.Data = l.Data[:32]
	_, err = ParseExecuteSubscription(l)
	assert.Error(t, err)
}

func TestIsSupportedChainType(t *testing.T) {
	assert.True(t, IsSupportedChainType("ethereum"))
	assert.True(t, IsSupportedChainType("polygon"))
	assert.False(t, IsSupportedChainType("solana"))
}

func TestClosedManager(t *testing.T) {
	m := &Manager{}
	require.NoError(t, m.Close())

	_, err := m.CurrentBlockNumber(context.Background())
	assert.Error(t, err)
	_, err = m.FilterLogs(context.Background(), nil, 1, 2)
	assert.Error(t, err)

	health := m.GetHealthStatus(context.Background())
	assert.Equal(t, "closed", health["client_status"])
}
