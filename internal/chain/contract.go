package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// subscriptionABI grant 订阅合约中同步需要的事件
const subscriptionABI = `[
	{
		"anonymous": false,
		"type": "event",
		"name": "ExecuteSubscription",
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "tokenAddress", "type": "address"},
			{"indexed": false, "name": "tokenAmount", "type": "uint256"},
			{"indexed": false, "name": "periodSeconds", "type": "uint256"},
			{"indexed": false, "name": "gasPrice", "type": "uint256"},
			{"indexed": false, "name": "nonce", "type": "uint256"}
		]
	}
]`

const executeSubscriptionEvent = "ExecuteSubscription"

// SubscriptionABI 解析后的订阅合约 ABI
var SubscriptionABI = mustParseABI(subscriptionABI)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid subscription ABI: %v", err))
	}
	return parsed
}

// ExecuteSubscriptionTopic 事件签名
func ExecuteSubscriptionTopic() common.Hash {
	return SubscriptionABI.Events[executeSubscriptionEvent].ID
}

// ExecuteSubscription 一次周期扣款事件
type ExecuteSubscription struct {
	Contract      common.Address
	From          common.Address
	To            common.Address
	TokenAddress  common.Address
	TokenAmount   *big.Int
	PeriodSeconds *big.Int
	GasPrice      *big.Int
	Nonce         *big.Int
	TxHash        common.Hash
	BlockNumber   uint64
	LogIndex      uint
}

// ParseExecuteSubscription 解析 ExecuteSubscription 日志
func ParseExecuteSubscription(log types.Log) (*ExecuteSubscription, error) {
	if len(log.Topics) != 3 || log.Topics[0] != ExecuteSubscriptionTopic() {
		return nil, fmt.Errorf("log %s:%d is not an ExecuteSubscription event", log.TxHash.Hex(), log.Index)
	}

	values, err := SubscriptionABI.Unpack(executeSubscriptionEvent, log.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack ExecuteSubscription: %w", err)
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("unexpected ExecuteSubscription field count %d", len(values))
	}

	event := &ExecuteSubscription{
		Contract:    log.Address,
		From:        common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}

	var ok bool
	if event.TokenAddress, ok = values[0].(common.Address); !ok {
		return nil, fmt.Errorf("tokenAddress has type %T", values[0])
	}
	ints := []**big.Int{&event.TokenAmount, &event.PeriodSeconds, &event.GasPrice, &event.Nonce}
	for i, dst := range ints {
		v, ok := values[i+1].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("field %d has type %T", i+1, values[i+1])
		}
		*dst = v
	}

	return event, nil
}
