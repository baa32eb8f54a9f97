package chain

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// supportedChainTypes 支持的 EVM 链
var supportedChainTypes = []string{"ethereum", "polygon", "bsc", "arbitrum", "optimism"}

const dialTimeout = 10 * time.Second

// Manager 订阅合约所在链的客户端，为 gas 建议和贡献同步提供数据
type Manager struct {
	mu     sync.RWMutex
	client *ethclient.Client
	cfg    config.ChainConfig
}

// NewManager 连接 RPC 并确认节点可用
func NewManager(cfg config.ChainConfig) (*Manager, error) {
	if cfg.RpcUrl == "" {
		return nil, fmt.Errorf("no RPC URL configured")
	}
	if !IsSupportedChainType(cfg.ChainType) {
		return nil, fmt.Errorf("unsupported chain type %s, supported types: %v", cfg.ChainType, supportedChainTypes)
	}

	logger.Info("Connecting to %s node for network %s (chain id %d)", cfg.ChainType, cfg.Network, cfg.ChainId)
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s node: %w", cfg.ChainType, err)
	}
	head, err := client.BlockNumber(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("node health check failed: %w", err)
	}

	logger.Info("Chain client ready, head block %d", head)
	return &Manager{client: client, cfg: cfg}, nil
}

// IsSupportedChainType 检查链类型
func IsSupportedChainType(chainType string) bool {
	return slices.Contains(supportedChainTypes, chainType)
}

func (m *Manager) conn() (*ethclient.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, fmt.Errorf("chain client closed")
	}
	return m.client, nil
}

// SuggestGasPrice 节点建议的 gas 价格（wei）
func (m *Manager) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client, err := m.conn()
	if err != nil {
		return nil, err
	}
	return client.SuggestGasPrice(ctx)
}

// CurrentBlockNumber 最新区块号
func (m *Manager) CurrentBlockNumber(ctx context.Context) (int64, error) {
	client, err := m.conn()
	if err != nil {
		return 0, err
	}
	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Int64(), nil
}

// FilterLogs 查询区块范围内订阅合约的 ExecuteSubscription 日志，区间两端都包含
func (m *Manager) FilterLogs(ctx context.Context, addresses []common.Address, fromBlock, toBlock int64) ([]types.Log, error) {
	client, err := m.conn()
	if err != nil {
		return nil, err
	}
	return client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(fromBlock),
		ToBlock:   big.NewInt(toBlock),
		Addresses: addresses,
		Topics:    [][]common.Hash{{ExecuteSubscriptionTopic()}},
	})
}

// GetHealthStatus 供 /health 展示的链状态
func (m *Manager) GetHealthStatus(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"chain_type":    m.cfg.ChainType,
		"chain_id":      m.cfg.ChainId,
		"network":       m.cfg.Network,
		"client_status": "connected",
	}

	client, err := m.conn()
	if err != nil {
		health["client_status"] = "closed"
		return health
	}
	if number, err := client.BlockNumber(ctx); err != nil {
		health["client_status"] = "disconnected"
	} else {
		health["block_number"] = number
	}
	return health
}

// Close 关闭客户端，可重复调用
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		m.client.Close()
		m.client = nil
		logger.Info("Chain client closed")
	}
	return nil
}
