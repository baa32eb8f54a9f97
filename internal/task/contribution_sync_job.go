package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blues/grants/internal/chain"
	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LogSource 链上区块与日志
type LogSource interface {
	CurrentBlockNumber(ctx context.Context) (int64, error)
	FilterLogs(ctx context.Context, addresses []common.Address, fromBlock, toBlock int64) ([]types.Log, error)
}

// ContributionSyncJob 扫描 grant 合约的 ExecuteSubscription 事件并记录贡献
type ContributionSyncJob struct {
	db       *gorm.DB
	source   LogSource
	cfg      config.ChainConfig
	interval time.Duration

	mu        sync.Mutex
	nextBlock int64 // 下一个待扫描区块，0 表示尚未初始化
}

// NewContributionSyncJob 创建贡献同步任务
func NewContributionSyncJob(db *gorm.DB, source LogSource, cfg config.ChainConfig, intervalSeconds int) *ContributionSyncJob {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Confirmations < 0 {
		cfg.Confirmations = 0
	}
	return &ContributionSyncJob{
		db:       db,
		source:   source,
		cfg:      cfg,
		interval: time.Duration(intervalSeconds) * time.Second,
	}
}

// GetName 获取任务名称
func (j *ContributionSyncJob) GetName() string {
	return "contribution_sync"
}

// GetSchedule 获取调度配置
func (j *ContributionSyncJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *ContributionSyncJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval*4)
	defer cancel()

	inserted, err := j.Sync(ctx)
	if err != nil {
		logger.Error("Contribution sync failed: %v", err)
		return
	}
	if inserted > 0 {
		logger.Info("Contribution sync recorded %d contributions", inserted)
	}
}

// Sync 从上次位置扫描到已确认的最新区块，返回新记录的贡献数
func (j *ContributionSyncJob) Sync(ctx context.Context) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	head, err := j.source.CurrentBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current block number: %w", err)
	}
	toBlock := head - j.cfg.Confirmations
	if toBlock < 0 {
		return 0, nil
	}

	if j.nextBlock == 0 {
		if j.nextBlock, err = j.startBlock(ctx); err != nil {
			return 0, err
		}
	}
	if j.nextBlock > toBlock {
		logger.Debug("No confirmed blocks to sync (next %d, confirmed head %d)", j.nextBlock, toBlock)
		return 0, nil
	}

	subsByContract, err := j.activeSubscriptions(ctx)
	if err != nil {
		return 0, err
	}
	if len(subsByContract) == 0 {
		logger.Debug("No active subscriptions with contracts, skipping blocks %d-%d", j.nextBlock, toBlock)
		j.nextBlock = toBlock + 1
		return 0, nil
	}

	addresses := make([]common.Address, 0, len(subsByContract))
	for address := range subsByContract {
		addresses = append(addresses, address)
	}

	total := 0
	for from := j.nextBlock; from <= toBlock; from += j.cfg.BatchSize {
		to := from + j.cfg.BatchSize - 1
		if to > toBlock {
			to = toBlock
		}

		logs, err := j.source.FilterLogs(ctx, addresses, from, to)
		if err != nil {
			return total, fmt.Errorf("error getting logs for blocks %d-%d: %w", from, to, err)
		}

		inserted, err := j.processLogs(ctx, subsByContract, logs)
		if err != nil {
			return total, err
		}
		total += inserted
		j.nextBlock = to + 1
		logger.Debug("Synced blocks %d-%d, %d logs, %d new contributions", from, to, len(logs), inserted)
	}

	return total, nil
}

// startBlock 从已记录的最大区块之后开始，没有记录时使用配置的起始区块
func (j *ContributionSyncJob) startBlock(ctx context.Context) (int64, error) {
	var last int64
	if err := j.db.WithContext(ctx).Model(&model.ContributionModel{}).
		Select("COALESCE(MAX(block_number), 0)").
		Scan(&last).Error; err != nil {
		return 0, fmt.Errorf("failed to load last synced block: %w", err)
	}
	if last > 0 && last+1 > j.cfg.StartBlock {
		return last + 1, nil
	}
	if j.cfg.StartBlock > 0 {
		return j.cfg.StartBlock, nil
	}
	return 1, nil
}

func (j *ContributionSyncJob) activeSubscriptions(ctx context.Context) (map[common.Address][]model.SubscriptionModel, error) {
	var subs []model.SubscriptionModel
	if err := j.db.WithContext(ctx).
		Joins("JOIN grants ON grants.id = subscription.grant_id").
		Where("subscription.active = ? AND grants.contract_address <> '' AND grants.network = ?", true, j.cfg.Network).
		Preload("Grant").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load active subscriptions: %w", err)
	}

	byContract := make(map[common.Address][]model.SubscriptionModel)
	for _, sub := range subs {
		if sub.Grant == nil || !common.IsHexAddress(sub.Grant.ContractAddress) {
			continue
		}
		address := common.HexToAddress(sub.Grant.ContractAddress)
		byContract[address] = append(byContract[address], sub)
	}
	return byContract, nil
}

// processLogs 按合约地址分组后在协程池中并发解析，再在同一事务中写入，任一写入失败则整批回滚
func (j *ContributionSyncJob) processLogs(ctx context.Context, subsByContract map[common.Address][]model.SubscriptionModel, logs []types.Log) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}

	logsByContract := make(map[common.Address][]types.Log)
	for _, l := range logs {
		logsByContract[l.Address] = append(logsByContract[l.Address], l)
	}

	pool, err := ants.NewPool(len(logsByContract))
	if err != nil {
		return 0, fmt.Errorf("failed to create pool for %d groups: %w", len(logsByContract), err)
	}
	defer pool.Release()

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		contributions []*model.ContributionModel
	)
	for address, contractLogs := range logsByContract {
		subs, ok := subsByContract[address]
		if !ok {
			logger.Warn("Unknown contract address: %s", address.Hex())
			continue
		}

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			matched := matchContractLogs(subs, contractLogs)
			mu.Lock()
			contributions = append(contributions, matched...)
			mu.Unlock()
		}); err != nil {
			wg.Done()
			wg.Wait()
			return 0, fmt.Errorf("failed to submit task to pool: %w", err)
		}
	}
	wg.Wait()

	if len(contributions) == 0 {
		return 0, nil
	}
	sort.Slice(contributions, func(a, b int) bool {
		if contributions[a].BlockNumber != contributions[b].BlockNumber {
			return contributions[a].BlockNumber < contributions[b].BlockNumber
		}
		return contributions[a].LogIndex < contributions[b].LogIndex
	})

	inserted := 0
	err = j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, contribution := range contributions {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "tx_id"}, {Name: "log_index"}},
				DoNothing: true,
			}).Create(contribution)
			if res.Error != nil {
				return fmt.Errorf("failed to record contribution %s:%d: %w", contribution.TxId, contribution.LogIndex, res.Error)
			}
			if res.RowsAffected > 0 {
				inserted++
				logger.Info("Recorded contribution %s:%d for subscription %d", contribution.TxId, contribution.LogIndex, contribution.SubscriptionId)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// matchContractLogs 解析单个 grant 合约的日志，按资助者地址匹配有效订阅
func matchContractLogs(subs []model.SubscriptionModel, logs []types.Log) []*model.ContributionModel {
	var out []*model.ContributionModel
	for _, l := range logs {
		event, err := chain.ParseExecuteSubscription(l)
		if err != nil {
			logger.Warn("Skipping log %s: %v", l.TxHash.Hex(), err)
			continue
		}

		sub := matchSubscription(subs, event.From)
		if sub == nil {
			logger.Debug("No active subscription for %s on %s", event.From.Hex(), event.Contract.Hex())
			continue
		}

		out = append(out, &model.ContributionModel{
			SubscriptionId: sub.Id,
			TxId:           event.TxHash.Hex(),
			LogIndex:       int64(event.LogIndex),
			BlockNumber:    int64(event.BlockNumber),
			TokenAmount:    decimal.NewFromBigInt(event.TokenAmount, 0),
			GasPrice:       decimal.NewFromBigInt(event.GasPrice, 0),
			Success:        true,
		})
	}
	return out
}

func matchSubscription(subs []model.SubscriptionModel, from common.Address) *model.SubscriptionModel {
	for i := range subs {
		if strings.EqualFold(subs[i].ContributorAddress, from.Hex()) {
			return &subs[i]
		}
	}
	return nil
}
