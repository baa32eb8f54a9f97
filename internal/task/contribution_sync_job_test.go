package task

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/blues/grants/internal/chain"
	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/database"
	"github.com/blues/grants/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	grantContract = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	contributor   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stranger      = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

type fakeLogSource struct {
	head   int64
	logs   []types.Log
	err    error
	ranges [][2]int64
}

func (f *fakeLogSource) CurrentBlockNumber(context.Context) (int64, error) {
	return f.head, nil
}

func (f *fakeLogSource) FilterLogs(_ context.Context, addresses []common.Address, fromBlock, toBlock int64) ([]types.Log, error) {
	f.ranges = append(f.ranges, [2]int64{fromBlock, toBlock})
	if f.err != nil {
		return nil, f.err
	}

	var out []types.Log
	for _, l := range f.logs {
		if int64(l.BlockNumber) < fromBlock || int64(l.BlockNumber) > toBlock {
			continue
		}
		for _, a := range addresses {
			if a == l.Address {
				out = append(out, l)
				break
			}
		}
	}
	return out, nil
}

func executeLog(t *testing.T, from common.Address, block uint64, tx string, amount int64) types.Log {
	t.Helper()

	data, err := chain.SubscriptionABI.Events["ExecuteSubscription"].Inputs.NonIndexed().Pack(
		common.Address{},
		big.NewInt(amount),
		big.NewInt(2592000),
		big.NewInt(1_000_000_000),
		big.NewInt(1),
	)
	require.NoError(t, err)

	return types.Log{
		Address:     grantContract,
		Topics:      []common.Hash{chain.ExecuteSubscriptionTopic(), common.BytesToHash(from.Bytes()), common.BytesToHash(common.HexToAddress("0xb1").Bytes())},
		Data:        data,
		TxHash:      common.HexToHash(tx),
		BlockNumber: block,
	}
}

func seedSubscription(t *testing.T) (*gorm.DB, *model.SubscriptionModel) {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	admin := &model.ProfileModel{Handle: "alice"}
	fan := &model.ProfileModel{Handle: "carol"}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(fan).Error)

	grant := &model.GrantModel{
		Slug:            "tooling",
		Title:           "Tooling",
		AdminProfileId:  admin.Id,
		ContractAddress: grantContract.Hex(),
		Network:         "mainnet",
		Active:          true,
	}
	require.NoError(t, db.Create(grant).Error)

	sub := &model.SubscriptionModel{
		GrantId:              grant.Id,
		ContributorProfileId: fan.Id,
		ContributorAddress:   "0x00000000000000000000000000000000000000A1",
		Network:              "mainnet",
		Active:               true,
	}
	require.NoError(t, db.Create(sub).Error)
	return db, sub
}

func chainConfig() config.ChainConfig {
	return config.ChainConfig{Network: "mainnet", StartBlock: 100, Confirmations: 10, BatchSize: 5}
}

func TestContributionSync(t *testing.T) {
	db, sub := seedSubscription(t)
	source := &fakeLogSource{
		head: 120,
		logs: []types.Log{
			executeLog(t, contributor, 102, "0x01", 500),
			executeLog(t, stranger, 106, "0x02", 700),
			executeLog(t, contributor, 108, "0x03", 500),
			executeLog(t, contributor, 115, "0x04", 500),
		},
	}
	job := NewContributionSyncJob(db, source, chainConfig(), 60)

	inserted, err := job.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, [][2]int64{{100, 104}, {105, 109}, {110, 110}}, source.ranges)

	var contributions []model.ContributionModel
	require.NoError(t, db.Order("block_number ASC").Find(&contributions).Error)
	require.Len(t, contributions, 2)
	assert.Equal(t, sub.Id, contributions[0].SubscriptionId)
	assert.Equal(t, common.HexToHash("0x01").Hex(), contributions[0].TxId)
	assert.EqualValues(t, 102, contributions[0].BlockNumber)
	assert.Equal(t, "500", contributions[0].TokenAmount.String())
	assert.Equal(t, "1000000000", contributions[0].GasPrice.String())

	inserted, err = job.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Len(t, source.ranges, 3)

	source.head = 130
	inserted, err = job.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestContributionSyncResumesAfterRestart(t *testing.T) {
	db, _ := seedSubscription(t)
	source := &fakeLogSource{head: 120, logs: []types.Log{executeLog(t, contributor, 102, "0x01", 500)}}

	_, err := NewContributionSyncJob(db, source, chainConfig(), 60).Sync(context.Background())
	require.NoError(t, err)

	source.ranges = nil
	_, err = NewContributionSyncJob(db, source, chainConfig(), 60).Sync(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, source.ranges)
	assert.EqualValues(t, 103, source.ranges[0][0])
}

func TestContributionSyncDeduplicates(t *testing.T) {
	db, sub := seedSubscription(t)
	job := NewContributionSyncJob(db, &fakeLogSource{}, chainConfig(), 60)
	logs := []types.Log{executeLog(t, contributor, 102, "0x01", 500)}
	subs := map[common.Address][]model.SubscriptionModel{grantContract: {*sub}}

	inserted, err := job.processLogs(context.Background(), subs, logs)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = job.processLogs(context.Background(), subs, logs)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestContributionSyncKeepsCursorOnError(t *testing.T) {
	db, _ := seedSubscription(t)
	source := &fakeLogSource{head: 120, err: errors.New("rate limited")}
	job := NewContributionSyncJob(db, source, chainConfig(), 60)

	_, err := job.Sync(context.Background())
	assert.ErrorContains(t, err, "rate limited")

	source.err = nil
	source.ranges = nil
	_, err = job.Sync(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 100, source.ranges[0][0])
}

func TestContributionSyncWithoutSubscriptions(t *testing.T) {
	db, sub := seedSubscription(t)
	require.NoError(t, db.Model(&model.SubscriptionModel{}).Where("id = ?", sub.Id).Update("active", false).Error)
	source := &fakeLogSource{head: 120}
	job := NewContributionSyncJob(db, source, chainConfig(), 60)

	inserted, err := job.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Empty(t, source.ranges)
}

// failContributionInsert 让第 n 次写入 contribution 失败
func failContributionInsert(t *testing.T, db *gorm.DB, n int) {
	t.Helper()

	calls := 0
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_contribution", func(tx *gorm.DB) {
		if tx.Statement.Table != "contribution" {
			return
		}
		calls++
		if calls == n {
			tx.AddError(errors.New("disk full"))
		}
	}))
}

func TestContributionSyncRetriesFailedInsert(t *testing.T) {
	db, _ := seedSubscription(t)
	failContributionInsert(t, db, 1)
	source := &fakeLogSource{
		head: 120,
		logs: []types.Log{
			executeLog(t, contributor, 102, "0x01", 500),
			executeLog(t, contributor, 108, "0x03", 500),
		},
	}
	job := NewContributionSyncJob(db, source, chainConfig(), 60)

	inserted, err := job.Sync(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, inserted)
	assert.Equal(t, [][2]int64{{100, 104}}, source.ranges)

	source.ranges = nil
	inserted, err = job.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, [][2]int64{{100, 104}, {105, 109}, {110, 110}}, source.ranges)

	var count int64
	require.NoError(t, db.Model(&model.ContributionModel{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestContributionSyncRollsBackBatch(t *testing.T) {
	db, _ := seedSubscription(t)
	failContributionInsert(t, db, 2)
	cfg := chainConfig()
	cfg.BatchSize = 50
	source := &fakeLogSource{
		head: 120,
		logs: []types.Log{
			executeLog(t, contributor, 102, "0x01", 500),
			executeLog(t, contributor, 108, "0x03", 500),
		},
	}
	job := NewContributionSyncJob(db, source, cfg, 60)

	_, err := job.Sync(context.Background())
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.ContributionModel{}).Count(&count).Error)
	assert.Zero(t, count)

	// 重启后从配置的起始区块重新扫描
	inserted, err := NewContributionSyncJob(db, source, cfg, 60).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestContributionSyncKeepsEveryLogInTransaction(t *testing.T) {
	db, sub := seedSubscription(t)
	job := NewContributionSyncJob(db, &fakeLogSource{}, chainConfig(), 60)
	first := executeLog(t, contributor, 102, "0x01", 500)
	second := executeLog(t, contributor, 102, "0x01", 700)
	second.Index = 3
	subs := map[common.Address][]model.SubscriptionModel{grantContract: {*sub}}

	inserted, err := job.processLogs(context.Background(), subs, []types.Log{first, second})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = job.processLogs(context.Background(), subs, []types.Log{second})
	require.NoError(t, err)
	assert.Zero(t, inserted)

	var contributions []model.ContributionModel
	require.NoError(t, db.Order("log_index ASC").Find(&contributions).Error)
	require.Len(t, contributions, 2)
	assert.EqualValues(t, 0, contributions[0].LogIndex)
	assert.EqualValues(t, 3, contributions[1].LogIndex)
	assert.Equal(t, "700", contributions[1].TokenAmount.String())
}
