package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContributionModel 一次实际到账的资助
type ContributionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SubscriptionId int64              `json:"subscription_id" gorm:"index;not null"`
	Subscription   *SubscriptionModel `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionId"`

	TxId        string          `json:"tx_id" gorm:"uniqueIndex:idx_contribution_tx_log;not null"`
	LogIndex    int64           `json:"log_index" gorm:"uniqueIndex:idx_contribution_tx_log;not null"`
	BlockNumber int64           `json:"block_number" gorm:"index"`
	TokenAmount decimal.Decimal `json:"token_amount" gorm:"type:numeric(78,0)"`
	GasPrice    decimal.Decimal `json:"gas_price" gorm:"type:numeric(78,0)"`
	Success     bool            `json:"success" gorm:"not null"`
}

// TableName 自定义表名
func (ContributionModel) TableName() string {
	return "contribution"
}
