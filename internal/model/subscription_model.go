package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPeriodSeconds 默认订阅周期（30天）
const DefaultPeriodSeconds = 2592000

// SubscriptionModel 周期性资助订阅
type SubscriptionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GrantId              int64         `json:"grant_id" gorm:"index;not null"`
	Grant                *GrantModel   `json:"grant,omitempty" gorm:"foreignKey:GrantId"`
	ContributorProfileId int64         `json:"contributor_profile_id" gorm:"index;not null"`
	ContributorProfile   *ProfileModel `json:"contributor_profile,omitempty" gorm:"foreignKey:ContributorProfileId"`

	// 链上签名信息
	SubscriptionHash     string `json:"subscription_hash"`
	ContributorSignature string `json:"contributor_signature"`
	ContributorAddress   string `json:"contributor_address" gorm:"index"`

	// 金额与周期
	AmountPerPeriod   decimal.Decimal `json:"amount_per_period" gorm:"type:numeric(50,18)"`
	RealPeriodSeconds int64           `json:"real_period_seconds" gorm:"default:2592000"`
	Frequency         int64           `json:"frequency" gorm:"default:30"`
	FrequencyUnit     string          `json:"frequency_unit" gorm:"default:'days'"`
	TokenAddress      string          `json:"token_address"`
	TokenSymbol       string          `json:"token_symbol"`
	GasPrice          decimal.Decimal `json:"gas_price" gorm:"type:numeric(50,18)"`
	Network           string          `json:"network"`

	// 交易记录
	NewApproveTxId string `json:"new_approve_tx_id"`
	EndApproveTxId string `json:"end_approve_tx_id"`
	CancelTxId     string `json:"cancel_tx_id"`

	Active bool `json:"active" gorm:"index;not null"`
}

// TableName 自定义表名
func (SubscriptionModel) TableName() string {
	return "subscription"
}
