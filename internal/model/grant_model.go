package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ZeroAddress 未指定代币时使用的零地址（即 ETH）
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// GrantModel 资助项目
type GrantModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Slug         string `json:"slug" gorm:"index;not null"`
	Title        string `json:"title"`
	Description  string `json:"description" gorm:"type:text"`
	ReferenceURL string `json:"reference_url"`
	LogoURL      string `json:"logo_url"`

	// 管理员
	AdminAddress   string         `json:"admin_address"`
	AdminProfileId int64          `json:"admin_profile_id" gorm:"index;not null"`
	AdminProfile   *ProfileModel  `json:"admin_profile,omitempty" gorm:"foreignKey:AdminProfileId"`
	TeamMembers    []ProfileModel `json:"team_members,omitempty" gorm:"many2many:grant_team_members;joinForeignKey:GrantId;joinReferences:ProfileId"`

	// 区块链信息
	ContractAddress      string `json:"contract_address" gorm:"index"`
	ContractOwnerAddress string `json:"contract_owner_address"`
	ContractVersion      string `json:"contract_version"`
	DeployTxId           string `json:"deploy_tx_id"`
	CancelTxId           string `json:"cancel_tx_id"`
	TokenAddress         string `json:"token_address"`
	TokenSymbol          string `json:"token_symbol"`
	Network              string `json:"network" gorm:"index;default:'mainnet'"`

	// 众筹信息
	AmountGoal decimal.Decimal `json:"amount_goal" gorm:"type:numeric(50,18);default:1"`
	Metadata   datatypes.JSON  `json:"metadata"`
	Active     bool            `json:"active" gorm:"index;not null"`
}

// TableName 自定义表名
func (GrantModel) TableName() string {
	return "grants"
}

// HasNoToken 是否使用原生代币
func (g *GrantModel) HasNoToken() bool {
	return g.TokenAddress == ZeroAddress
}

// IsAdmin 判断 profile 是否为管理员
func (g *GrantModel) IsAdmin(profile *ProfileModel) bool {
	return profile != nil && profile.Id == g.AdminProfileId
}

// Slugify 由标题生成 slug
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "grant"
	}
	return slug
}
