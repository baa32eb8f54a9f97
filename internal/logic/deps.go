package logic

import (
	"context"
	"io"

	"github.com/blues/grants/internal/model"
)

// Notifier 生命周期通知，调用方不关心投递结果
type Notifier interface {
	Notify(ctx context.Context, kind model.NotificationKind, grant *model.GrantModel, sub *model.SubscriptionModel)
}

// AssetStore 上传 logo 等文件并返回可访问的 URL
type AssetStore interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// Page 分页参数
type Page struct {
	Page  int
	Limit int
}

// MaxPageLimit 单页最大数量
const MaxPageLimit = 100

// Normalize 补全默认值，每页数量不超过 MaxPageLimit
func (p Page) Normalize(defaultLimit int) Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}
