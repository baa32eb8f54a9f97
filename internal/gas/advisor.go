package gas

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/blues/grants/internal/logger"
	"github.com/shopspring/decimal"
)

const suggestedPriceKey = "grants:gas:suggested_gwei"

// RecommendationTargets 详情页和资助页展示的确认时间（分钟）
var RecommendationTargets = []int{120, 15, 4, 1}

// PriceSource 提供节点建议的 gas 价格（wei）
type PriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Cache 缓存建议价格
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Recommendation 某个确认时间对应的建议价格（gwei）
type Recommendation struct {
	Minutes int             `json:"minutes"`
	Price   decimal.Decimal `json:"price"`
}

// Advisor gas 价格建议
type Advisor struct {
	source PriceSource
	cache  Cache
	ttl    time.Duration
}

// NewAdvisor 创建 gas 价格建议服务，cache 可以为 nil
func NewAdvisor(source PriceSource, cache Cache, ttl time.Duration) *Advisor {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Advisor{source: source, cache: cache, ttl: ttl}
}

// EstimateFee 返回在给定分钟内确认所需的 gas 价格（gwei）
func (a *Advisor) EstimateFee(ctx context.Context, minutes int) (decimal.Decimal, error) {
	base, err := a.suggestedGwei(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return base.Mul(Multiplier(minutes)).Round(2), nil
}

// Recommendations 返回所有展示目标的建议价格
func (a *Advisor) Recommendations(ctx context.Context) ([]Recommendation, error) {
	recs := make([]Recommendation, 0, len(RecommendationTargets))
	for _, minutes := range RecommendationTargets {
		price, err := a.EstimateFee(ctx, minutes)
		if err != nil {
			return nil, err
		}
		recs = append(recs, Recommendation{Minutes: minutes, Price: price})
	}
	return recs, nil
}

// Multiplier 确认时间越短，价格倍数越高
func Multiplier(minutes int) decimal.Decimal {
	switch {
	case minutes <= 1:
		return decimal.RequireFromString("1.25")
	case minutes <= 4:
		return decimal.NewFromInt(1)
	case minutes <= 15:
		return decimal.RequireFromString("0.9")
	default:
		return decimal.RequireFromString("0.75")
	}
}

func (a *Advisor) suggestedGwei(ctx context.Context) (decimal.Decimal, error) {
	if a.cache != nil {
		value, ok, err := a.cache.Get(ctx, suggestedPriceKey)
		if err != nil {
			logger.Warn("Gas price cache read failed: %v", err)
		} else if ok {
			if price, err := decimal.NewFromString(value); err == nil {
				return price, nil
			}
			logger.Warn("Ignoring malformed cached gas price %q", value)
		}
	}

	if a.source == nil {
		return decimal.Zero, fmt.Errorf("gas price source not configured")
	}
	wei, err := a.source.SuggestGasPrice(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("suggest gas price: %w", err)
	}
	price := decimal.NewFromBigInt(wei, -9)

	if a.cache != nil {
		if err := a.cache.Set(ctx, suggestedPriceKey, price.String(), a.ttl); err != nil {
			logger.Warn("Gas price cache write failed: %v", err)
		}
	}
	return price, nil
}
