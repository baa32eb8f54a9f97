package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// Dispatcher 投递发件箱中的待发送通知
type Dispatcher struct {
	db          *gorm.DB
	mailer      Mailer
	batchSize   int
	maxAttempts int
	workers     int
}

// NewDispatcher 创建投递器
func NewDispatcher(db *gorm.DB, mailer Mailer, cfg config.NotifyConfig) *Dispatcher {
	d := &Dispatcher{
		db:          db,
		mailer:      mailer,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		workers:     cfg.Workers,
	}
	if d.batchSize <= 0 {
		d.batchSize = 50
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 5
	}
	if d.workers <= 0 {
		d.workers = 4
	}
	return d
}

// Dispatch 取出一批待投递通知并发投递，返回成功数量
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	var pending []model.NotificationModel
	if err := d.db.WithContext(ctx).
		Preload("Grant").
		Preload("Subscription").
		Preload("Recipient").
		Where("status = ?", model.NotificationStatusPending).
		Order("id ASC").
		Limit(d.batchSize).
		Find(&pending).Error; err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	pool, err := ants.NewPool(d.workers)
	if err != nil {
		return 0, err
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		sent int64
	)
	for i := range pending {
		n := &pending[i]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if d.deliver(ctx, n) {
				atomic.AddInt64(&sent, 1)
			}
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit notification %d: %v", n.Id, err)
		}
	}
	wg.Wait()

	logger.Info("Dispatched %d/%d notifications", sent, len(pending))
	return int(sent), nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *model.NotificationModel) bool {
	msg, err := Render(n)
	if err == nil {
		err = d.mailer.Send(ctx, msg)
	}

	if err != nil {
		status := model.NotificationStatusPending
		if n.Attempts+1 >= d.maxAttempts {
			status = model.NotificationStatusFailed
		}
		logger.Warn("Notification %d (%s) delivery failed, attempt %d: %v", n.Id, n.Kind, n.Attempts+1, err)

		if uerr := d.db.WithContext(ctx).Model(&model.NotificationModel{}).
			Where("id = ? AND status = ?", n.Id, model.NotificationStatusPending).
			Updates(map[string]interface{}{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": err.Error(),
				"status":     status,
			}).Error; uerr != nil {
			logger.Error("Failed to record notification %d failure: %v", n.Id, uerr)
		}
		return false
	}

	now := time.Now()
	if err := d.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("id = ? AND status = ?", n.Id, model.NotificationStatusPending).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
			"status":     model.NotificationStatusSent,
			"sent_at":    &now,
		}).Error; err != nil {
		logger.Error("Failed to mark notification %d sent: %v", n.Id, err)
	}
	return true
}
