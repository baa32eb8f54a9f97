package task

import (
	"context"
	"time"

	"github.com/blues/grants/internal/logger"
	"github.com/go-co-op/gocron/v2"
)

// Dispatcher 投递待发送通知
type Dispatcher interface {
	Dispatch(ctx context.Context) (int, error)
}

// NotificationJob 通知投递任务
type NotificationJob struct {
	dispatcher Dispatcher
	interval   time.Duration
}

// NewNotificationJob 创建通知投递任务
func NewNotificationJob(dispatcher Dispatcher, intervalSeconds int) *NotificationJob {
	if intervalSeconds <= 0 {
		intervalSeconds = 30
	}
	return &NotificationJob{
		dispatcher: dispatcher,
		interval:   time.Duration(intervalSeconds) * time.Second,
	}
}

// GetName 获取任务名称
func (j *NotificationJob) GetName() string {
	return "notification_dispatcher"
}

// GetSchedule 获取调度配置
func (j *NotificationJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *NotificationJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval*4)
	defer cancel()

	sent, err := j.dispatcher.Dispatch(ctx)
	if err != nil {
		logger.Error("Notification dispatch failed: %v", err)
		return
	}
	if sent > 0 {
		logger.Info("Notification dispatch delivered %d messages", sent)
	}
}
