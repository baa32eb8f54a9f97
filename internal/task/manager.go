package task

import (
	"fmt"

	"github.com/blues/grants/internal/logger"
	"github.com/go-co-op/gocron/v2"
)

// Job 定时任务
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
}

// NewManager 创建新的任务管理器
func NewManager() (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Manager{scheduler: s}, nil
}

// Start 注册任务并启动调度器
func Start(jobs ...Job) (*Manager, error) {
	manager, err := NewManager()
	if err != nil {
		return nil, err
	}

	for _, job := range jobs {
		if err := manager.Register(job); err != nil {
			return nil, err
		}
	}

	manager.scheduler.Start()
	logger.Info("Task manager started successfully with %d jobs", len(jobs))
	return manager, nil
}

// Register 注册任务，同一任务不会并发执行
func (m *Manager) Register(job Job) error {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
		return fmt.Errorf("register job %s: %w", job.GetName(), err)
	}
	logger.Info("Registered job %s", job.GetName())
	return nil
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
