package database

import (
	"fmt"

	"github.com/blues/grants/internal/config"
	"github.com/blues/grants/internal/logger"
	"github.com/blues/grants/internal/model"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// activeSubscriptionIndex 同一 (grant, contributor) 最多一个有效订阅
const activeSubscriptionIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_subscription_active_contributor
	ON subscription (grant_id, contributor_profile_id) WHERE active`

func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := Open(dialector, gormLogger.Warn)
	if err != nil {
		return nil, err
	}

	// 自动迁移
	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("Database initialized (driver: %s)", cfg.Driver)
	return db, nil
}

// Open 打开数据库连接
func Open(dialector gorm.Dialector, level gormLogger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(level),
		TranslateError: true, // 唯一约束冲突转换为 gorm.ErrDuplicatedKey
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true, // 禁用复数表名
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate 迁移所有表并创建部分唯一索引
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.ProfileModel{},
		&model.GrantModel{},
		&model.MilestoneModel{},
		&model.UpdateModel{},
		&model.SubscriptionModel{},
		&model.ContributionModel{},
		&model.NotificationModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// 贡献唯一键改为 (tx_id, log_index) 之前的单列索引
	if db.Migrator().HasIndex(&model.ContributionModel{}, "idx_contribution_tx_id") {
		if err := db.Migrator().DropIndex(&model.ContributionModel{}, "idx_contribution_tx_id"); err != nil {
			return fmt.Errorf("failed to drop legacy contribution index: %w", err)
		}
	}

	if err := db.Exec(activeSubscriptionIndex).Error; err != nil {
		return fmt.Errorf("failed to create subscription index: %w", err)
	}

	return nil
}

// OpenMemory 打开独立的内存 sqlite 数据库并完成迁移，供测试和本地调试使用
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := Open(sqlite.Open(dsn), gormLogger.Silent)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 内存库只在同一连接内可见
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
