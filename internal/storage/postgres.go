package storage

import (
	"context"
	"fmt"
	"time"

	"borgcache-go/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres 持久存储适配器，基于GORM执行参数化查询并扫描为带类型的行。
// 查询文本本身由调用方提供，这一层只负责执行与连接池管理。
type Postgres struct {
	db  *gorm.DB
	cfg *config.PostgresConfig
}

// NewPostgres 建立连接池并尽早验证连通性
func NewPostgres(cfg *config.PostgresConfig) (*Postgres, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres配置不能为空")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode, cfg.ConnectTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logLevel),
		PrepareStmt: true, // 开启预编译语句缓存
		// 把方言错误翻译成GORM统一错误, 唯一约束冲突由此识别
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接Postgres失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	// 尽早失败: 现在就确认能连上
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectTimeoutSeconds)*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping Postgres失败: %w", err)
	}

	return &Postgres{db: db, cfg: cfg}, nil
}

// DB 返回底层的 *gorm.DB，供需要完整ORM能力的调用方使用
func (p *Postgres) DB() *gorm.DB {
	return p.db
}

// Select 执行查询并把全部结果扫描到dest(切片指针)
func (p *Postgres) Select(ctx context.Context, dest any, query string, args ...any) error {
	if p.db == nil {
		return fmt.Errorf("postgres连接未初始化")
	}
	return p.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error
}

// SelectOne 执行期望零或一行的查询。
// 有行时扫描进dest并返回true；没有行返回(false, nil)——"查不到"不是错误。
func (p *Postgres) SelectOne(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	if p.db == nil {
		return false, fmt.Errorf("postgres连接未初始化")
	}
	result := p.db.WithContext(ctx).Raw(query, args...).Scan(dest)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Exec 执行不关心结果集的语句
func (p *Postgres) Exec(ctx context.Context, query string, args ...any) error {
	if p.db == nil {
		return fmt.Errorf("postgres连接未初始化")
	}
	return p.db.WithContext(ctx).Exec(query, args...).Error
}

// Close 关闭底层连接池
func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 检查Postgres连接
func (p *Postgres) Ping(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("postgres连接未初始化")
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
