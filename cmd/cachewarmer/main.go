// cachewarmer 预热自动补全缓存: 枚举短前缀空间, 对每个前缀重新执行
// 检索并覆盖缓存。适合冷启动后或定时(比如每小时)跑一次。
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"borgcache-go/internal/cache"
	"borgcache-go/internal/catalog"
	"borgcache-go/internal/config"
	"borgcache-go/internal/logger"
	"borgcache-go/internal/storage"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath string
		dataTypes  []string
		depth      int
	)
	pflag.StringVar(&configPath, "config", "", "配置文件路径, 留空则按默认位置查找")
	pflag.StringSliceVar(&dataTypes, "data-type", nil, "要预热的数据类型, 可重复; 留空则用配置里的列表")
	pflag.IntVar(&depth, "depth", 0, "预热深度(1-3), 0表示用各类型自己声明的深度")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置文件失败")
	}

	logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
	})

	ctx := context.Background()
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	if len(dataTypes) == 0 {
		dataTypes = cfg.Warmer.DataTypes
	}
	if depth == 0 {
		depth = cfg.Warmer.Depth
	}

	start := time.Now()
	for _, dt := range dataTypes {
		var err error
		switch dt {
		case "animal":
			err = warm[int32](ctx, storageManager, catalog.AnimalCompleter{}, depth)
		case "food":
			err = warm[string](ctx, storageManager, catalog.FoodCompleter{}, depth)
		default:
			logger.Warn().Str("data_type", dt).Msg("未知的数据类型, 跳过")
			continue
		}
		if err != nil {
			logger.Fatal().Err(err).Str("data_type", dt).Msg("预热失败")
		}
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("全部预热任务完成")
}

func warm[PK any](ctx context.Context, s *storage.Storage, ac cache.Completer[PK], depth int) error {
	if depth <= 0 {
		depth = ac.WarmDepth()
	}
	return cache.Warm[PK](ctx, s.Redis, s.Postgres, ac, depth)
}
