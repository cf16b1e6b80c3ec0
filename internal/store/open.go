package store

import (
	"fmt"

	"github.com/crawlerlog/internal/config"
	"github.com/crawlerlog/internal/db"
)

// Open 根据 STORE_DRIVER 选择存储实现。
// sqlite 模式同时设置全局 db.DB，保持与 gorm 相关代码的兼容。
func Open(cfg config.AppConfig) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverBolt:
		return NewBoltStore(cfg.BoltPath)
	case config.StoreDriverSQLite, "":
		if err := db.Init(cfg.DatabasePath); err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return NewGormStore(db.DB), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
