package main

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"bookclub/internal/config"
	"bookclub/internal/storage"
)

func main() {
	if err := newRootCmd(openDB).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB 按配置文件连接数据库，path 为空时使用默认查找路径。
func openDB(path string) (*gorm.DB, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("无法加载配置: %w", err)
	}
	return storage.InitDB(cfg.Database)
}
