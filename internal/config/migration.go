package config

import "fmt"

// CurrentVersion 当前的配置格式版本
const CurrentVersion = "2"

// MigrationHandler 把某个版本的配置升级到下一个版本
type MigrationHandler func(*Config) error

// registerMigrationHandlers 注册配置迁移处理器
func (cm *configManager) registerMigrationHandlers() {
	// 未标注版本的配置 -> v2
	cm.migrationHandlers[""] = migrateUnversioned
	cm.migrationHandlers["1"] = migrateFromV1ToV2
}

// migrate 依次执行迁移直到当前版本
func (cm *configManager) migrate(config *Config) error {
	for config.Version != CurrentVersion {
		handler, ok := cm.migrationHandlers[config.Version]
		if !ok {
			return fmt.Errorf("不支持的配置版本: %s", config.Version)
		}
		before := config.Version
		if err := handler(config); err != nil {
			return fmt.Errorf("从版本 %q 迁移失败: %w", before, err)
		}
		if config.Version == before {
			return fmt.Errorf("版本 %q 的迁移没有更新版本号", before)
		}
	}
	return nil
}

// migrateUnversioned 未标注版本的配置按 v1 处理
func migrateUnversioned(config *Config) error {
	config.Version = "1"
	return nil
}

// migrateFromV1ToV2 v1 中 marker 可以写成 ${name}，v2 统一为不带定界符的名称
func migrateFromV1ToV2(config *Config) error {
	for i := range config.Jobs {
		ops := config.Jobs[i].Operations
		for j := range ops {
			ops[j].Marker = trimDelimiters(ops[j].Marker)
		}
	}
	config.Version = "2"
	return nil
}

func trimDelimiters(marker string) string {
	if len(marker) > 3 && marker[:2] == "${" && marker[len(marker)-1] == '}' {
		return marker[2 : len(marker)-1]
	}
	return marker
}
