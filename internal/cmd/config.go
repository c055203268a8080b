package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_templater/internal/config"
)

func newConfigCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件工具",
	}
	cmd.AddCommand(newConfigInitCommand(global))
	return cmd
}

func newConfigInitCommand(global *globalOptions) *cobra.Command {
	var (
		kind  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init [FILE]",
		Short: "生成示例配置文件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("配置文件已存在: %s (使用 --force 覆盖)", path)
			}

			manager := config.NewConfigManager()
			cfg, err := manager.GenerateTemplate(kind)
			if err != nil {
				return err
			}
			if err := manager.SaveConfig(cfg, path); err != nil {
				return err
			}

			global.logger.Info("已生成配置文件", "path", path, "kind", kind, "version", cfg.Version)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "basic", "示例类型: basic 或 table")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已有文件，原文件会被备份")
	return cmd
}
