package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_templater/internal/config"
	"github.com/allanpk716/docx_templater/internal/processor"
)

type renderOptions struct {
	configFile string
	jobs       []string
}

func newRenderCommand(global *globalOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "按配置文件渲染模板",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "config.yaml", "配置文件路径 (.json, .jsonc, .yaml)")
	cmd.Flags().StringSliceVar(&opts.jobs, "job", nil, "只运行指定的任务，可重复")
	return cmd
}

func runRender(cmd *cobra.Command, global *globalOptions, opts *renderOptions) error {
	logger := global.logger

	manager := config.NewConfigManager()
	cfg, err := manager.LoadConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("加载配置文件失败: %w", err)
	}

	jobs, err := manager.SelectJobs(cfg, opts.jobs)
	if err != nil {
		return err
	}

	logger.Info("成功加载配置文件", "path", opts.configFile, "project", cfg.ProjectName, "jobs", len(jobs))

	jp := processor.NewJobProcessor(logger)
	batch, err := processor.ProcessBatch(cmd.Context(), jp, jobs, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, result := range batch.Results {
		fmt.Fprintf(out, "%s\t%s\t%s\tblake3:%s\n",
			result.Job, result.OutputPath, humanize.Bytes(uint64(result.Size)), result.Digest)
	}

	if err := batch.Err(); err != nil {
		return fmt.Errorf("%d/%d 个任务失败: %w", len(batch.Errors), len(jobs), err)
	}
	return nil
}
