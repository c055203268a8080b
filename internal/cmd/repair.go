package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_templater/pkg/template"
)

const repairedSuffix = "_repaired"

type repairOptions struct {
	output string
}

func newRepairCommand(global *globalOptions) *cobra.Command {
	opts := &repairOptions{}

	cmd := &cobra.Command{
		Use:   "repair INPUT",
		Short: "修复被 Word 拆分的 ${name} 标记",
		Long: `把被拆分到多个 run 的标记合并回一个 run。
INPUT 为文件时默认输出到 <input>_repaired.docx；
INPUT 为目录时处理其中全部 .docx 文件，-o 指定输出目录。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件或目录")
	return cmd
}

func runRepair(cmd *cobra.Command, global *globalOptions, opts *repairOptions, input string) error {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("输入路径不存在: %s", input)
	}

	if !info.IsDir() {
		output := opts.output
		if output == "" {
			output = GenerateOutputFileName(input)
		}
		return repairFile(cmd, global.logger, input, output)
	}

	return repairDir(cmd.Context(), cmd, global.logger, input, opts.output)
}

func repairDir(ctx context.Context, cmd *cobra.Command, logger *slog.Logger, inputDir, outputDir string) error {
	files, err := FindDocxFiles(inputDir)
	if err != nil {
		return fmt.Errorf("查找 DOCX 文件失败: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("在目录 %s 中没有找到 DOCX 文件", inputDir)
	}

	logger.Info("找到 DOCX 文件", "count", len(files))

	failed := 0
	for i, input := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		output := GenerateOutputFileName(input)
		if outputDir != "" {
			rel, err := filepath.Rel(inputDir, input)
			if err != nil {
				return fmt.Errorf("计算相对路径失败: %w", err)
			}
			output = filepath.Join(outputDir, rel)
		}

		logger.Info("处理文件", "index", i+1, "total", len(files), "path", input)
		if err := repairFile(cmd, logger, input, output); err != nil {
			logger.Error("处理文件失败", "path", input, "error", err)
			failed++
			continue
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d/%d 个文件修复失败", failed, len(files))
	}
	return nil
}

func repairFile(cmd *cobra.Command, logger *slog.Logger, input, output string) error {
	out := template.Output{Dir: filepath.Dir(output), Filename: filepath.Base(output)}
	tmpl, err := template.Open(input, out, template.WithLogger(logger))
	if err != nil {
		return err
	}
	defer tmpl.Close()

	count, err := tmpl.Repair()
	if err != nil {
		return err
	}

	result, err := tmpl.Save()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%s\n",
		result.Path, count, humanize.Bytes(uint64(result.Size)), result.Digest)
	return nil
}

// GenerateOutputFileName 生成修复后的输出文件名
func GenerateOutputFileName(inputFile string) string {
	ext := filepath.Ext(inputFile)
	base := strings.TrimSuffix(inputFile, ext)
	return base + repairedSuffix + ext
}

// FindDocxFiles 查找目录中的所有 DOCX 文件，跳过 Word 临时文件和已修复的输出
func FindDocxFiles(dir string) ([]string, error) {
	var docxFiles []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".docx") {
			return nil
		}

		// 排除临时文件
		filename := filepath.Base(path)
		if strings.HasPrefix(filename, "~$") {
			return nil
		}
		if strings.HasSuffix(strings.TrimSuffix(filename, filepath.Ext(filename)), repairedSuffix) {
			return nil
		}

		docxFiles = append(docxFiles, path)
		return nil
	})

	return docxFiles, err
}
