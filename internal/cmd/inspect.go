package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/allanpk716/docx_templater/internal/inspect"
	"github.com/allanpk716/docx_templater/pkg/docx"
)

// report inspect 命令的输出
type report struct {
	File string `json:"file"`
	Size string `json:"size"`
	*inspect.Outline
}

func newInspectCommand(global *globalOptions) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "inspect INPUT",
		Short: "输出文档结构：表格、标记和被拆分的标记",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, global, args[0], pretty)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "格式化 JSON 输出")
	return cmd
}

func runInspect(cmd *cobra.Command, global *globalOptions, input string, pretty bool) error {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("输入文件不存在: %s", input)
	}

	file, err := docx.Open(input)
	if err != nil {
		return err
	}
	defer file.Close()

	outline, err := inspect.Build(file.GetXML())
	if err != nil {
		return err
	}
	if len(outline.Problems) > 0 {
		global.logger.Warn("文档存在问题", "path", input, "problems", len(outline.Problems))
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(report{
		File:    input,
		Size:    humanize.Bytes(uint64(info.Size())),
		Outline: outline,
	})
}
