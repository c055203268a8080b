package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/allanpk716/docx_templater/internal/logging"
)

// globalOptions 所有子命令共用的参数
type globalOptions struct {
	verbose   bool
	logFormat string
	logger    *slog.Logger
}

func (o *globalOptions) addFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "详细输出")
	fs.StringVar(&o.logFormat, "log-format", "text", "日志格式: text 或 json")
}

func (o *globalOptions) initLogger(cmd *cobra.Command) error {
	format, err := logging.ParseFormat(o.logFormat)
	if err != nil {
		return err
	}

	level := logging.LevelInfo
	if o.verbose {
		level = logging.LevelDebug
	}
	o.logger = logging.Init(cmd.ErrOrStderr(), logging.Options{Level: level, Format: format})
	return nil
}

// NewRootCommand 创建命令行根命令
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   AppName,
		Short: "DOCX 模板填充工具",
		Long: `docx-templater 按配置填充 DOCX 模板中的 ${name} 标记：
替换文本、展开表格行、删除行和列、复制段落，并修复被 Word 拆分的标记。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initLogger(cmd)
		},
	}
	opts.addFlags(root.PersistentFlags())

	root.AddCommand(
		newRenderCommand(opts),
		newRepairCommand(opts),
		newInspectCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute 运行命令行
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
