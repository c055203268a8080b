package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	AppName    = "docx-templater"
	AppVersion = "1.0.0"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", AppName, AppVersion)
			return err
		},
	}
}
