package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ArthurHtr/backtest-engine/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	var out string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(out); err != nil {
				return err
			}
			fmt.Println("wrote", out)
			return nil
		},
	}
	initCmd.Flags().StringVar(&out, "out", "./backtest.yaml", "Destination path (.yaml/.yml or .json)")

	cmd.AddCommand(initCmd)
	return cmd
}
