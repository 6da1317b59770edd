package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (API key masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := LoadSettings()
			if err != nil {
				return err
			}
			b, err := s.Redacted().ToYAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Run: func(cmd *cobra.Command, args []string) {
			path := viper.ConfigFileUsed()
			if path == "" {
				path = "(none)"
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	})

	return cmd
}
