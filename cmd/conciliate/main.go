package main

import (
	"os"
	"strings"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/go-go-golems/glazed/pkg/cli"
	glazedcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/logging"
	"github.com/go-go-golems/glazed/pkg/help"
	help_cmd "github.com/go-go-golems/glazed/pkg/help/cmd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/conciliate/cmd/conciliate/cmds"
	"github.com/go-go-golems/conciliate/cmd/conciliate/cmds/chat"
	"github.com/go-go-golems/conciliate/pkg/doc"
	"github.com/go-go-golems/conciliate/pkg/settings"
)

var rootCmd = &cobra.Command{
	Use:   "conciliate",
	Short: "conciliate runs seeker/responder discovery dialogues about a document",
	// reinitialize the logger because we can now parse --log-level and co
	// from the command line flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitLoggerFromViper()
	},
}

// configFlag returns the value of --config in args, in either the
// "--config path" or the "--config=path" form. Parsing stops at "--".
func configFlag(args []string) string {
	ret := ""
	for idx := 0; idx < len(args); idx++ {
		arg := args[idx]
		switch {
		case arg == "--":
			return ret
		case arg == "--config":
			if idx+1 < len(args) {
				ret = args[idx+1]
				idx++
			}
		case strings.HasPrefix(arg, "--config="):
			ret = strings.TrimPrefix(arg, "--config=")
		}
	}
	return ret
}

// initConfig layers the conciliate defaults, an explicit --config file and
// the environment on top of what clay.InitViper set up.
func initConfig(rootCmd *cobra.Command, args []string) error {
	settings.SetDefaults(viper.GetViper())

	if rootCmd.PersistentFlags().Lookup("config") == nil {
		rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.conciliate/config.yaml)")
	}
	if path := configFlag(args); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "could not read config %s", path)
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}

	log.Debug().
		Str("config", viper.ConfigFileUsed()).
		Msg("Loaded configuration")

	return nil
}

func main() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")

	err := clay.InitViper("conciliate", rootCmd)
	cobra.CheckErr(err)
	err = initConfig(rootCmd, os.Args[1:])
	cobra.CheckErr(err)

	helpSystem := help.NewHelpSystem()
	err = doc.AddDocToHelpSystem(helpSystem)
	cobra.CheckErr(err)
	help_cmd.SetupCobraRootCommand(helpSystem, rootCmd)

	runCmd, err := cmds.NewRunCommand()
	cobra.CheckErr(err)
	serveCmd, err := cmds.NewServeCommand()
	cobra.CheckErr(err)
	chatCmd, err := chat.NewChatCommand()
	cobra.CheckErr(err)

	for _, c := range []glazedcmds.BareCommand{runCmd, serveCmd, chatCmd} {
		cobraCmd, err := cli.BuildCobraCommand(c)
		cobra.CheckErr(err)
		rootCmd.AddCommand(cobraCmd)
	}
	rootCmd.AddCommand(cmds.NewConfigCommand())

	cobra.CheckErr(rootCmd.Execute())
}
