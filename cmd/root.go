package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "astrascan",
		Short: "Astra server scanner and channel harvester. ",
		Long: `Astrascan

Probes address and port lists for Astra media servers, then harvests
and verifies the channel playlists they expose. `,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				os.Setenv(common.LOG_LEVEL_ENV, "development")
			} else if os.Getenv(common.LOG_LEVEL_ENV) == "" {
				os.Setenv(common.LOG_LEVEL_ENV, "production")
			}
			common.GetLogger()
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "set debug log level")
	rootCmd.PersistentFlags().BoolP("help", "H", false, "help for this command")
	rootCmd.PersistentFlags().BoolP("version", "V", false, "version for astrascan")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default "+constant.DEFAULT_CONFIG_FILE+" when present)")
}

func initConfig() {
	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("ASTRASCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(constant.DEFAULT_CONFIG_FILE); err == nil {
		viper.SetConfigFile(constant.DEFAULT_CONFIG_FILE)
	} else {
		return
	}
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		os.Exit(1)
	}
	common.GetLogger().Debug("Using config file: " + viper.ConfigFileUsed())
}
