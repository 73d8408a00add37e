package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/whiterabbit/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "whiterabbit",
	Short: "Find the commit where a log marker disappeared",
	Long: `White Rabbit hunts regressions in a supervised process. It walks the
repository's history, reloads the target at each revision and looks for a
marker line in its log, bisecting down to the commit where the marker
stopped appearing. The repository is returned to where it started when
the hunt ends.

Legacy shortcuts are still accepted:
  whiterabbit -7            same as: whiterabbit hunt --days 7
  whiterabbit --week        same as: whiterabbit hunt --days 7
  whiterabbit 3             same as: whiterabbit explore 3
  whiterabbit DEV           same as: whiterabbit check DEV`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command against os.Args, rewriting legacy
// arguments first.
func Execute(ctx context.Context) error {
	rootCmd.SetArgs(NormalizeArgs(os.Args[1:], subcommandNames()))
	return rootCmd.ExecuteContext(ctx)
}

func subcommandNames() []string {
	names := []string{"help", "completion"}
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
		names = append(names, c.Aliases...)
	}
	return names
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/whiterabbit/config.yaml)")
	rootCmd.PersistentFlags().String("repo", "", "repository working tree (default is the current directory)")
	rootCmd.PersistentFlags().String("log-level", "", "debug log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().String("format", "", "output format (text/json/yaml)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("repo.path", rootCmd.PersistentFlags().Lookup("repo"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(localConfigFile); err == nil {
		viper.SetConfigFile(localConfigFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WHITERABBIT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., WHITERABBIT_TARGET_SETTLE_SECONDS for target.settle_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// localConfigFile is picked up from the working directory before the
// user-level config.
const localConfigFile = "whiterabbit.yaml"
