package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/admin"
	"github.com/compose-network/mediactl/internal/deploy"
	"github.com/compose-network/mediactl/internal/devnet"
	"github.com/compose-network/mediactl/internal/flags"
	"github.com/compose-network/mediactl/internal/inspect"
	"github.com/compose-network/mediactl/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const appName = "mediactl"

// envBindings maps config keys to the environment variables that feed them, in priority order.
var envBindings = map[string][]string{
	"credentials.rpc-endpoint":  {"RPC_ENDPOINT"},
	"credentials.private-key":   {"PRIVATE_KEY"},
	"credentials.network":       {"NETWORK"},
	"credentials.api-key":       {"ALCHEMY_KEY", "ALCHEMY_API_KEY"},
	"credentials.mnemonic":      {"MNEMONIC"},
	"credentials.mnemonic-path": {"MNEMONIC_PATH"},
}

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Deploy and administer the Market and Media contracts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(cmd); err != nil {
			return err
		}

		if err := configs.ReadDefaults(viper.GetViper()); err != nil {
			return err
		}

		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if execPath, err := os.Executable(); err == nil {
			execDir := filepath.Dir(execPath)
			viper.AddConfigPath(execDir)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")

		// The config file is optional: embedded defaults, env and flags can provide everything.
		configFileErr := viper.MergeInConfig()
		var notFound viper.ConfigFileNotFoundError
		if configFileErr != nil && !errors.As(configFileErr, &notFound) {
			return errors.Join(configFileErr, errors.New("error reading config file"))
		}

		for key, names := range envBindings {
			if err := viper.BindEnv(append([]string{key}, names...)...); err != nil {
				return fmt.Errorf("failed to bind %s: %w", key, err)
			}
		}

		if err := viper.Unmarshal(&configs.Values); err != nil {
			return errors.Join(err, errors.New("unable to decode application config"))
		}

		logger.Initialize(logger.ParseLevel(configs.Values.Log.Level), configs.Values.Log.Format)

		if configFileErr != nil {
			slog.Debug("no config file found, will rely on flags, environment and defaults")
		} else {
			slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
		}
		slog.With("credentials", configs.Values.Credentials, "devnet", configs.Values.Devnet).Debug("configuration loaded")

		return nil
	},
}

// loadEnvFile loads the dotenv file without overriding variables already set.
// The default file is optional; an explicitly named one must exist.
func loadEnvFile(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString(flags.EnvFile)
	if err != nil || path == "" {
		return err
	}

	err = gotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed(flags.EnvFile) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

func init() {
	flags.MustDeclarePersistent(rootCmd, flags.RootStrings)
	flags.MustDeclarePersistent(rootCmd, flags.RootInts)
	flags.MustDeclarePersistent(rootCmd, flags.RootDurations)
}

func main() {
	rootCmd.AddCommand(deploy.CMD)
	rootCmd.AddCommand(admin.Commands...)
	rootCmd.AddCommand(inspect.Commands...)
	rootCmd.AddCommand(devnet.CMD)

	if err := rootCmd.Execute(); err != nil {
		slog.With("err", err.Error()).Error("failed to execute root command")
		os.Exit(1)
	}
}
