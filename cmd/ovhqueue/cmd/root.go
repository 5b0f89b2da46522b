package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arturoibarra/ovh-fleet/internal/store"
)

var dataDir string

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ovhqueue",
		Short:         "ovhqueue: offline administration of the acquisition engine's data directory",
		Long:          "ovhqueue reads and writes the same data/ directory as the running HTTP control plane. Do not run it concurrently with the server against the same directory for write operations.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "path to the data directory (defaults to DATA_DIR env var or ./data)")
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.SetEnvPrefix("ovhqueue")
	viper.AutomaticEnv()
	viper.BindEnv("data-dir", "DATA_DIR")
	viper.SetDefault("data-dir", "./data")

	rootCmd.AddCommand(
		newAccountsCmd(),
		newQueueCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return viper.GetString("data-dir")
}

func quietLogger() zerolog.Logger {
	return zerolog.Nop()
}

func openAccountStore() (*store.AccountStore, error) {
	s, err := store.NewAccountStore(resolveDataDir(), quietLogger())
	if err != nil {
		return nil, fmt.Errorf("open account store: %w", err)
	}
	return s, nil
}

func openQueueStore() (*store.QueueStore, error) {
	s, err := store.NewQueueStore(resolveDataDir(), quietLogger())
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	return s, nil
}

func openHistoryStore() (*store.HistoryStore, error) {
	s, err := store.NewHistoryStore(resolveDataDir(), quietLogger())
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return s, nil
}
