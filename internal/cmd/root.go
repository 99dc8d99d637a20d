// Package cmd implements the simenv command line.
package cmd

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/giantswarm/simenv/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "simenv",
	Short: "Serve simulation environments over HTTP",
	Long: `simenv hosts simulation environment instances behind string ids.

Clients create instances by kind, then reset and step them over a JSON API.
Frames and episode recordings are written under the configured data
directory and recordings can be uploaded to a remote endpoint.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./simenv.yaml or $HOME/.config/simenv/simenv.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading SIMENV_* variables")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("env_file", rootCmd.PersistentFlags().Lookup("env-file"))
}

func initConfig() {
	// A missing dotenv file is normal; variables already set win.
	if envFile := viper.GetString("env_file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			cobra.CheckErr(err)
		}
	}

	config.SetDefaults(viper.GetViper())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("simenv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/simenv")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cobra.CheckErr(err)
		}
	}
}
