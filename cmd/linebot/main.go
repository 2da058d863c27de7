package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "linebot",
	Short: "LINE webhook bridge to an OpenAI-compatible completion API",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe(configPath)
	},
}

func main() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.toml (defaults to $CONFIG_PATH, then ./config.toml)")
	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
