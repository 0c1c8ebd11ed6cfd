package main

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/mindkit/config"
	_ "github.com/rushteam/mindkit/config/builders"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mindkit",
	Short: "mindkit - MIND sample assembly and negative sampling",
	Long: `mindkit turns a prebuilt MIND corpus snapshot into fixed-shape training and
evaluation samples, redrawing the negatives of every training sample once per epoch.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml/.yml/.json)")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig 读取 --config 指定的配置文件，未指定时使用默认配置。
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}
