// promptlib — инструмент командной строки для библиотеки prompts
// и workflows через HTTP API.
//
// Использование:
//
//	promptlib [--api-url URL] [--json] [--config FILE] <command> <subcommand> [flags]
//
// Команды:
//
//	prompt    Управление prompts
//	workflow  Управление и запуск workflows
//	stats     Статистика библиотеки
//	events    Просмотр событий (RabbitMQ)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/promptlib/internal/cli"
	"github.com/shaiso/promptlib/internal/config"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var (
		apiURL     string
		rabbitURL  string
		configPath string
		jsonOutput bool
	)

	rootCmd := &cobra.Command{
		Use:           "promptlib",
		Short:         "promptlib CLI — prompt library and workflow runner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("api-url") {
				apiURL = cfg.APIURL
			}
			if !cmd.Flags().Changed("rabbitmq-url") {
				rabbitURL = cfg.RabbitMQURL
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API server URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&rabbitURL, "rabbitmq-url", "", "RabbitMQ URL for events (default from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	rabbitFn := func() string { return rabbitURL }

	rootCmd.AddCommand(
		cli.NewPromptCmd(clientFn, outputFn),
		cli.NewWorkflowCmd(clientFn, outputFn),
		cli.NewStatsCmd(clientFn, outputFn),
		cli.NewEventsCmd(rabbitFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
