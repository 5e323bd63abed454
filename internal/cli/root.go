package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	output    string
	rulesFile string
	dbPath    string
	baseURL   string
)

var rootCmd = &cobra.Command{
	Use:   "guardctl",
	Short: "Operator CLI for the permission guard engine",
}

func Execute() error { return rootCmd.Execute() }

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "output format: json|table")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules-file", "", "YAML rule file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite rule database path")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:8090", "running guardd base URL")

	// Wire top level groups
	rootCmd.AddCommand(cmdRun(), cmdRules(), cmdVersion())

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		fmt.Println("Use -h for help, for example: guardctl rules check --scope page --target /admin")
	}
}
