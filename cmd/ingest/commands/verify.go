package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"congresshub-backend/internal/config"
	"congresshub-backend/internal/db"
	"congresshub-backend/internal/verify"
	"congresshub-backend/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Runs read-only consistency checks over the store.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			serviceutil.Fatal(3, "failed to read config", err)
		}

		database, err := db.Open(cfg.DatabaseUrl)
		if err != nil {
			serviceutil.Fatal(3, "failed to open database", err)
		}
		defer database.Close()

		result, err := verify.Run(cmd.Context(), database)
		if err != nil {
			serviceutil.Fatal(2, "verification aborted", err)
		}

		for _, v := range result.Violations {
			fmt.Printf("%s: %s\n", v.Check, v.Detail)
		}
		if !result.Ok() {
			fmt.Printf("%d checks, %d violations\n", result.Checked, len(result.Violations))
			os.Exit(1)
		}
		fmt.Printf("%d checks, all clean\n", result.Checked)
	},
}
