package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"congresshub-backend/internal/config"
	"congresshub-backend/internal/db"
	"congresshub-backend/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(schemaCheckCmd)
}

var schemaCheckCmd = &cobra.Command{
	Use:   "schema-check",
	Short: "Compares the live schema against what this binary expects.",
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

		drift, err := db.CheckSchema(cmd.Context(), database)
		if err != nil {
			serviceutil.Fatal(2, "schema check aborted", err)
		}
		if len(drift) > 0 {
			for _, d := range drift {
				fmt.Println(d)
			}
			os.Exit(1)
		}
		fmt.Println("schema matches")
	},
}
