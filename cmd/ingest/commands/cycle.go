package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"congresshub-backend/internal/config"
	"congresshub-backend/internal/congressapi"
	"congresshub-backend/internal/db"
	"congresshub-backend/internal/orchestrator"
	"congresshub-backend/internal/scrapers/leadership"
	"congresshub-backend/internal/store"
	"congresshub-backend/internal/telemetry"
	"congresshub-backend/internal/upstream"
	"congresshub-backend/lib/serviceutil"
	libtelemetry "congresshub-backend/lib/telemetry"
)

var (
	cycleCongress     *int
	cycleOnly         *[]string
	cycleDryRun       *bool
	cycleDumpRequests *string
)

func init() {
	cycleCongress = cycleCmd.Flags().Int("congress", 0, "Target congress number, 0 resolves the latest from upstream.")
	cycleOnly = cycleCmd.Flags().StringSlice("only", nil, "Restrict the cycle to the named stages (sessions, members, committees, memberships, hearings).")
	cycleDryRun = cycleCmd.Flags().Bool("dry-run", false, "Compute and print mutation plans without writing anything.")
	cycleDumpRequests = cycleCmd.Flags().String("dump-requests", "", "Directory to dump upstream request/response pairs into, for debugging.")
	rootCmd.AddCommand(cycleCmd)
}

var cycleCmd = &cobra.Command{
	Use:   "cycle [--congress <n>] [--only <stage>] [--dry-run]",
	Short: "Runs one ingestion cycle: fetch, normalize, reconcile, persist.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			serviceutil.Fatal(3, "failed to read config", err)
		}
		err = cfg.Validate()
		if err != nil {
			serviceutil.Fatal(3, "invalid config", err)
		}

		for _, stage := range *cycleOnly {
			if !knownStage(stage) {
				slog.Error("unknown stage in --only", "stage", stage)
				os.Exit(3)
			}
		}

		database, err := db.Open(cfg.DatabaseUrl)
		if err != nil {
			serviceutil.Fatal(3, "failed to open database", err)
		}
		defer database.Close()

		// refuse to ingest into a store this binary doesn't understand
		drift, err := db.CheckSchema(cmd.Context(), database)
		if err != nil {
			serviceutil.Fatal(2, "schema check failed", err)
		}
		if len(drift) > 0 {
			for _, d := range drift {
				slog.Error("schema drift", "detail", d)
			}
			os.Exit(3)
		}

		libtelemetry.InstrumentPerfStats(cmd.Context())
		tel := telemetry.SlogAPI{}

		client := upstream.NewClient(upstream.Options{
			BaseUrl:      cfg.BaseUrl,
			ApiKey:       cfg.ApiKey,
			QuotaPerHour: cfg.QuotaPerHour,
			Tel:          tel,
		})
		if *cycleDumpRequests != "" {
			client.SetInstrumentOutput(*cycleDumpRequests)
		}

		orch := orchestrator.New(
			cfg,
			store.NewStore(database, tel),
			congressapi.NewClient(client, tel),
			leadership.NewClient(cfg.LeadershipUrl, tel),
			tel,
		)

		report, err := orch.Cycle(cmd.Context(), orchestrator.CycleOptions{
			Congress: *cycleCongress,
			Only:     *cycleOnly,
			DryRun:   *cycleDryRun,
		})
		if err != nil {
			serviceutil.Fatal(2, "cycle aborted", err)
		}

		report.Render(os.Stdout)
		switch {
		case report.AllFailed():
			os.Exit(2)
		case report.Failed():
			os.Exit(1)
		}
	},
}

func knownStage(name string) bool {
	for _, stage := range orchestrator.StageOrder {
		if stage == name {
			return true
		}
	}
	return false
}
