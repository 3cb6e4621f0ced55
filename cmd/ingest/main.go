package main

import (
	"context"
	"log/slog"
	"os"

	"congresshub-backend/cmd/ingest/commands"
	"congresshub-backend/lib/serviceutil"
	"congresshub-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	telemetry.InitSlog(os.Getenv("DEBUG") != "")
	tel, err := telemetry.SetupFromEnv(ctx, "congress-ingest")
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("telemetry disabled", "err", err.Error())
	}
	defer tel.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
