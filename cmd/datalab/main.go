package main

import (
	"context"
	"datalab-backend/cmd/datalab/commands"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	t, err := telemetry.SetupFromEnv(ctx, "datalab")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
