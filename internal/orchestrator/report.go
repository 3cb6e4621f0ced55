package orchestrator

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"congresshub-backend/internal/normalize"
	"congresshub-backend/internal/store"
)

// maxReportedAnomalies caps the offender list per stage; totals are kept
// regardless.
const maxReportedAnomalies = 25

type StageState string

const (
	StageIdle        StageState = "Idle"
	StageFetching    StageState = "Fetching"
	StageReconciling StageState = "Reconciling"
	StagePersisting  StageState = "Persisting"
	StageDone        StageState = "Done"
	StageFailed      StageState = "Failed"
	StageSkipped     StageState = "Skipped"
)

// StageReport is the outcome of one stage of a cycle.
type StageReport struct {
	Name    string
	State   StageState
	Fetched int
	// AnomalyCount is the full count; Anomalies holds the first offenders.
	AnomalyCount int
	Anomalies    []normalize.Anomaly
	Plan         PlanCounts
	Store        store.Report
	Err          error
}

// PlanCounts is the reconciler's verdict before persistence, which is all
// a dry run has to show.
type PlanCounts struct {
	Creates     int
	Updates     int
	Touches     int
	Deactivates int
}

func (r *StageReport) recordAnomalies(anomalies []normalize.Anomaly) {
	r.AnomalyCount += len(anomalies)
	for _, a := range anomalies {
		if len(r.Anomalies) >= maxReportedAnomalies {
			return
		}
		r.Anomalies = append(r.Anomalies, a)
	}
}

// CycleReport is the outcome of one full ingestion cycle.
type CycleReport struct {
	Cycle    int
	Congress int
	DryRun   bool
	Started  time.Time
	Elapsed  time.Duration
	Stages   []StageReport
}

func (r CycleReport) Failed() bool {
	for _, stage := range r.Stages {
		if stage.State == StageFailed {
			return true
		}
	}
	return false
}

// AllFailed reports whether no stage produced anything usable.
func (r CycleReport) AllFailed() bool {
	ran := 0
	for _, stage := range r.Stages {
		if stage.State == StageSkipped {
			continue
		}
		ran++
		if stage.State != StageFailed {
			return false
		}
	}
	return ran > 0
}

// Render writes the cycle summary as a table, an offender list underneath.
func (r CycleReport) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		"Stage", "State", "Fetched", "Anomalies",
		"Create", "Update", "Touch", "Deactivate", "Rejected", "Error",
	})
	for _, stage := range r.Stages {
		errText := ""
		if stage.Err != nil {
			errText = stage.Err.Error()
		}
		create, update, touch, deactivate := stage.Plan.Creates, stage.Plan.Updates,
			stage.Plan.Touches, stage.Plan.Deactivates
		if !r.DryRun {
			create, update, touch, deactivate = stage.Store.Created, stage.Store.Updated,
				stage.Store.Touched, stage.Store.Deactivated
		}
		t.AppendRow(table.Row{
			stage.Name, string(stage.State), stage.Fetched, stage.AnomalyCount,
			create, update, touch, deactivate, len(stage.Store.Rejected), errText,
		})
	}
	t.Render()

	mode := "applied"
	if r.DryRun {
		mode = "dry run, nothing written"
	}
	fmt.Fprintf(w, "cycle %d, congress %d, %s, took %s\n", r.Cycle, r.Congress, mode, r.Elapsed.Round(time.Millisecond))

	for _, stage := range r.Stages {
		for _, anomaly := range stage.Anomalies {
			fmt.Fprintf(w, "  %s: %s\n", stage.Name, anomaly.String())
		}
		if stage.AnomalyCount > len(stage.Anomalies) {
			fmt.Fprintf(w, "  %s: %d further anomalies not shown\n", stage.Name, stage.AnomalyCount-len(stage.Anomalies))
		}
	}
}
