package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"congresshub-backend/internal/db"
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/telemetry"
)

const (
	report_store_batch_rollback = "store.batch-rollback"
	report_store_row_rejected   = "store.row-rejected"
)

// Store applies mutation sets against the relational store. Writes are
// upserts on natural key; internal row ids never leave this package.
type Store struct {
	db  *sql.DB
	tel telemetry.API
}

func NewStore(database *sql.DB, tel telemetry.API) Store {
	return Store{
		db:  database,
		tel: telemetry.NewScopedAPI("store", tel),
	}
}

func (s Store) DB() *sql.DB {
	return s.db
}

// RejectedRow is a mutation that failed row-by-row re-application.
type RejectedRow struct {
	Key string
	Err string
}

// Report summarizes what one Apply call did to the store.
type Report struct {
	Created     int
	Updated     int
	Touched     int
	Deactivated int
	Rejected    []RejectedRow
}

func (r Report) Mutations() int {
	return r.Created + r.Updated + r.Deactivated
}

type opKind int

const (
	opCreate opKind = iota
	opUpdate
	opTouch
	opDeactivate
)

// mutation is one row write, sortable by natural key.
type mutation struct {
	key  string
	op   opKind
	exec func(ctx context.Context, q db.Querier) error
}

// apply runs all mutations for one entity kind inside a single transaction,
// in key-sorted order to minimize deadlock risk. If the batch fails it is
// rolled back and re-applied row-by-row so one bad row doesn't poison the
// rest; rejected rows end up in the report.
func (s Store) apply(ctx context.Context, kind string, muts []mutation) (Report, error) {
	var report Report

	sort.SliceStable(muts, func(i, j int) bool {
		return muts[i].key < muts[j].key
	})

	batchErr := s.applyBatch(ctx, muts)
	if batchErr == nil {
		countOps(&report, muts)
		return report, nil
	}

	s.tel.ReportWarning(report_store_batch_rollback, kind, batchErr)

	for _, m := range muts {
		err := m.exec(ctx, s.db)
		if err != nil {
			s.tel.ReportBroken(report_store_row_rejected, kind, m.key, err)
			report.Rejected = append(report.Rejected, RejectedRow{
				Key: m.key,
				Err: err.Error(),
			})
			continue
		}
		countOps(&report, []mutation{m})
	}

	if len(report.Rejected) == len(muts) && len(muts) > 0 {
		return report, fmt.Errorf("store apply %s: every row failed, first: %s", kind, report.Rejected[0].Err)
	}
	return report, nil
}

func (s Store) applyBatch(ctx context.Context, muts []mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range muts {
		err := m.exec(ctx, tx)
		if err != nil {
			return fmt.Errorf("%s: %w", m.key, err)
		}
	}
	return tx.Commit()
}

func countOps(report *Report, muts []mutation) {
	for _, m := range muts {
		switch m.op {
		case opCreate:
			report.Created++
		case opUpdate:
			report.Updated++
		case opTouch:
			report.Touched++
		case opDeactivate:
			report.Deactivated++
		}
	}
}

// NextCycle returns the number this cycle's writes will be stamped with.
// The counter itself only advances via CommitCycle after every stage swept
// cleanly, so grace arithmetic counts successful sweeps.
func (s Store) NextCycle(ctx context.Context) (int, error) {
	current, err := db.CycleCounter(ctx, s.db)
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (s Store) CommitCycle(ctx context.Context, cycle int) error {
	return db.SetCycleCounter(ctx, s.db, cycle)
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return model.FormatTime(t)
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(model.DateLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanNullableDate(raw sql.NullString) time.Time {
	if !raw.Valid {
		return time.Time{}
	}
	t, err := time.Parse(model.DateLayout, raw.String)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func scanNullableTime(raw sql.NullString) time.Time {
	if !raw.Valid {
		return time.Time{}
	}
	t, err := model.ParseStoredTime(raw.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
