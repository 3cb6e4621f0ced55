// Package orchestrator runs ingestion cycles: a fixed stage order of
// sessions, members, committees, memberships and hearings, each stage
// fetch-normalize-reconcile-persist. A failed stage never aborts the
// cycle, it only suppresses its own deactivations.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"congresshub-backend/internal/config"
	"congresshub-backend/internal/congressapi"
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/normalize"
	"congresshub-backend/internal/reconcile"
	"congresshub-backend/internal/scrapers/leadership"
	"congresshub-backend/internal/store"
	"congresshub-backend/internal/telemetry"
)

const (
	StageSessions    = "sessions"
	StageMembers     = "members"
	StageCommittees  = "committees"
	StageMemberships = "memberships"
	StageHearings    = "hearings"
)

// StageOrder is the fixed run order; memberships come after both of their
// endpoint kinds.
var StageOrder = []string{
	StageSessions, StageMembers, StageCommittees, StageMemberships, StageHearings,
}

const (
	report_cycle_stage_failed = "cycle.stage-failed"
	report_cycle_committed    = "cycle.committed"
)

type Orchestrator struct {
	cfg        config.Config
	store      store.Store
	api        congressapi.Client
	leadership leadership.Client
	tel        telemetry.API
}

func New(
	cfg config.Config,
	st store.Store,
	api congressapi.Client,
	lead leadership.Client,
	tel telemetry.API,
) Orchestrator {
	return Orchestrator{
		cfg:        cfg,
		store:      st,
		api:        api,
		leadership: lead,
		tel:        telemetry.NewScopedAPI("orchestrator", tel),
	}
}

type CycleOptions struct {
	// Congress overrides the configured target; 0 resolves the latest
	// congress from the session list.
	Congress int
	// Only restricts the cycle to the named stages. An empty list runs
	// everything.
	Only []string
	// DryRun computes and reports mutation plans without writing.
	DryRun bool
}

// Cycle runs one ingestion sweep. The returned error covers setup failures
// only; per-stage failures land in the report.
func (o Orchestrator) Cycle(ctx context.Context, opts CycleOptions) (CycleReport, error) {
	if o.cfg.CycleTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.CycleTimeoutSeconds)*time.Second)
		defer cancel()
	}

	report := CycleReport{DryRun: opts.DryRun, Started: time.Now()}

	congress, err := o.resolveCongress(ctx, opts.Congress)
	if err != nil {
		return report, fmt.Errorf("resolving target congress: %w", err)
	}
	report.Congress = congress

	cycle, err := o.store.NextCycle(ctx)
	if err != nil {
		return report, fmt.Errorf("reading cycle counter: %w", err)
	}
	report.Cycle = cycle

	only := map[string]bool{}
	for _, name := range opts.Only {
		only[name] = true
	}
	wants := func(name string) bool {
		return len(only) == 0 || only[name]
	}

	// member and committee entities observed this cycle feed the
	// membership stage's endpoint validation
	var pendingMembers []model.Member
	var pendingCommittees []model.Committee

	for _, name := range StageOrder {
		if !wants(name) {
			report.Stages = append(report.Stages, StageReport{Name: name, State: StageSkipped})
			continue
		}

		var stage StageReport
		switch name {
		case StageSessions:
			stage = o.runSessions(ctx, cycle, opts.DryRun)
		case StageMembers:
			stage, pendingMembers = o.runMembers(ctx, cycle, congress, opts.DryRun)
		case StageCommittees:
			stage, pendingCommittees = o.runCommittees(ctx, cycle, opts.DryRun)
		case StageMemberships:
			stage = o.runMemberships(ctx, cycle, congress, opts.DryRun, pendingMembers, pendingCommittees)
		case StageHearings:
			stage = o.runHearings(ctx, cycle, congress, opts.DryRun)
		}
		if stage.State == StageFailed {
			o.tel.ReportBroken(report_cycle_stage_failed, name, stage.Err)
		}
		o.tel.ReportCount(fmt.Sprintf("cycle.%s.anomalies", name), int64(stage.AnomalyCount))
		report.Stages = append(report.Stages, stage)
	}

	report.Elapsed = time.Since(report.Started)

	// the counter only advances on a clean full sweep, a targeted or
	// partly failed run must not age unvisited rows toward deactivation
	if !opts.DryRun && len(only) == 0 && !report.Failed() {
		err = o.store.CommitCycle(ctx, cycle)
		if err != nil {
			return report, fmt.Errorf("committing cycle counter: %w", err)
		}
		o.tel.ReportDebug(report_cycle_committed, cycle)
	}

	return report, nil
}

func (o Orchestrator) resolveCongress(ctx context.Context, override int) (int, error) {
	if override > 0 {
		return override, nil
	}
	if o.cfg.TargetCongress > 0 {
		return o.cfg.TargetCongress, nil
	}
	return o.api.LatestCongress(ctx)
}

func (o Orchestrator) reconcileOptions(cycle int, streamComplete bool) reconcile.Options {
	return reconcile.Options{
		Cycle:          cycle,
		GraceCycles:    o.cfg.GraceCycles,
		StreamComplete: streamComplete,
	}
}

func planCounts[E any](plan reconcile.Plan[E]) PlanCounts {
	return PlanCounts{
		Creates:     len(plan.Creates),
		Updates:     len(plan.Updates),
		Touches:     len(plan.Touches),
		Deactivates: len(plan.Deactivates),
	}
}

func failStage(rep StageReport, err error) StageReport {
	rep.State = StageFailed
	rep.Err = err
	return rep
}

func finishStage(rep StageReport, streamErr error) StageReport {
	if streamErr != nil {
		return failStage(rep, streamErr)
	}
	rep.State = StageDone
	return rep
}

func (o Orchestrator) runSessions(ctx context.Context, cycle int, dry bool) StageReport {
	rep := StageReport{Name: StageSessions, State: StageFetching}

	entities, anomalies, streamErr := drain(ctx, o.api.Sessions(), normalize.Session)
	rep.Fetched = len(entities) + len(anomalies)
	rep.recordAnomalies(anomalies)

	rep.State = StageReconciling
	existing, err := o.store.LoadSessions(ctx)
	if err != nil {
		return failStage(rep, err)
	}
	plan := reconcile.Sessions(entities, existing, o.reconcileOptions(cycle, streamErr == nil))
	rep.Plan = planCounts(plan)
	if dry {
		return finishStage(rep, streamErr)
	}

	rep.State = StagePersisting
	rep.Store, err = o.store.ApplySessions(ctx, cycle, plan)
	if err != nil {
		return failStage(rep, err)
	}
	return finishStage(rep, streamErr)
}

func (o Orchestrator) runMembers(ctx context.Context, cycle, congress int, dry bool) (StageReport, []model.Member) {
	rep := StageReport{Name: StageMembers, State: StageFetching}

	entities, anomalies, streamErr := drain(ctx, o.api.Members(congress), normalize.Member)
	rep.Fetched = len(entities) + len(anomalies)
	rep.recordAnomalies(anomalies)

	rep.State = StageReconciling
	existing, err := o.store.LoadMembers(ctx, congress)
	if err != nil {
		return failStage(rep, err), entities
	}
	plan := reconcile.Members(entities, existing, o.reconcileOptions(cycle, streamErr == nil))
	rep.Plan = planCounts(plan)
	if dry {
		return finishStage(rep, streamErr), entities
	}

	rep.State = StagePersisting
	rep.Store, err = o.store.ApplyMembers(ctx, cycle, plan)
	if err != nil {
		return failStage(rep, err), entities
	}
	return finishStage(rep, streamErr), entities
}

func (o Orchestrator) runCommittees(ctx context.Context, cycle int, dry bool) (StageReport, []model.Committee) {
	rep := StageReport{Name: StageCommittees, State: StageFetching}

	entities, anomalies, streamErr := drain(ctx, o.api.Committees(), normalize.Committee)
	rep.Fetched = len(entities) + len(anomalies)
	rep.recordAnomalies(anomalies)

	rep.State = StageReconciling
	existing, err := o.store.LoadCommittees(ctx)
	if err != nil {
		return failStage(rep, err), entities
	}
	plan := reconcile.Committees(entities, existing, o.reconcileOptions(cycle, streamErr == nil))
	rep.Plan = planCounts(plan)
	if dry {
		return finishStage(rep, streamErr), entities
	}

	rep.State = StagePersisting
	rep.Store, err = o.store.ApplyCommittees(ctx, cycle, plan)
	if err != nil {
		return failStage(rep, err), entities
	}
	return finishStage(rep, streamErr), entities
}

func (o Orchestrator) runHearings(ctx context.Context, cycle, congress int, dry bool) StageReport {
	rep := StageReport{Name: StageHearings, State: StageFetching}

	observations, anomalies, streamErr := drain(ctx, o.api.Hearings(congress), normalize.Hearing)
	rep.Fetched = len(observations) + len(anomalies)
	rep.recordAnomalies(anomalies)

	rep.State = StageReconciling
	existing, err := o.store.LoadHearings(ctx, congress)
	if err != nil {
		return failStage(rep, err)
	}
	plan := reconcile.Hearings(observations, existing, o.reconcileOptions(cycle, streamErr == nil))
	rep.Plan = planCounts(plan)
	if dry {
		return finishStage(rep, streamErr)
	}

	rep.State = StagePersisting
	rep.Store, err = o.store.ApplyHearings(ctx, cycle, plan)
	if err != nil {
		return failStage(rep, err)
	}
	return finishStage(rep, streamErr)
}

// runMemberships derives memberships from the scraped leadership page,
// validated against the members and committees observed this cycle plus
// what the store already holds. It also folds scraped official website
// urls back onto matched committees.
func (o Orchestrator) runMemberships(
	ctx context.Context,
	cycle, congress int,
	dry bool,
	pendingMembers []model.Member,
	pendingCommittees []model.Committee,
) StageReport {
	rep := StageReport{Name: StageMemberships, State: StageFetching}

	records, err := o.leadership.Fetch(ctx)
	if err != nil {
		return failStage(rep, err)
	}
	rep.Fetched = len(records)

	rep.State = StageReconciling
	storedMembers, err := o.store.LoadMembers(ctx, congress)
	if err != nil {
		return failStage(rep, err)
	}
	storedCommittees, err := o.store.LoadCommittees(ctx)
	if err != nil {
		return failStage(rep, err)
	}

	memberKeys := map[model.MemberKey]bool{}
	for _, m := range pendingMembers {
		memberKeys[m.Key()] = true
	}
	members := pendingMembers
	for key, stored := range storedMembers {
		if !memberKeys[key] {
			members = append(members, stored.Entity)
		}
	}
	committees := pendingCommittees
	committeeByKey := map[model.CommitteeKey]model.Committee{}
	for _, c := range pendingCommittees {
		committeeByKey[c.Key()] = c
	}
	for key, stored := range storedCommittees {
		if _, pending := committeeByKey[key]; !pending {
			committees = append(committees, stored.Entity)
			committeeByKey[key] = stored.Entity
		}
	}

	incoming, officialUrls := reconcile.ResolveLeadership(records, members, committees, congress, o.tel)

	endpoints := reconcile.EndpointSet{
		Members:    map[model.MemberKey]bool{},
		Committees: map[model.CommitteeKey]bool{},
	}
	for _, m := range pendingMembers {
		endpoints.Members[m.Key()] = true
	}
	for key := range storedMembers {
		endpoints.Members[key] = true
	}
	for key := range committeeByKey {
		endpoints.Committees[key] = true
	}

	existing, err := o.store.LoadMemberships(ctx, congress)
	if err != nil {
		return failStage(rep, err)
	}
	plan, dropped := reconcile.Memberships(incoming, existing, endpoints, o.tel, o.reconcileOptions(cycle, true))
	for _, m := range dropped {
		rep.recordAnomalies([]normalize.Anomaly{{
			Kind:   normalize.AnomalyDanglingRef,
			Key:    m.Key().String(),
			Detail: "membership references an unknown member or committee",
		}})
	}
	rep.Plan = planCounts(plan)

	urlUpdates := committeeUrlUpdates(officialUrls, committeeByKey)
	urlPlan := reconcile.Committees(urlUpdates, storedCommittees, o.reconcileOptions(cycle, false))
	rep.Plan.Updates += len(urlPlan.Updates)

	if dry {
		return finishStage(rep, nil)
	}

	rep.State = StagePersisting
	rep.Store, err = o.store.ApplyMemberships(ctx, cycle, plan)
	if err != nil {
		return failStage(rep, err)
	}
	if !urlPlan.Empty() {
		urlReport, err := o.store.ApplyCommittees(ctx, cycle, urlPlan)
		if err != nil {
			return failStage(rep, err)
		}
		rep.Store.Updated += urlReport.Updated + urlReport.Created
		rep.Store.Rejected = append(rep.Store.Rejected, urlReport.Rejected...)
	}
	return finishStage(rep, nil)
}

// committeeUrlUpdates returns the committees whose official website url is
// newly learned or changed by the leadership scrape.
func committeeUrlUpdates(
	officialUrls map[model.CommitteeKey]string,
	committeeByKey map[model.CommitteeKey]model.Committee,
) []model.Committee {
	var out []model.Committee
	for key, url := range officialUrls {
		committee, ok := committeeByKey[key]
		if !ok || committee.OfficialWebsiteUrl == url {
			continue
		}
		committee.OfficialWebsiteUrl = url
		out = append(out, committee)
	}
	return out
}
