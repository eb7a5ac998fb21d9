// Package pipeline implements the query execution contract from spec.md
// §4.6: sanitize, open a ledger session, resolve a construction template,
// enforce the capability contract, retrieve and annotate packs, synthesize
// an answer, compute adequacy, and close the ledger session. No episode
// record is written. ReportOutcome closes the loop by updating each cited
// pack's outcome counters and raising a defeater against packs that keep
// being reported unuseful; it does not change a pack's stored confidence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nateschmiedehaus/librarian/internal/ledger"
	"github.com/nateschmiedehaus/librarian/internal/mcpserver"
	"github.com/nateschmiedehaus/librarian/internal/model"
	"github.com/nateschmiedehaus/librarian/internal/retrieval"
	"github.com/nateschmiedehaus/librarian/internal/sanitize"
	"github.com/nateschmiedehaus/librarian/internal/staleness"
)

var _ mcpserver.QueryExecutor = (*Pipeline)(nil)

// PackStore is the narrow storage surface the pipeline needs for pack
// lifecycle: finding candidates, recording access, and feeding back outcome
// usefulness. Satisfied by *storage.DB.
type PackStore interface {
	GetActivePacksForTarget(ctx context.Context, targetID string) ([]model.Pack, error)
	RecordContextPackAccess(ctx context.Context, packID string, usefulness float64) error
	GetPack(ctx context.Context, id string) (model.Pack, error)
}

// Retriever resolves a query intent into scored candidates. Wraps
// internal/retrieval plus whatever candidate source (storage + embedding)
// the caller wires in; kept narrow so pipeline tests can substitute a fake
// instead of standing up SQLite and an embedding provider.
type Retriever interface {
	Candidates(ctx context.Context, req model.QueryRequest) (retrieval.Query, []retrieval.Candidate, map[string]string, error)
}

// EvidenceStore narrows the evidence graph down to what response annotation
// needs: claim lookup by subject and effective confidence. Satisfied by
// *GraphEvidenceStore, which adapts an *evidence.Graph plus its backing
// store.
type EvidenceStore interface {
	GetClaimsForSubject(ctx context.Context, subjectType, subjectID string) ([]model.Claim, error)
	EffectiveConfidence(ctx context.Context, claimID string) (float64, error)
	RaiseDefeater(ctx context.Context, d model.Defeater) (model.Defeater, error)
}

// Pipeline implements mcpserver.QueryExecutor. It is constructed once per
// server process and is safe for concurrent use across queries; the only
// per-query state lives in the Governor and ledger.Session each call
// allocates.
type Pipeline struct {
	retriever Retriever
	packs     PackStore
	graph     EvidenceStore
	ledger    ledger.Store
	staleness *staleness.Tracker
	llm       LLMProvider

	capabilities map[model.Capability]bool
	budget       GovernorBudget
	logger       *slog.Logger
	version      string
	coChange     *retrieval.CoChangeMatrix
}

// Config bundles Pipeline's collaborators.
type Config struct {
	Retriever    Retriever
	Packs        PackStore
	Graph        EvidenceStore
	Ledger       ledger.Store
	Staleness    *staleness.Tracker
	LLM          LLMProvider
	Capabilities map[model.Capability]bool
	Budget       GovernorBudget
	Logger       *slog.Logger
	Version      string
	// CoChange is optional; when set, retrieval scoring folds in the
	// co-change boost (spec.md §4.3) weighted per CoChange's configured
	// weight/cap, seeded from the query's affected files.
	CoChange *retrieval.CoChangeMatrix
}

// New constructs a Pipeline. Capabilities not present in cfg.Capabilities are
// treated as unavailable; callers should set CapabilityStorage true whenever
// cfg.Packs/cfg.Ledger are backed by a live database.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	budget := cfg.Budget
	if budget == (GovernorBudget{}) {
		budget = DefaultGovernorBudget()
	}
	caps := cfg.Capabilities
	if caps == nil {
		caps = map[model.Capability]bool{}
	}
	return &Pipeline{
		retriever:    cfg.Retriever,
		packs:        cfg.Packs,
		graph:        cfg.Graph,
		ledger:       cfg.Ledger,
		staleness:    cfg.Staleness,
		llm:          cfg.LLM,
		capabilities: caps,
		budget:       budget,
		logger:       logger,
		version:      cfg.Version,
		coChange:     cfg.CoChange,
	}
}

// ExecuteQuery implements mcpserver.QueryExecutor.
func (p *Pipeline) ExecuteQuery(ctx context.Context, req model.QueryRequest) (model.QueryResponse, error) {
	start := time.Now()
	gov := NewGovernor(p.budget)
	var disclosures []string
	var stages []model.Stage

	stage := func(name string, fn func() error) error {
		stageStart := time.Now()
		err := fn()
		stages = append(stages, model.Stage{Stage: name, DurationMs: time.Since(stageStart).Milliseconds()})
		return err
	}

	// Step 1: sanitize intent and affected-file inputs.
	intent, err := sanitize.String(req.Intent, sanitize.StringOptions{MinLen: 1, MaxLen: 4000, StripHTML: true, Normalize: true})
	if err != nil {
		return model.QueryResponse{}, fmt.Errorf("pipeline: sanitize intent: %w", err)
	}
	affectedFiles, err := sanitize.Paths(req.AffectedFiles, sanitize.PathOptions{})
	if err != nil {
		return model.QueryResponse{}, fmt.Errorf("pipeline: sanitize affected_files: %w", err)
	}
	req.Intent = intent
	req.AffectedFiles = affectedFiles

	// Step 2: open ledger session, allocate traceId.
	session, err := ledger.Open(ctx, p.ledger, req.Intent, p.logger)
	if err != nil {
		return model.QueryResponse{}, fmt.Errorf("pipeline: open ledger session: %w", err)
	}
	traceID := session.ID()
	session.Append(ctx, model.LedgerKindSessionOpened, "pipeline", map[string]any{"intent": req.Intent, "depth": req.Depth}, nil)
	session.Append(ctx, model.LedgerKindSanitized, "pipeline", map[string]any{"affected_files": req.AffectedFiles}, nil)

	defer func() {
		if cerr := session.Close(ctx); cerr != nil {
			p.logger.Warn("pipeline: close ledger session", "error", cerr, "trace_id", traceID)
		}
	}()

	// Step 3: select construction template.
	tmpl, templateDisclosure := resolveTemplate(req.TaskType)
	if templateDisclosure != "" {
		disclosures = append(disclosures, templateDisclosure)
	}
	session.Append(ctx, model.LedgerKindTemplateChosen, "pipeline", map[string]any{"template_id": tmpl.ID}, nil)

	// Step 4: enforce capability contract.
	capReport, capErr := enforceCapabilities(p.capabilities, req)
	session.Append(ctx, model.LedgerKindCapabilityCheck, "pipeline", map[string]any{"satisfied": capReport.Satisfied, "missing": capReport.Missing}, nil)
	if capErr != nil {
		disclosures = append(disclosures, model.Disclosure(model.DisclosureCapabilityMissing, capErr.Error()))
		return model.QueryResponse{
			TraceID:     traceID,
			Disclosures: disclosures,
			LatencyMs:   time.Since(start).Milliseconds(),
			Version:     p.version,
		}, capErr
	}
	if capReport.Degraded != nil {
		disclosures = append(disclosures, *capReport.Degraded)
	}

	if err := gov.CheckBudget(); err != nil {
		return model.QueryResponse{}, err
	}

	// Step 5: retrieve and annotate packs.
	var packs []model.Pack
	var present presentKinds
	if err := stage("retrieve", func() error {
		gov.SpendToolCall()
		rq, candidates, texts, rerr := p.retriever.Candidates(ctx, req)
		if rerr != nil {
			return fmt.Errorf("retrieve candidates: %w", rerr)
		}
		opts := retrieval.DefaultOptions()
		opts.CoChange = p.coChange
		opts.SeedPaths = req.AffectedFiles
		scored, rerr := retrieval.Retrieve(ctx, rq, candidates, texts, opts)
		if rerr != nil {
			return fmt.Errorf("score candidates: %w", rerr)
		}
		packs = p.materializePacks(ctx, scored)
		present.packs = len(packs)
		return nil
	}); err != nil {
		return model.QueryResponse{}, err
	}

	if err := gov.CheckBudget(); err != nil {
		return model.QueryResponse{}, err
	}

	p.annotateClaims(ctx, packs, &present)
	p.annotateStaleness(packs, req.AffectedFiles, &disclosures)

	if req.MinConfidence != nil {
		packs = filterByConfidence(packs, *req.MinConfidence)
	}
	session.Append(ctx, model.LedgerKindPackAssembly, "pipeline", map[string]any{"pack_count": len(packs)}, nil)

	// Step 6: synthesize the answer, with repair-then-unstructured fallback.
	var synthesis *model.Synthesis
	if err := stage("synthesize", func() error {
		var synthDisclosures []string
		synthesis, synthDisclosures = synthesize(ctx, p.llm, gov, req.Intent, packs, req.LLMRequirement)
		disclosures = append(disclosures, synthDisclosures...)
		synthesis.Citations = validateCitations(synthesis.Citations, packs)
		return nil
	}); err != nil {
		return model.QueryResponse{}, err
	}
	session.Append(ctx, model.LedgerKindSynthesis, "pipeline", map[string]any{"unstructured": synthesis.Unstructured, "citations": synthesis.Citations}, &synthesis.Confidence)

	// Step 7: compute adequacy.
	adequacy := computeAdequacy(tmpl, present, map[string]bool{"work_objects": len(packs) > 0, "adequacy_report": true})
	if adequacy.Blocking {
		disclosures = append(disclosures, model.Disclosure(model.DisclosureAdequacyUnavailable, "response is missing evidence the resolved template requires"))
	}
	session.Append(ctx, model.LedgerKindAdequacy, "pipeline", map[string]any{"blocking": adequacy.Blocking, "missing": adequacy.MissingEvidence}, nil)

	totalConfidence := aggregateConfidence(packs)

	return model.QueryResponse{
		TraceID:          traceID,
		Packs:            packs,
		TotalConfidence:  totalConfidence,
		Synthesis:        synthesis,
		Adequacy:         &adequacy,
		Disclosures:      disclosures,
		Stages:           stages,
		LatencyMs:        time.Since(start).Milliseconds(),
		ConstructionPlan: &model.ConstructionPlan{TemplateID: tmpl.ID},
		Version:          p.version,
	}, nil
}

// ReportOutcome implements mcpserver.QueryExecutor's feedback half: it
// records each cited pack's reported usefulness via RecordContextPackAccess,
// which updates the pack's outcome counters, then lets
// maybeRaiseUnusefulDefeater act on the new failure rate. The pack's stored
// confidence is not adjusted, and no episode is recorded.
func (p *Pipeline) ReportOutcome(ctx context.Context, report model.OutcomeReport) error {
	if report.TraceID == "" {
		return &model.ValidationError{Field: "trace_id", Reason: "required"}
	}
	for _, packID := range report.CitedPackIDs {
		if err := p.packs.RecordContextPackAccess(ctx, packID, report.Usefulness); err != nil {
			p.logger.Warn("pipeline: record pack outcome", "pack_id", packID, "error", err)
			continue
		}
		p.maybeRaiseUnusefulDefeater(ctx, packID)
	}
	return nil
}

// repeatedlyUnusefulThreshold and minOutcomeSample gate defeater emission so
// a pack isn't penalized on its first or second bad report.
const (
	repeatedlyUnusefulThreshold = 0.66
	minOutcomeSample            = 3
)

// maybeRaiseUnusefulDefeater raises a revision defeater against a pack's
// backing claims once its recorded failure rate crosses the threshold on a
// large enough sample (spec.md §4.6's "emit defeater on repeatedly-unuseful
// packs").
func (p *Pipeline) maybeRaiseUnusefulDefeater(ctx context.Context, packID string) {
	pack, err := p.packs.GetPack(ctx, packID)
	if err != nil {
		return
	}
	total := pack.OutcomeSuccesses + pack.OutcomeFailures
	if total < minOutcomeSample {
		return
	}
	failureRate := float64(pack.OutcomeFailures) / float64(total)
	if failureRate < repeatedlyUnusefulThreshold || len(pack.ClaimIDs) == 0 {
		return
	}
	if p.graph == nil {
		return
	}
	if _, err := p.graph.RaiseDefeater(ctx, model.Defeater{
		Type:                model.DefeaterRevision,
		Severity:            model.SeverityMinor,
		AffectedClaimIDs:    pack.ClaimIDs,
		ConfidenceReduction: 0.3,
		AutoResolvable:      true,
	}); err != nil {
		p.logger.Warn("pipeline: raise unuseful-pack defeater", "pack_id", packID, "error", err)
	}
}

// materializePacks resolves each scored candidate's target into a persisted
// pack (materialized by the indexer, carrying a real ID and summary), laid
// in score order with the retrieval-computed score overriding its stored
// confidence. A target with no materialized pack yet is skipped: the
// pipeline reports what context exists, it doesn't invent content.
func (p *Pipeline) materializePacks(ctx context.Context, scored []retrieval.Scored) []model.Pack {
	packs := make([]model.Pack, 0, len(scored))
	for _, s := range scored {
		candidates, err := p.packs.GetActivePacksForTarget(ctx, s.TargetID)
		if err != nil || len(candidates) == 0 {
			continue
		}
		pack := candidates[0]
		pack.Confidence = clampConfidence(s.CombinedScore)
		packs = append(packs, pack)
	}
	return packs
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// annotateClaims attaches each pack's claim IDs and adds the raw claim count
// to present so adequacy checks can see whether claim evidence backs the
// response; claims are counted as found, EffectiveConfidence is not
// consulted, and Pack.Confidence is not mutated here (retrieval already set
// the pack's base score; claims only inform adequacy, not the score).
func (p *Pipeline) annotateClaims(ctx context.Context, packs []model.Pack, present *presentKinds) {
	if p.graph == nil {
		return
	}
	for i := range packs {
		claims, err := p.graph.GetClaimsForSubject(ctx, subjectTypeForPack(packs[i].Type), packs[i].TargetID)
		if err != nil || len(claims) == 0 {
			continue
		}
		present.claims += len(claims)
		ids := make([]string, 0, len(claims))
		for _, c := range claims {
			ids = append(ids, c.ID)
		}
		packs[i].ClaimIDs = ids
	}
}

// annotateStaleness runs only when some affected file has gone stale or
// critical (spec.md §4.8): it then multiplies every pack's confidence by the
// mean freshness confidence of the affected-file set and appends a staleness
// disclosure. Per-pack file ownership is not considered.
func (p *Pipeline) annotateStaleness(packs []model.Pack, affectedFiles []string, disclosures *[]string) {
	if p.staleness == nil || len(affectedFiles) == 0 {
		return
	}
	report := p.staleness.ReportFor(affectedFiles, time.Now())
	if len(report.Degraded) == 0 {
		return
	}
	for i := range packs {
		packs[i].Confidence *= report.Confidence
	}
	*disclosures = append(*disclosures, model.Disclosure(model.DisclosureStalenessDefeater,
		fmt.Sprintf("%d affected file(s) are stale or critical relative to their index SLA", len(report.Degraded))))
}

func filterByConfidence(packs []model.Pack, min float64) []model.Pack {
	out := make([]model.Pack, 0, len(packs))
	for _, p := range packs {
		if p.Confidence >= min {
			out = append(out, p)
		}
	}
	return out
}

// validateCitations drops any citation that doesn't name a pack ID present
// in the response's pack set; synthesis must never surface a citation it
// cannot ground.
func validateCitations(citations []string, packs []model.Pack) []string {
	valid := make(map[string]bool, len(packs))
	for _, p := range packs {
		valid[p.ID] = true
	}
	out := make([]string, 0, len(citations))
	for _, c := range citations {
		if valid[c] {
			out = append(out, c)
		}
	}
	return out
}

func aggregateConfidence(packs []model.Pack) float64 {
	if len(packs) == 0 {
		return 0
	}
	var sum float64
	for _, p := range packs {
		sum += p.Confidence
	}
	return sum / float64(len(packs))
}

// subjectTypeForPack maps a pack's type onto the claim subject taxonomy
// (file | function | module | decision) so claim lookup can key off the
// pack's TargetID.
func subjectTypeForPack(t model.PackType) string {
	switch t {
	case model.PackModule:
		return "module"
	case model.PackFunction:
		return "function"
	default:
		return "file"
	}
}
