// Package pipeline turns stored filing snapshots into a full quarterly
// analysis: per-fund diffs, cross-fund signals, activity recording,
// historical baselines, and ranked findings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"thirteenf-lab/internal/baseline"
	"thirteenf-lab/internal/diff"
	"thirteenf-lab/internal/domain"
	"thirteenf-lab/internal/findings"
	"thirteenf-lab/internal/observability"
	"thirteenf-lab/internal/signals"
	"thirteenf-lab/internal/storage"
)

// Options wires the stores and thresholds an Analyzer needs. Zero-value
// thresholds fall back to the package defaults.
type Options struct {
	Funds      storage.FundStore
	Holdings   storage.HoldingStore
	Securities storage.SecurityStore
	Activity   storage.QuarterActivityStore

	MinFundsForCrowd     int
	MinFundsForConsensus int
	OptionsAUMThreshold  float64
	BaselineMinQuarters  int
	TopFindings          int
	Workers              int

	// SkipActivityRecord leaves the baseline history untouched, for
	// re-rendering a quarter that was already analyzed.
	SkipActivityRecord bool
}

// DefaultWorkers bounds the per-fund diff fan-out.
const DefaultWorkers = 4

const widelyHeldTopN = 10

// Result carries everything one analysis run produced. Errors holds
// non-fatal per-fund failures; a run that diffed anything at all still
// returns a usable Result.
type Result struct {
	Quarter      time.Time
	FundDiffs    []*domain.FundDiff
	Signals      *domain.CrossFundSignals
	Baselines    map[string]*domain.FundBaseline
	Findings     []findings.Finding
	SkippedFunds []string
	Errors       []string
}

// Analyzer executes the analysis phases for one quarter boundary.
type Analyzer struct {
	opts   Options
	logger zerolog.Logger
	clock  func() time.Time
}

// NewAnalyzer creates an analyzer. Unset thresholds take defaults.
func NewAnalyzer(opts Options, logger zerolog.Logger) *Analyzer {
	if opts.MinFundsForCrowd <= 0 {
		opts.MinFundsForCrowd = 3
	}
	if opts.MinFundsForConsensus <= 0 {
		opts.MinFundsForConsensus = 3
	}
	if opts.OptionsAUMThreshold <= 0 {
		opts.OptionsAUMThreshold = diff.DefaultOptionsAUMThreshold
	}
	if opts.BaselineMinQuarters <= 0 {
		opts.BaselineMinQuarters = baseline.DefaultMinQuarters
	}
	if opts.TopFindings <= 0 {
		opts.TopFindings = findings.DefaultTopN
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Analyzer{
		opts:   opts,
		logger: logger.With().Str("component", "analyzer").Logger(),
		clock:  time.Now,
	}
}

// WithClock injects a time source for testing.
func (a *Analyzer) WithClock(clock func() time.Time) *Analyzer {
	a.clock = clock
	return a
}

// snapshotPair is one fund's current and prior quarter, ready to diff.
type snapshotPair struct {
	fund    *domain.FundInfo
	current *domain.FundHoldings
	prior   *domain.FundHoldings
}

// Run executes the full analysis for the given quarter end. It fails
// only when nothing can proceed (no watchlist, or the registry is
// unreachable); per-fund problems are skipped and reported in the
// Result.
func (a *Analyzer) Run(ctx context.Context, quarter time.Time) (*Result, error) {
	start := a.clock()
	res := &Result{Quarter: quarter}

	funds, err := a.opts.Funds.GetAll(ctx)
	if err != nil {
		observability.RecordAnalysisPhase("load", "error", a.clock().Sub(start).Seconds())
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	if len(funds) == 0 {
		return nil, errors.New("watchlist is empty")
	}
	a.logger.Info().Int("funds", len(funds)).Time("quarter", quarter).Msg("analysis started")

	pairs := a.loadPairs(ctx, funds, quarter, res)
	observability.RecordAnalysisPhase("load", "ok", a.clock().Sub(start).Seconds())
	if len(pairs) == 0 {
		a.logger.Warn().Int("skipped", len(res.SkippedFunds)).Msg("no fund has both quarters on file")
		return res, nil
	}

	if err := a.enrich(ctx, pairs); err != nil {
		return nil, err
	}

	diffStart := a.clock()
	res.FundDiffs = a.computeDiffs(pairs)
	observability.RecordAnalysisPhase("diff", "ok", a.clock().Sub(diffStart).Seconds())
	a.logger.Info().Int("funds", len(res.FundDiffs)).Msg("fund diffs computed")

	sigStart := a.clock()
	res.Signals = a.computeSignals(ctx, pairs, res.FundDiffs, quarter, res)
	observability.RecordAnalysisPhase("signals", "ok", a.clock().Sub(sigStart).Seconds())

	if !a.opts.SkipActivityRecord {
		a.recordActivity(ctx, res.FundDiffs, quarter, res)
	}

	baseStart := a.clock()
	res.Baselines = a.computeBaselines(ctx, res.FundDiffs, quarter, res)
	observability.RecordAnalysisPhase("baseline", "ok", a.clock().Sub(baseStart).Seconds())

	res.Findings = findings.ComputeTop(res.FundDiffs, res.Signals, a.opts.TopFindings, res.Baselines)
	observability.DefaultMetrics.FindingsRanked.Add(float64(len(res.Findings)))
	observability.DefaultMetrics.LastSuccessfulAnalysis.SetToCurrentTime()

	a.logger.Info().
		Int("funds", len(res.FundDiffs)).
		Int("skipped", len(res.SkippedFunds)).
		Int("findings", len(res.Findings)).
		Dur("elapsed", a.clock().Sub(start)).
		Msg("analysis complete")
	return res, nil
}

// loadPairs resolves each fund's current and prior snapshot. A fund
// missing either quarter is skipped, not failed: first-quarter funds and
// late filers are the expected steady state.
func (a *Analyzer) loadPairs(ctx context.Context, funds []*domain.FundInfo, quarter time.Time, res *Result) []*snapshotPair {
	var pairs []*snapshotPair
	for _, fund := range funds {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("load %s: %v", fund.Name, ctx.Err()))
			return pairs
		}

		quarters, err := a.opts.Holdings.GetAvailableQuarters(ctx, fund.CIK)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("quarters for %s: %v", fund.Name, err))
			continue
		}
		prior := priorQuarter(quarters, quarter)
		if !containsQuarter(quarters, quarter) || prior.IsZero() {
			a.logger.Debug().Str("fund", fund.Name).Msg("missing current or prior quarter, skipping")
			res.SkippedFunds = append(res.SkippedFunds, fund.Name)
			observability.RecordFundSkipped()
			continue
		}

		current, err := a.opts.Holdings.GetSnapshot(ctx, fund.CIK, quarter)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("snapshot %s %s: %v", fund.Name, quarter.Format("2006-01-02"), err))
			continue
		}
		previous, err := a.opts.Holdings.GetSnapshot(ctx, fund.CIK, prior)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("snapshot %s %s: %v", fund.Name, prior.Format("2006-01-02"), err))
			continue
		}
		pairs = append(pairs, &snapshotPair{fund: fund, current: current, prior: previous})
	}
	return pairs
}

// priorQuarter returns the most recent available quarter strictly before
// the given one, or the zero time.
func priorQuarter(available []time.Time, quarter time.Time) time.Time {
	var best time.Time
	for _, q := range available {
		if q.Before(quarter) && q.After(best) {
			best = q
		}
	}
	return best
}

func containsQuarter(available []time.Time, quarter time.Time) bool {
	for _, q := range available {
		if q.Equal(quarter) {
			return true
		}
	}
	return false
}

// enrich resolves tickers, sectors, and float figures for every holding
// in every pair via one bulk reference lookup. Unknown CUSIPs stay
// unenriched.
func (a *Analyzer) enrich(ctx context.Context, pairs []*snapshotPair) error {
	seen := make(map[string]struct{})
	var cusips []string
	for _, p := range pairs {
		for _, snap := range []*domain.FundHoldings{p.current, p.prior} {
			for _, h := range snap.Holdings {
				if _, ok := seen[h.CUSIP]; !ok {
					seen[h.CUSIP] = struct{}{}
					cusips = append(cusips, h.CUSIP)
				}
			}
		}
	}

	securities, err := a.opts.Securities.GetByCUSIPs(ctx, cusips)
	if err != nil {
		return fmt.Errorf("load securities reference: %w", err)
	}
	a.logger.Debug().Int("cusips", len(cusips)).Int("resolved", len(securities)).Msg("reference data loaded")

	for _, p := range pairs {
		for _, snap := range []*domain.FundHoldings{p.current, p.prior} {
			for _, h := range snap.Holdings {
				applySecurity(h, securities[h.CUSIP])
			}
		}
	}
	return nil
}

// applySecurity copies reference fields onto a holding. Empty reference
// values stay nil so downstream code can tell "unknown" from "blank".
func applySecurity(h *domain.Holding, sec *domain.SecurityInfo) {
	if sec == nil {
		return
	}
	if sec.Ticker != "" {
		t := sec.Ticker
		h.Ticker = &t
	}
	if sec.Sector != "" {
		s := sec.Sector
		h.Sector = &s
	}
	if sec.Industry != "" {
		ind := sec.Industry
		h.Industry = &ind
	}
	if sec.FloatShares > 0 {
		fs := sec.FloatShares
		h.FloatShares = &fs
		if h.ShPrnType == "SH" && h.SharesOrPrnAmt > 0 {
			pct := float64(h.SharesOrPrnAmt) / float64(fs) * 100.0
			h.FloatOwnershipPct = &pct
		}
	}
}

// computeDiffs fans the pure per-fund diff across a bounded worker pool
// and returns the results sorted by fund name.
func (a *Analyzer) computeDiffs(pairs []*snapshotPair) []*domain.FundDiff {
	jobs := make(chan *snapshotPair)
	out := make([]*domain.FundDiff, 0, len(pairs))

	var mu sync.Mutex
	var wg sync.WaitGroup
	workers := min(a.opts.Workers, len(pairs))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				fd := diff.ComputeFundDiffWithThreshold(p.current, p.prior, a.opts.OptionsAUMThreshold)
				mu.Lock()
				out = append(out, fd)
				mu.Unlock()
				observability.RecordFundAnalyzed()
				observability.RecordDiffRows(len(fd.AllChanges()))
				for _, row := range fd.AllChanges() {
					if row.Action == domain.ActionExclude {
						observability.DefaultMetrics.OptionsExcluded.Inc()
					}
				}
			}
		}()
	}
	for _, p := range pairs {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].Fund.Name < out[j].Fund.Name })
	return out
}

// computeSignals aggregates the diffs into cross-fund signals and ranks
// the most widely held positions across the current snapshots.
func (a *Analyzer) computeSignals(ctx context.Context, pairs []*snapshotPair, fundDiffs []*domain.FundDiff, quarter time.Time, res *Result) *domain.CrossFundSignals {
	sectorData, err := a.loadSectorData(ctx, pairs)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("sector reference: %v", err))
	}

	sigs := signals.Aggregate(fundDiffs, quarter, signals.Options{
		MinFundsForCrowd:     a.opts.MinFundsForCrowd,
		MinFundsForConsensus: a.opts.MinFundsForConsensus,
		SectorData:           sectorData,
		Clock:                a.clock,
	})

	snapshots := make([]*domain.FundHoldings, len(pairs))
	for i, p := range pairs {
		snapshots[i] = p.current
	}
	sigs.WidelyHeld = signals.ComputeMostWidelyHeld(snapshots, widelyHeldTopN)

	observability.RecordSignals("crowded", len(sigs.CrowdedTrades))
	observability.RecordSignals("consensus", len(sigs.ConsensusInitiations))
	observability.RecordSignals("divergence", len(sigs.Divergences))
	observability.RecordSignals("crowding_risk", len(sigs.CrowdingRisk))
	a.logger.Info().
		Int("crowded", len(sigs.CrowdedTrades)).
		Int("consensus", len(sigs.ConsensusInitiations)).
		Int("divergences", len(sigs.Divergences)).
		Msg("cross-fund signals aggregated")
	return sigs
}

// loadSectorData builds the ticker-keyed reference map the aggregator
// wants for float-crowding checks.
func (a *Analyzer) loadSectorData(ctx context.Context, pairs []*snapshotPair) (map[string]*domain.SecurityInfo, error) {
	seen := make(map[string]struct{})
	var tickers []string
	for _, p := range pairs {
		for _, h := range p.current.Holdings {
			if h.Ticker == nil {
				continue
			}
			if _, ok := seen[*h.Ticker]; !ok {
				seen[*h.Ticker] = struct{}{}
				tickers = append(tickers, *h.Ticker)
			}
		}
	}
	if len(tickers) == 0 {
		return nil, nil
	}
	return a.opts.Securities.GetByTickers(ctx, tickers)
}

// recordActivity appends one activity row per diffed fund to the
// baseline history. Failures are reported but never block the run: the
// analysis output matters more than the history write.
func (a *Analyzer) recordActivity(ctx context.Context, fundDiffs []*domain.FundDiff, quarter time.Time, res *Result) {
	for _, fd := range fundDiffs {
		row := &domain.QuarterActivity{
			FundName:        fd.Fund.Name,
			Quarter:         quarter,
			NewCount:        len(fd.New),
			ExitedCount:     len(fd.Exited),
			HHIChange:       fd.HHIChange(),
			MaxNewWeightPct: maxNewWeight(fd),
			RecordedAt:      a.clock().UTC(),
		}
		if err := a.opts.Activity.Insert(ctx, row); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			res.Errors = append(res.Errors, fmt.Sprintf("record activity for %s: %v", fd.Fund.Name, err))
		}
	}
}

func maxNewWeight(fd *domain.FundDiff) float64 {
	var maxWeight float64
	for _, p := range fd.New {
		if p.CurrentWeight > maxWeight {
			maxWeight = p.CurrentWeight
		}
	}
	return maxWeight
}

// computeBaselines derives per-fund behavioral baselines from the
// activity history, excluding the quarter under analysis. Missing
// history is fine; a reader failure degrades to unbaselined findings.
func (a *Analyzer) computeBaselines(ctx context.Context, fundDiffs []*domain.FundDiff, quarter time.Time, res *Result) map[string]*domain.FundBaseline {
	names := make([]string, len(fundDiffs))
	for i, fd := range fundDiffs {
		names[i] = fd.Fund.Name
	}
	baselines, err := baseline.ComputeFundBaselines(ctx, a.opts.Activity, names, quarter, a.opts.BaselineMinQuarters)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("baselines: %v", err))
		return nil
	}
	a.logger.Debug().Int("baselined", len(baselines)).Msg("fund baselines computed")
	return baselines
}
