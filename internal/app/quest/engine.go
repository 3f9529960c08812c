package quest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/memeforge-network/memeforge/internal/app/boost"
	"github.com/memeforge-network/memeforge/internal/app/reward"
	"github.com/memeforge-network/memeforge/internal/app/stats"
	"github.com/memeforge-network/memeforge/internal/domain"
	"github.com/memeforge-network/memeforge/internal/infra/sqlite"
)

// Engine evaluates weekly quest progress and performs claims. The config
// is parsed and validated at construction and treated as an immutable
// value from then on.
type Engine struct {
	db      *sqlite.DB
	cfg     domain.QuestWeekConfig
	stats   *stats.Store
	curve   reward.LevelCurve
	economy reward.Economy
	loc     *time.Location
}

// NewEngine wires a quest engine. The config must already be validated.
// Claim credits count against the economy's global weekly cap the same way
// action credits do.
func NewEngine(db *sqlite.DB, cfg domain.QuestWeekConfig, store *stats.Store, curve reward.LevelCurve, economy reward.Economy) (*Engine, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("quest timezone: %w", err)
	}
	return &Engine{db: db, cfg: cfg, stats: store, curve: curve, economy: economy, loc: loc}, nil
}

// Config returns the immutable week configuration.
func (e *Engine) Config() domain.QuestWeekConfig { return e.cfg }

// ActiveWeek resolves the current week id: the configured fixed id, or the
// deterministic ISO week-of-year in the config's timezone when "auto".
func (e *Engine) ActiveWeek(now time.Time) string {
	if e.cfg.Week != "auto" {
		return e.cfg.Week
	}
	return domain.WeekKey(now.In(e.loc))
}

// weekStart returns Monday 00:00 of the active week in the config timezone.
func (e *Engine) weekStart(now time.Time) time.Time {
	local := now.In(e.loc)
	daysBack := (int(local.Weekday()) + 6) % 7 // Monday = 0
	monday := local.AddDate(0, 0, -daysBack)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, e.loc)
}

// ─── Progress ───────────────────────────────────────────────────────────────

// Progress is read-only and side-effect-free apart from the idempotent
// first-touch seeding of the week's tier-state rows.
func (e *Engine) Progress(userID string, now time.Time) (domain.WeekProgress, error) {
	week := e.ActiveWeek(now)
	if err := e.db.SeedTierStates(week, e.cfg.Tiers); err != nil {
		return domain.WeekProgress{}, err
	}

	st, err := e.stats.GetOrCreate(userID, now)
	if err != nil {
		return domain.WeekProgress{}, err
	}

	metrics, err := e.Metrics(userID, st, now)
	if err != nil {
		return domain.WeekProgress{}, err
	}

	states, err := e.db.TierStates(week)
	if err != nil {
		return domain.WeekProgress{}, err
	}
	claims, err := e.db.ListClaims(userID, week)
	if err != nil {
		return domain.WeekProgress{}, err
	}
	claimed := make(map[int]*domain.QuestClaim, len(claims))
	for i := range claims {
		claimed[claims[i].Tier] = &claims[i]
	}

	progress := domain.WeekProgress{Week: week, Metrics: metrics}
	for _, tier := range e.cfg.Tiers {
		paths, satisfied := evaluatePaths(tier, metrics)
		tp := domain.TierProgress{
			Tier:           tier.Tier,
			MinLevel:       tier.MinLevel,
			Reward:         tier.Reward,
			SlotsRemaining: states[tier.Tier],
			Paths:          paths,
			Claim:          claimed[tier.Tier],
			Status:         tierStatus(st.Level, tier, satisfied, states[tier.Tier], claimed[tier.Tier] != nil),
		}
		progress.Tiers = append(progress.Tiers, tp)
	}
	return progress, nil
}

// tierStatus derives the per-(user, tier) state machine position.
func tierStatus(level int, tier domain.TierConfig, satisfied bool, slots int, hasClaim bool) domain.TierStatus {
	switch {
	case hasClaim:
		return domain.TierClaimed
	case level < tier.MinLevel:
		return domain.TierLocked
	case slots <= 0:
		return domain.TierPoolEmpty
	case satisfied:
		return domain.TierEligible
	default:
		return domain.TierInProgress
	}
}

// evaluatePaths checks every path of a tier against the metrics bundle.
func evaluatePaths(tier domain.TierConfig, m domain.WeekMetrics) ([]domain.PathProgress, bool) {
	var out []domain.PathProgress
	any := false
	for _, p := range tier.Paths {
		pp := domain.PathProgress{Name: p.Name, Satisfied: true}
		for _, r := range p.Requirements {
			current, met := evaluateRequirement(r, m)
			pp.Requirements = append(pp.Requirements, domain.RequirementProgress{
				Requirement: r, Current: current, Met: met,
			})
			if !met {
				pp.Satisfied = false
			}
		}
		if pp.Satisfied {
			any = true
		}
		out = append(out, pp)
	}
	return out, any
}

// evaluateRequirement resolves one metric and applies its comparator.
func evaluateRequirement(r domain.Requirement, m domain.WeekMetrics) (current float64, met bool) {
	if r.Op == domain.OpIncludesAny {
		for _, want := range r.Values {
			for _, have := range m.HashtagsUsed {
				if strings.EqualFold(want, have) {
					return 1, true
				}
			}
		}
		return 0, false
	}

	current = metricValue(r.Metric, m)
	switch r.Op {
	case domain.OpGTE:
		met = current >= r.Target
	case domain.OpLTE:
		met = current <= r.Target
	case domain.OpGT:
		met = current > r.Target
	case domain.OpLT:
		met = current < r.Target
	case domain.OpEQ:
		met = current == r.Target
	}
	return current, met
}

func metricValue(metric domain.MetricType, m domain.WeekMetrics) float64 {
	switch metric {
	case domain.MetricGenerated:
		return float64(m.Generated)
	case domain.MetricPublished:
		return float64(m.Published)
	case domain.MetricVotesCast:
		return float64(m.VotesCast)
	case domain.MetricVotesReceived:
		return float64(m.VotesReceived)
	case domain.MetricBestAvgRating:
		return m.BestAvgRating
	case domain.MetricBestRatingCount:
		return float64(m.BestRatingCount)
	case domain.MetricAceCount:
		return float64(m.AceCount)
	case domain.MetricHiddenCount:
		return float64(m.HiddenCount)
	case domain.MetricReportCount:
		return float64(m.ReportCount)
	case domain.MetricSafetyFlags:
		return float64(m.SafetyFlags)
	case domain.MetricLevel:
		return float64(m.Level)
	case domain.MetricStreak:
		return float64(m.Streak)
	case domain.MetricBoostEligible:
		if m.BoostEligible {
			return 1
		}
		return 0
	}
	return 0
}

// ─── Metrics Bundle ─────────────────────────────────────────────────────────

// Metrics computes the per-user weekly metrics bundle the requirement
// evaluator and the boost calculator consume.
func (e *Engine) Metrics(userID string, st domain.UserStats, now time.Time) (domain.WeekMetrics, error) {
	since := e.weekStart(now)

	m := domain.WeekMetrics{
		Level:  st.Level,
		Streak: st.CurrentStreak,
	}

	var err error
	if m.Generated, err = e.db.CountActions(userID, domain.ActionGenerate, since); err != nil {
		return m, err
	}
	if m.Published, err = e.db.CountActions(userID, domain.ActionPublish, since); err != nil {
		return m, err
	}
	if m.VotesCast, err = e.db.CountActions(userID, domain.ActionVoteCast, since); err != nil {
		return m, err
	}
	if m.VotesReceived, err = e.db.CountVotesForAuthor(userID, since); err != nil {
		return m, err
	}

	// Moderation counters maintained through the admin adjustment path.
	m.ReportCount = st.Counts[domain.WeeklyPrefix+"reports"]
	m.SafetyFlags = st.Counts[domain.WeeklyPrefix+"safety_flags"]

	for key := range st.Counts {
		if tag, ok := strings.CutPrefix(key, domain.TagPrefix); ok && st.Counts[key] > 0 {
			m.HashtagsUsed = append(m.HashtagsUsed, tag)
		}
	}

	own, err := e.db.AuthorArtifactsSince(userID, since)
	if err != nil {
		return m, err
	}
	for _, a := range own {
		if a.Hidden {
			m.HiddenCount++
			continue
		}
		if avg := a.AvgRating(); avg > m.BestAvgRating {
			m.BestAvgRating = avg
			m.BestRatingCount = a.RatingCount
		}
		if a.UniqueVoters >= int64(e.cfg.Ace.MinVoters) && a.AvgRating() >= e.cfg.Ace.MinAvgRating {
			m.AceCount++
		}
	}

	m.BoostScore, m.BoostEligible, _, err = e.boostStanding(userID, since, now)
	if err != nil {
		return m, err
	}
	return m, nil
}

// boostStanding computes the user's voting-boost score, eligibility, and
// the total eligible score across all authors for the week.
func (e *Engine) boostStanding(userID string, since, now time.Time) (score float64, eligible bool, total float64, err error) {
	all, err := e.db.ListArtifactsSince(since)
	if err != nil {
		return 0, false, 0, err
	}
	byAuthor := make(map[string][]domain.Artifact)
	for _, a := range all {
		byAuthor[a.AuthorID] = append(byAuthor[a.AuthorID], a)
	}
	for author, artifacts := range byAuthor {
		s, ok := boost.AuthorScore(artifacts, now, e.cfg.VotingBoost)
		if !ok {
			continue
		}
		total += s
		if author == userID {
			score, eligible = s, true
		}
	}
	return score, eligible, total, nil
}

// ─── Claim ──────────────────────────────────────────────────────────────────

// Claim performs the slot-limited tier claim. Eligibility is re-evaluated
// here, not taken from any earlier progress read, and the final slot
// decrement + claim insert + credit happen in one atomic conditional
// storage operation.
func (e *Engine) Claim(userID string, tierNum int, now time.Time) (domain.QuestClaim, error) {
	var tier *domain.TierConfig
	for i := range e.cfg.Tiers {
		if e.cfg.Tiers[i].Tier == tierNum {
			tier = &e.cfg.Tiers[i]
			break
		}
	}
	if tier == nil {
		return domain.QuestClaim{}, domain.ErrUnknownTier
	}

	week := e.ActiveWeek(now)
	if err := e.db.SeedTierStates(week, e.cfg.Tiers); err != nil {
		return domain.QuestClaim{}, err
	}

	// The stats snapshot read here is written back inside the claim
	// transaction; hold the user's write lock so a concurrent action
	// credit cannot land in between and get clobbered.
	unlock := e.stats.Lock(userID)
	defer unlock()

	st, err := e.stats.GetOrCreate(userID, now)
	if err != nil {
		return domain.QuestClaim{}, err
	}
	if st.Level < tier.MinLevel {
		return domain.QuestClaim{}, domain.ErrTierLocked
	}

	if existing, err := e.db.GetClaim(userID, week, tierNum); err != nil {
		return domain.QuestClaim{}, err
	} else if existing != nil {
		return *existing, domain.ErrAlreadyClaimed
	}

	metrics, err := e.Metrics(userID, st, now)
	if err != nil {
		return domain.QuestClaim{}, err
	}
	if _, satisfied := evaluatePaths(*tier, metrics); !satisfied {
		return domain.QuestClaim{}, domain.ErrNotEligible
	}

	bonus, err := e.boostFor(userID, week, now)
	if err != nil {
		return domain.QuestClaim{}, err
	}

	// Weekly user cap pre-check; the claim transaction re-checks against
	// committed claims so a concurrent claim cannot slip past it.
	alreadyClaimed, err := e.db.SumClaimed(userID, week)
	if err != nil {
		return domain.QuestClaim{}, err
	}
	if e.cfg.WeeklyUserCap > 0 && alreadyClaimed+tier.Reward > e.cfg.WeeklyUserCap {
		return domain.QuestClaim{}, domain.ErrWeeklyCapExceeded
	}

	// Claim credits also count against the global weekly earnings cap.
	// The stats snapshot is stable under the user lock, so checking here
	// is as good as checking inside the transaction: trim the boost into
	// the remaining budget, reject when even the base reward does not fit.
	if e.economy.GlobalWeeklyCap > 0 {
		room := e.economy.GlobalWeeklyCap - st.WeeklyEarned
		if room < tier.Reward {
			return domain.QuestClaim{}, domain.ErrWeeklyCapExceeded
		}
		if bonus > room-tier.Reward {
			bonus = room - tier.Reward
		}
	}

	claim := domain.QuestClaim{
		UserID:    userID,
		Week:      week,
		Tier:      tierNum,
		Reward:    tier.Reward,
		Boost:     bonus,
		ClaimedAt: now,
	}
	ev := domain.RewardEvent{
		ID:          uuid.NewString(),
		UserID:      userID,
		Action:      domain.ActionQuestClaim,
		LevelBefore: st.Level,
		LevelAfter:  st.Level,
		Status:      domain.EventCredited,
		CreatedAt:   now,
	}

	return e.db.ClaimTier(claim, e.cfg.WeeklyUserCap, e.cfg.VotingBoost.WeeklyPool, st, ev, e.curve.LevelFor)
}

// boostFor computes the pro-rata voting bonus for a claim, capped by the
// user's remaining weekly boost allowance and the remaining shared pool.
func (e *Engine) boostFor(userID, week string, now time.Time) (int64, error) {
	score, eligible, total, err := e.boostStanding(userID, e.weekStart(now), now)
	if err != nil {
		return 0, err
	}
	if !eligible || score <= 0 {
		return 0, nil
	}

	claims, err := e.db.ListClaims(userID, week)
	if err != nil {
		return 0, err
	}
	var userBoosted int64
	for _, c := range claims {
		userBoosted += c.Boost
	}
	remainingUserCap := e.cfg.VotingBoost.PerUserWeeklyCap - userBoosted
	if remainingUserCap < 0 {
		remainingUserCap = 0
	}

	granted, err := e.db.SumWeekBoost(week)
	if err != nil {
		return 0, err
	}
	remainingPool := e.cfg.VotingBoost.WeeklyPool - granted
	if remainingPool < 0 {
		remainingPool = 0
	}

	limit := remainingUserCap
	if remainingPool < limit {
		limit = remainingPool
	}
	return boost.Bonus(score, total, e.cfg.VotingBoost.WeeklyPool, limit), nil
}
