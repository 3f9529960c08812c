package intake_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/memeforge-network/memeforge/internal/app/badge"
	"github.com/memeforge-network/memeforge/internal/app/intake"
	"github.com/memeforge-network/memeforge/internal/app/reward"
	"github.com/memeforge-network/memeforge/internal/app/stats"
	"github.com/memeforge-network/memeforge/internal/domain"
	"github.com/memeforge-network/memeforge/internal/infra/sqlite"
	"github.com/memeforge-network/memeforge/internal/security"
)

var testNow = time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *sqlite.DB
	svc   *intake.Service
	store *stats.Store
	keys  *security.Keypair
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	curve, err := reward.NewLevelCurve(reward.DefaultThresholds())
	if err != nil {
		t.Fatalf("curve: %v", err)
	}
	engine := reward.NewEngine(reward.DefaultRules(), curve, reward.DefaultEconomy(), badge.NewEvaluator())
	store := stats.NewStore(db, time.UTC)
	keys, err := security.GenerateKeypair()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	return &fixture{
		db:    db,
		svc:   intake.NewService(db, engine, store, keys),
		store: store,
		keys:  keys,
	}
}

func (f *fixture) mustSubmit(t *testing.T, ev intake.Event) domain.ActionResult {
	t.Helper()
	result, err := f.svc.Submit(ev, testNow)
	if err != nil {
		t.Fatalf("submit %s: %v", ev.Action, err)
	}
	return result
}

func TestSubmit_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(intake.Event{Action: domain.ActionGenerate}, testNow)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("got %v, want ErrUnauthenticated", err)
	}
}

func TestSubmit_UnknownAction(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(intake.Event{UserID: "alice", Action: "yodel"}, testNow)
	if !errors.Is(err, domain.ErrUnknownAction) {
		t.Errorf("got %v, want ErrUnknownAction", err)
	}
}

func TestSubmit_CreditsAndPersists(t *testing.T) {
	f := newFixture(t)

	result := f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionGenerate,
		SubjectID: "m-1", IdempotencyKey: "k-1",
	})
	if result.Delta != 5 {
		t.Errorf("delta = %d, want 5", result.Delta)
	}

	st, err := f.store.GetOrCreate("alice", testNow)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.LifetimeEarned != 5 {
		t.Errorf("lifetime = %d, want 5", st.LifetimeEarned)
	}

	// generate with a subject creates the artifact record.
	art, err := f.db.GetArtifact("m-1")
	if err != nil || art == nil {
		t.Fatalf("artifact: %v, %v", art, err)
	}
	if art.AuthorID != "alice" || art.Published {
		t.Errorf("artifact = %+v", art)
	}
}

// Replaying a key returns the original result byte for byte and credits
// nothing further, regardless of how often it is retried.
func TestSubmit_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ev := intake.Event{UserID: "alice", Action: domain.ActionGenerate, IdempotencyKey: "k-1"}

	first := f.mustSubmit(t, ev)
	for i := 0; i < 3; i++ {
		replay := f.mustSubmit(t, ev)
		if replay.Delta != first.Delta || replay.Level != first.Level ||
			replay.CapApplied != first.CapApplied {
			t.Errorf("replay %d diverged: %+v vs %+v", i, replay, first)
		}
	}

	st, _ := f.store.GetOrCreate("alice", testNow)
	if st.LifetimeEarned != 5 {
		t.Errorf("lifetime = %d, want 5 (replays must not credit)", st.LifetimeEarned)
	}
	if st.Counts["generate"] != 1 {
		t.Errorf("count = %d, want 1", st.Counts["generate"])
	}
}

func TestSubmit_PublishOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionGenerate, SubjectID: "m-1", IdempotencyKey: "k-1",
	})

	_, err := f.svc.Submit(intake.Event{
		UserID: "mallory", Action: domain.ActionPublish, SubjectID: "m-1", IdempotencyKey: "k-2",
	}, testNow)
	if !errors.Is(err, domain.ErrInvalidProof) {
		t.Errorf("foreign publish: got %v", err)
	}

	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionPublish, SubjectID: "m-1", IdempotencyKey: "k-3",
	})
	art, _ := f.db.GetArtifact("m-1")
	if !art.Published {
		t.Error("publish did not mark the artifact")
	}
}

func TestSubmit_VoteCast(t *testing.T) {
	f := newFixture(t)
	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionGenerate, SubjectID: "m-1", IdempotencyKey: "k-1",
	})

	// Self-votes are rejected.
	_, err := f.svc.Submit(intake.Event{
		UserID: "alice", Action: domain.ActionVoteCast, SubjectID: "m-1",
		Rating: 5, IdempotencyKey: "k-2",
	}, testNow)
	if !errors.Is(err, domain.ErrInvalidProof) {
		t.Errorf("self-vote: got %v", err)
	}

	// Rating bounds.
	_, err = f.svc.Submit(intake.Event{
		UserID: "bob", Action: domain.ActionVoteCast, SubjectID: "m-1",
		Rating: 6, IdempotencyKey: "k-3",
	}, testNow)
	if !errors.Is(err, domain.ErrInvalidProof) {
		t.Errorf("rating 6: got %v", err)
	}

	result := f.mustSubmit(t, intake.Event{
		UserID: "bob", Action: domain.ActionVoteCast, SubjectID: "m-1",
		Rating: 4, IdempotencyKey: "k-4",
	})
	if result.Delta != 2 {
		t.Errorf("delta = %d, want 2", result.Delta)
	}

	art, _ := f.db.GetArtifact("m-1")
	if art.RatingSum != 4 || art.RatingCount != 1 || art.UniqueVoters != 1 {
		t.Errorf("aggregates = %+v", art)
	}

	// Replaying the vote leaves the aggregates alone.
	f.mustSubmit(t, intake.Event{
		UserID: "bob", Action: domain.ActionVoteCast, SubjectID: "m-1",
		Rating: 4, IdempotencyKey: "k-4",
	})
	art, _ = f.db.GetArtifact("m-1")
	if art.RatingCount != 1 {
		t.Errorf("replayed vote double-counted: %+v", art)
	}
}

// Concurrent submits for one user with distinct keys must all land. The
// per-user lock serializes each load-transform-commit span, so no response
// can promise a credit that a racing submit then overwrites.
func TestSubmit_ConcurrentDistinctKeys(t *testing.T) {
	f := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Submit(intake.Event{
				UserID: "alice", Action: domain.ActionGenerate,
				IdempotencyKey: fmt.Sprintf("k-%d", i),
			}, testNow)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	st, err := f.store.GetOrCreate("alice", testNow)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.LifetimeEarned != n*5 {
		t.Errorf("lifetime = %d, want %d (every committed credit must survive)",
			st.LifetimeEarned, n*5)
	}
	if st.Counts["generate"] != n {
		t.Errorf("count = %d, want %d", st.Counts["generate"], n)
	}
}

// Concurrent voters on one artifact: every rating must reach the
// aggregates, matching the votes table row for row.
func TestSubmit_ConcurrentVotesAggregateFully(t *testing.T) {
	f := newFixture(t)
	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionGenerate, SubjectID: "m-1", IdempotencyKey: "seed",
	})

	const voters = 8
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Submit(intake.Event{
				UserID: fmt.Sprintf("voter-%d", i), Action: domain.ActionVoteCast,
				SubjectID: "m-1", Rating: 5, IdempotencyKey: fmt.Sprintf("k-%d", i),
			}, testNow)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	art, err := f.db.GetArtifact("m-1")
	if err != nil || art == nil {
		t.Fatalf("artifact: %v, %v", art, err)
	}
	if art.RatingCount != voters || art.RatingSum != voters*5 {
		t.Errorf("aggregates = sum %d count %d, want %d/%d",
			art.RatingSum, art.RatingCount, voters*5, voters)
	}
	if n, _ := f.db.CountVotersForArtifact("m-1"); n != voters {
		t.Errorf("votes table = %d rows, want %d", n, voters)
	}
}

func TestSubmit_VoteReceivedProof(t *testing.T) {
	f := newFixture(t)

	// No server-side vote record yet.
	_, err := f.svc.Submit(intake.Event{
		UserID: "alice", Action: domain.ActionVoteReceived, VoteID: "v-missing",
	}, testNow)
	if !errors.Is(err, domain.ErrInvalidProof) {
		t.Errorf("missing vote: got %v", err)
	}

	// Seed an artifact and a real vote through the normal path.
	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionGenerate, SubjectID: "m-1", IdempotencyKey: "k-1",
	})
	f.mustSubmit(t, intake.Event{
		UserID: "bob", Action: domain.ActionVoteCast, SubjectID: "m-1",
		Rating: 5, IdempotencyKey: "k-2",
	})

	// The vote id the intake layer minted is derived from bob's key.
	result := f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionVoteReceived, VoteID: "v-k-2",
	})
	if result.Delta != 3 {
		t.Errorf("delta = %d, want 3 (one vote x 3)", result.Delta)
	}

	// bob cannot claim alice's vote credit.
	_, err = f.svc.Submit(intake.Event{
		UserID: "bob", Action: domain.ActionVoteReceived, VoteID: "v-k-2",
	}, testNow)
	if !errors.Is(err, domain.ErrInvalidProof) {
		t.Errorf("foreign vote claim: got %v", err)
	}

	// Same vote id replays deterministically without a client key.
	before, _ := f.store.GetOrCreate("alice", testNow)
	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionVoteReceived, VoteID: "v-k-2",
	})
	after, _ := f.store.GetOrCreate("alice", testNow)
	if after.LifetimeEarned != before.LifetimeEarned {
		t.Error("replayed vote_received credited again")
	}
}

func TestSubmit_ShareClickProof(t *testing.T) {
	f := newFixture(t)

	// Lift alice to level 2 so share_click is not gated.
	if _, err := f.svc.Adjust(intake.Adjustment{
		UserID: "alice", Delta: 150, Reason: "test seed",
	}, testNow); err != nil {
		t.Fatalf("seed adjust: %v", err)
	}
	st, _ := f.store.GetOrCreate("alice", testNow)
	if st.Level < 2 {
		t.Fatalf("setup: level = %d, want >= 2 (lifetime %d)", st.Level, st.LifetimeEarned)
	}

	token := f.keys.MintShareToken("alice", "m-1", time.Hour, testNow)

	result := f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionShareClick,
		SubjectID: "m-1", ShareToken: token,
	})
	if result.Delta != 1 {
		t.Errorf("delta = %d, want 1", result.Delta)
	}

	// A tampered token is rejected.
	_, err := f.svc.Submit(intake.Event{
		UserID: "alice", Action: domain.ActionShareClick,
		SubjectID: "m-2", ShareToken: token,
	}, testNow)
	if !errors.Is(err, domain.ErrInvalidProof) {
		t.Errorf("token for wrong subject: got %v", err)
	}
}

func TestSubmit_ShareClickGatedAtLevelOne(t *testing.T) {
	f := newFixture(t)
	token := f.keys.MintShareToken("alice", "m-1", time.Hour, testNow)

	result := f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionShareClick,
		SubjectID: "m-1", ShareToken: token,
	})
	if result.Delta != 0 {
		t.Errorf("delta = %d, want 0 (below min level)", result.Delta)
	}

	st, _ := f.store.GetOrCreate("alice", testNow)
	if st.LifetimeEarned != 0 {
		t.Error("gated action credited")
	}
}

func TestSubmit_TimeSpentBounds(t *testing.T) {
	f := newFixture(t)

	for _, secs := range []int64{0, -5, 86401} {
		_, err := f.svc.Submit(intake.Event{
			UserID: "alice", Action: domain.ActionTimeSpent, Seconds: secs,
		}, testNow)
		if !errors.Is(err, domain.ErrInvalidProof) {
			t.Errorf("seconds=%d: got %v", secs, err)
		}
	}

	result := f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionTimeSpent, Seconds: 600, IdempotencyKey: "k-1",
	})
	if result.Delta != 10 {
		t.Errorf("delta = %d, want 10", result.Delta)
	}
}

func TestSubmit_HashtagNormalization(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(intake.Event{
		UserID: "alice", Action: domain.ActionHashtagUse, Hashtags: []string{"  ", "#"},
	}, testNow)
	if !errors.Is(err, domain.ErrMissingProof) {
		t.Errorf("empty tags: got %v", err)
	}

	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionHashtagUse,
		Hashtags:       []string{"#Trending", "CATS", "#trending"},
		IdempotencyKey: "k-1",
	})
	st, _ := f.store.GetOrCreate("alice", testNow)
	if st.Counts["tag_trending"] != 2 || st.Counts["tag_cats"] != 1 {
		t.Errorf("tag counters = %v", st.Counts)
	}
}

func TestAdjust_DeltaAndFloor(t *testing.T) {
	f := newFixture(t)
	f.mustSubmit(t, intake.Event{
		UserID: "alice", Action: domain.ActionGenerate, IdempotencyKey: "k-1",
	})

	if _, err := f.svc.Adjust(intake.Adjustment{UserID: "alice", Delta: 10}, testNow); err == nil {
		t.Error("adjustment without reason must fail")
	}

	st, err := f.svc.Adjust(intake.Adjustment{
		UserID: "alice", Delta: -100, Reason: "vote fraud rollback",
	}, testNow)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if st.LifetimeEarned != 0 {
		t.Errorf("lifetime = %d, want floored at 0", st.LifetimeEarned)
	}
	if st.Level != 1 {
		t.Errorf("level = %d, want recomputed 1", st.Level)
	}
}

func TestAdjust_SpecialBadgeAndCounters(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.Adjust(intake.Adjustment{
		UserID:   "alice",
		Counters: map[string]int64{"weekly_reports": 2},
		Badges:   []string{"founding_member"},
		Reason:   "manual grant",
	}, testNow)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if !st.Badges["founding_member"] {
		t.Error("special badge not granted")
	}
	if st.Counts["weekly_reports"] != 2 {
		t.Errorf("counter = %d, want 2", st.Counts["weekly_reports"])
	}

	events, err := f.db.RecentEvents("alice", 5)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) == 0 || events[0].Status != domain.EventAdjusted {
		t.Errorf("adjustment not audit-logged: %+v", events)
	}
}
