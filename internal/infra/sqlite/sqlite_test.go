package sqlite_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/memeforge-network/memeforge/internal/domain"
	"github.com/memeforge-network/memeforge/internal/infra/sqlite"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var testNow = time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)

func testEvent(userID string, action domain.ActionType, delta int64) domain.RewardEvent {
	return domain.RewardEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Delta:     delta,
		Status:    domain.EventCredited,
		CreatedAt: testNow,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Stats & Idempotency
// ═══════════════════════════════════════════════════════════════════════════

func TestUserStats_RoundTrip(t *testing.T) {
	db := testDB(t)

	if st, err := db.GetUserStats("nobody"); err != nil || st != nil {
		t.Fatalf("missing user: got %v, %v; want nil, nil", st, err)
	}

	st := domain.NewUserStats("alice", testNow)
	st.LifetimeEarned = 42
	st.Counts["generate"] = 7
	st.Badges["first_spark"] = true
	if err := db.SaveUserStats(st, testNow); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetUserStats("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LifetimeEarned != 42 || got.Counts["generate"] != 7 || !got.Badges["first_spark"] {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestCommitAction_FirstWriterWins(t *testing.T) {
	db := testDB(t)

	st := domain.NewUserStats("alice", testNow)
	st.LifetimeEarned = 5
	rec := domain.IdempotencyRecord{
		UserID: "alice", Key: "k-1", Response: `{"delta":5}`, CreatedAt: testNow,
	}

	replayed, _, err := db.CommitAction(st, rec, testEvent("alice", domain.ActionGenerate, 5), nil, nil)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if replayed {
		t.Fatal("first commit reported as replay")
	}

	// Second writer with the same key and a different response loses.
	st2 := st
	st2.LifetimeEarned = 999
	rec2 := rec
	rec2.Response = `{"delta":999}`
	replayed, cached, err := db.CommitAction(st2, rec2, testEvent("alice", domain.ActionGenerate, 999), nil, nil)
	if err != nil {
		t.Fatalf("replay commit: %v", err)
	}
	if !replayed {
		t.Fatal("duplicate key not detected")
	}
	if cached != `{"delta":5}` {
		t.Errorf("cached = %q, want the first writer's response", cached)
	}

	// The losing write must leave no trace in stats.
	got, _ := db.GetUserStats("alice")
	if got.LifetimeEarned != 5 {
		t.Errorf("lifetime = %d, want 5 (replay must not re-credit)", got.LifetimeEarned)
	}
}

func TestCommitAction_SameKeyDifferentUsers(t *testing.T) {
	db := testDB(t)

	for _, user := range []string{"alice", "bob"} {
		st := domain.NewUserStats(user, testNow)
		rec := domain.IdempotencyRecord{
			UserID: user, Key: "shared-key", Response: "{}", CreatedAt: testNow,
		}
		replayed, _, err := db.CommitAction(st, rec, testEvent(user, domain.ActionGenerate, 5), nil, nil)
		if err != nil {
			t.Fatalf("%s: %v", user, err)
		}
		if replayed {
			t.Errorf("%s: key is scoped per user, must not collide", user)
		}
	}
}

func TestCountActions_WindowAndFilter(t *testing.T) {
	db := testDB(t)

	old := testEvent("alice", domain.ActionGenerate, 5)
	old.CreatedAt = testNow.AddDate(0, 0, -10)
	if err := db.InsertRewardEvent(old); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := db.InsertRewardEvent(testEvent("alice", domain.ActionGenerate, 5)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := db.InsertRewardEvent(testEvent("bob", domain.ActionGenerate, 5)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err := db.CountActions("alice", domain.ActionGenerate, testNow.AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3 (window and user filters)", n)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Quest Claims
// ═══════════════════════════════════════════════════════════════════════════

func seedWeek(t *testing.T, db *sqlite.DB, week string, slots int) {
	t.Helper()
	err := db.SeedTierStates(week, []domain.TierConfig{{Tier: 1, Slots: slots, Reward: 100}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func claimFor(user, week string) domain.QuestClaim {
	return domain.QuestClaim{
		UserID: user, Week: week, Tier: 1, Reward: 100, ClaimedAt: testNow,
	}
}

func TestSeedTierStates_Idempotent(t *testing.T) {
	db := testDB(t)
	seedWeek(t, db, "2025-W27", 5)

	// Draining one slot then re-seeding must not refill the pool.
	_, err := db.ClaimTier(claimFor("alice", "2025-W27"), 0, 0,
		domain.NewUserStats("alice", testNow), testEvent("alice", domain.ActionQuestClaim, 100), nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	seedWeek(t, db, "2025-W27", 5)

	states, err := db.TierStates("2025-W27")
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	if states[1] != 4 {
		t.Errorf("slots = %d, want 4 (re-seed must not reset)", states[1])
	}
}

func TestClaimTier_Duplicate(t *testing.T) {
	db := testDB(t)
	seedWeek(t, db, "2025-W27", 5)
	st := domain.NewUserStats("alice", testNow)

	if _, err := db.ClaimTier(claimFor("alice", "2025-W27"), 0, 0, st,
		testEvent("alice", domain.ActionQuestClaim, 100), nil); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := db.ClaimTier(claimFor("alice", "2025-W27"), 0, 0, st,
		testEvent("alice", domain.ActionQuestClaim, 100), nil)
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("expected ErrAlreadyClaimed, got %v", err)
	}

	states, _ := db.TierStates("2025-W27")
	if states[1] != 4 {
		t.Errorf("slots = %d, want 4 (duplicate must not burn a slot)", states[1])
	}
}

func TestClaimTier_WeeklyCapTrimsBoost(t *testing.T) {
	db := testDB(t)
	seedWeek(t, db, "2025-W27", 5)
	st := domain.NewUserStats("alice", testNow)

	c := claimFor("alice", "2025-W27")
	c.Boost = 80
	// Cap 150: reward 100 fits, boost room is 50.
	got, err := db.ClaimTier(c, 150, 1000, st, testEvent("alice", domain.ActionQuestClaim, 180), nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got.Boost != 50 {
		t.Errorf("boost = %d, want trimmed to 50", got.Boost)
	}

	sum, _ := db.SumClaimed("alice", "2025-W27")
	if sum != 150 {
		t.Errorf("claimed sum = %d, want exactly the cap", sum)
	}
}

func TestClaimTier_RewardOverCapRejected(t *testing.T) {
	db := testDB(t)
	seedWeek(t, db, "2025-W27", 5)
	st := domain.NewUserStats("alice", testNow)

	_, err := db.ClaimTier(claimFor("alice", "2025-W27"), 50, 0, st,
		testEvent("alice", domain.ActionQuestClaim, 100), nil)
	if !errors.Is(err, domain.ErrWeeklyCapExceeded) {
		t.Errorf("expected ErrWeeklyCapExceeded, got %v", err)
	}
	states, _ := db.TierStates("2025-W27")
	if states[1] != 5 {
		t.Errorf("rejected claim burned a slot: %d", states[1])
	}
}

func TestClaimTier_BoostPoolClamp(t *testing.T) {
	db := testDB(t)
	seedWeek(t, db, "2025-W27", 5)

	users := []string{"alice", "bob", "carol"}
	var granted int64
	for _, u := range users {
		c := claimFor(u, "2025-W27")
		c.Boost = 40 // 3 x 40 > pool of 100
		got, err := db.ClaimTier(c, 0, 100, domain.NewUserStats(u, testNow),
			testEvent(u, domain.ActionQuestClaim, 140), nil)
		if err != nil {
			t.Fatalf("%s: %v", u, err)
		}
		granted += got.Boost
	}
	if granted > 100 {
		t.Errorf("total boost %d exceeds the pool", granted)
	}
	sum, _ := db.SumWeekBoost("2025-W27")
	if sum != granted {
		t.Errorf("stored boost %d != granted %d", sum, granted)
	}
}

func TestClaimTier_CreditsStatsAndLevel(t *testing.T) {
	db := testDB(t)
	seedWeek(t, db, "2025-W27", 5)

	st := domain.NewUserStats("alice", testNow)
	st.LifetimeEarned = 50
	levelFor := func(lifetime int64) int {
		if lifetime >= 100 {
			return 2
		}
		return 1
	}

	if _, err := db.ClaimTier(claimFor("alice", "2025-W27"), 0, 0, st,
		testEvent("alice", domain.ActionQuestClaim, 100), levelFor); err != nil {
		t.Fatalf("claim: %v", err)
	}

	got, _ := db.GetUserStats("alice")
	if got.LifetimeEarned != 150 || got.WeeklyEarned != 100 {
		t.Errorf("totals = %d/%d, want 150/100", got.LifetimeEarned, got.WeeklyEarned)
	}
	if got.Level != 2 {
		t.Errorf("level = %d, want recomputed 2", got.Level)
	}
}

// K slots, M > K concurrent claimants: exactly K succeed, the rest see
// ErrPoolEmpty, and slots_remaining ends at exactly zero.
func TestClaimTier_ConcurrentSlotContention(t *testing.T) {
	db := testDB(t)
	const slots, claimants = 3, 10
	seedWeek(t, db, "2025-W27", slots)

	var wg sync.WaitGroup
	errs := make([]error, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			_, errs[i] = db.ClaimTier(claimFor(user, "2025-W27"), 0, 0,
				domain.NewUserStats(user, testNow),
				testEvent(user, domain.ActionQuestClaim, 100), nil)
		}(i)
	}
	wg.Wait()

	var won, empty int
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrPoolEmpty):
			empty++
		default:
			t.Errorf("claimant %d: unexpected error %v", i, err)
		}
	}
	if won != slots {
		t.Errorf("winners = %d, want exactly %d", won, slots)
	}
	if empty != claimants-slots {
		t.Errorf("pool-empty losers = %d, want %d", empty, claimants-slots)
	}

	states, _ := db.TierStates("2025-W27")
	if states[1] != 0 {
		t.Errorf("slots remaining = %d, want 0 and never negative", states[1])
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Artifacts & Votes
// ═══════════════════════════════════════════════════════════════════════════

func TestArtifacts_UpsertFlagsOnly(t *testing.T) {
	db := testDB(t)

	a := domain.Artifact{
		ID: "m-1", AuthorID: "alice", CreatedAt: testNow,
		RatingSum: 9, RatingCount: 2, UniqueVoters: 2,
	}
	if err := db.UpsertArtifact(a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// A re-upsert (publish, hide) updates the flags but must never touch
	// the rating aggregates, which belong to the vote path.
	a.Published = true
	a.RatingSum, a.RatingCount, a.UniqueVoters = 0, 0, 0
	if err := db.UpsertArtifact(a); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, err := db.GetArtifact("m-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Published {
		t.Error("published flag not updated")
	}
	if got.RatingCount != 2 || got.RatingSum != 9 {
		t.Errorf("aggregates = %d/%d, want 9/2 preserved", got.RatingSum, got.RatingCount)
	}

	if missing, err := db.GetArtifact("m-404"); err != nil || missing != nil {
		t.Errorf("missing artifact: got %v, %v; want nil, nil", missing, err)
	}
}

// Votes committed through CommitAction fold into the artifact aggregates
// with relative updates, so every concurrent voter's rating survives.
func TestCommitAction_ConcurrentVotesKeepAllRatings(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertArtifact(domain.Artifact{
		ID: "m-1", AuthorID: "alice", CreatedAt: testNow, Published: true,
	}); err != nil {
		t.Fatalf("artifact: %v", err)
	}

	const voters = 8
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := fmt.Sprintf("voter-%d", i)
			st := domain.NewUserStats(voter, testNow)
			rec := domain.IdempotencyRecord{
				UserID: voter, Key: fmt.Sprintf("k-%d", i), Response: "{}", CreatedAt: testNow,
			}
			vote := &domain.VoteRecord{
				ID: fmt.Sprintf("v-%d", i), ArtifactID: "m-1", VoterID: voter,
				AuthorID: "alice", Rating: 4, CreatedAt: testNow,
			}
			_, _, err := db.CommitAction(st, rec, testEvent(voter, domain.ActionVoteCast, 2), nil, vote)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("commit vote: %v", err)
		}
	}

	got, err := db.GetArtifact("m-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RatingCount != voters || got.RatingSum != voters*4 || got.UniqueVoters != voters {
		t.Errorf("aggregates = sum %d count %d voters %d, want %d/%d/%d",
			got.RatingSum, got.RatingCount, got.UniqueVoters, voters*4, voters, voters)
	}

	// A replayed vote id changes nothing.
	st := domain.NewUserStats("voter-0", testNow)
	rec := domain.IdempotencyRecord{
		UserID: "voter-0", Key: "k-replay", Response: "{}", CreatedAt: testNow,
	}
	vote := &domain.VoteRecord{
		ID: "v-0", ArtifactID: "m-1", VoterID: "voter-0",
		AuthorID: "alice", Rating: 4, CreatedAt: testNow,
	}
	if _, _, err := db.CommitAction(st, rec, testEvent("voter-0", domain.ActionVoteCast, 2), nil, vote); err != nil {
		t.Fatalf("replay commit: %v", err)
	}
	got, _ = db.GetArtifact("m-1")
	if got.RatingCount != voters {
		t.Errorf("replayed vote id re-counted: count = %d", got.RatingCount)
	}
}

func TestVotes_InsertIdempotent(t *testing.T) {
	db := testDB(t)

	v := domain.VoteRecord{
		ID: "v-1", ArtifactID: "m-1", VoterID: "bob", AuthorID: "alice",
		Rating: 5, CreatedAt: testNow,
	}
	for i := 0; i < 3; i++ {
		if err := db.InsertVote(v); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	n, err := db.CountVotersForArtifact("m-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("unique voters = %d, want 1 after replayed inserts", n)
	}
}
