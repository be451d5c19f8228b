package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestTournament(t *testing.T, marketIDs []string, maxParticipants int) *domain.Tournament {
	t.Helper()
	now := time.Now().UTC()
	tr, err := domain.NewTournament(domain.CreateTournamentParams{
		Name:            "Weekly cup",
		MarketIDs:       marketIDs,
		EntryFee:        decimal.NewFromInt(5),
		PrizePool:       decimal.NewFromInt(1000),
		StartTime:       now,
		EndTime:         now.Add(7 * 24 * time.Hour),
		MaxParticipants: maxParticipants,
		CreatorAddress:  "0xhost",
	}, now)
	if err != nil {
		t.Fatalf("NewTournament() error = %v", err)
	}
	return tr
}

func mustJoin(t *testing.T, tr *domain.Tournament, addrs ...string) {
	t.Helper()
	for _, a := range addrs {
		if err := tr.Join(a); err != nil {
			t.Fatalf("Join(%s) error = %v", a, err)
		}
	}
}

// ── Creation ──────────────────────────────────────────────────────────────────

func TestNewTournament_Validation(t *testing.T) {
	now := time.Now().UTC()
	base := domain.CreateTournamentParams{
		Name:            "cup",
		MarketIDs:       []string{"market_1"},
		PrizePool:       decimal.NewFromInt(10),
		StartTime:       now,
		EndTime:         now.Add(time.Hour),
		MaxParticipants: 10,
		CreatorAddress:  "0xhost",
	}

	tests := []struct {
		name   string
		mutate func(p *domain.CreateTournamentParams)
	}{
		{"no markets", func(p *domain.CreateTournamentParams) { p.MarketIDs = nil }},
		{"duplicate markets", func(p *domain.CreateTournamentParams) { p.MarketIDs = []string{"m", "m"} }},
		{"negative fee", func(p *domain.CreateTournamentParams) { p.EntryFee = decimal.NewFromInt(-1) }},
		{"negative pool", func(p *domain.CreateTournamentParams) { p.PrizePool = decimal.NewFromInt(-1) }},
		{"one participant", func(p *domain.CreateTournamentParams) { p.MaxParticipants = 1 }},
		{"too many participants", func(p *domain.CreateTournamentParams) { p.MaxParticipants = 1001 }},
		{"end before start", func(p *domain.CreateTournamentParams) { p.EndTime = p.StartTime.Add(-time.Minute) }},
		{"no creator", func(p *domain.CreateTournamentParams) { p.CreatorAddress = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if _, err := domain.NewTournament(p, now); !domain.IsInvalidArgument(err) {
				t.Errorf("NewTournament() error = %v, want invalid argument", err)
			}
		})
	}
}

// ── Join / Start ──────────────────────────────────────────────────────────────

func TestJoin(t *testing.T) {
	tr := newTestTournament(t, []string{"m1"}, 2)
	mustJoin(t, tr, "0xa")

	if err := tr.Join("0xa"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Errorf("Join(dup) error = %v, want ErrAlreadyJoined", err)
	}
	mustJoin(t, tr, "0xb")
	if err := tr.Join("0xc"); !errors.Is(err, domain.ErrTournamentFull) {
		t.Errorf("Join(full) error = %v, want ErrTournamentFull", err)
	}
	if err := tr.Join(""); !domain.IsInvalidArgument(err) {
		t.Errorf("Join(empty) error = %v, want invalid argument", err)
	}

	if len(tr.Participants) != 2 || tr.Participants[0] != "0xa" || tr.Participants[1] != "0xb" {
		t.Errorf("Participants = %v, want [0xa 0xb]", tr.Participants)
	}
	if score, ok := tr.ParticipantScores["0xb"]; !ok || score != 0 {
		t.Errorf("ParticipantScores[0xb] = %d (%v), want 0", score, ok)
	}
}

func TestStart(t *testing.T) {
	tr := newTestTournament(t, []string{"m1"}, 10)
	mustJoin(t, tr, "0xa")

	if err := tr.Start("0xa"); !errors.Is(err, domain.ErrNotTournamentCreator) {
		t.Errorf("Start(non-creator) error = %v, want ErrNotTournamentCreator", err)
	}
	if err := tr.Start("0xhost"); !errors.Is(err, domain.ErrNotEnoughParticipants) {
		t.Errorf("Start(1 participant) error = %v, want ErrNotEnoughParticipants", err)
	}

	mustJoin(t, tr, "0xb")
	if err := tr.Start("0xhost"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if tr.Status != domain.TournamentActive {
		t.Errorf("Status = %s, want %s", tr.Status, domain.TournamentActive)
	}
	if err := tr.Start("0xhost"); !errors.Is(err, domain.ErrTournamentNotPending) {
		t.Errorf("Start(active) error = %v, want ErrTournamentNotPending", err)
	}
	if err := tr.Join("0xc"); !errors.Is(err, domain.ErrTournamentNotPending) {
		t.Errorf("Join(active) error = %v, want ErrTournamentNotPending", err)
	}
}

// ── Predictions ───────────────────────────────────────────────────────────────

func TestSubmitPredictions_Merge(t *testing.T) {
	m1 := newTestMarket(t)
	m2 := newTestMarket(t, "RED", "BLUE")
	markets := map[string]*domain.Market{m1.ID: m1, m2.ID: m2}

	tr := newTestTournament(t, []string{m1.ID, m2.ID}, 10)
	mustJoin(t, tr, "0xa", "0xb")
	if err := tr.Start("0xhost"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := tr.SubmitPredictions("0xa", map[string]string{m1.ID: "YES"}, markets); err != nil {
		t.Fatalf("SubmitPredictions(first) error = %v", err)
	}
	if err := tr.SubmitPredictions("0xa", map[string]string{m1.ID: "NO", m2.ID: "RED"}, markets); err != nil {
		t.Fatalf("SubmitPredictions(second) error = %v", err)
	}

	got := tr.Predictions["0xa"]
	if got[m1.ID] != "NO" || got[m2.ID] != "RED" {
		t.Errorf("Predictions[0xa] = %v, want {%s:NO %s:RED}", got, m1.ID, m2.ID)
	}
}

func TestSubmitPredictions_Rejections(t *testing.T) {
	m1 := newTestMarket(t)
	other := newTestMarket(t)
	markets := map[string]*domain.Market{m1.ID: m1, other.ID: other}

	tr := newTestTournament(t, []string{m1.ID}, 10)
	mustJoin(t, tr, "0xa", "0xb")

	if err := tr.SubmitPredictions("0xa", map[string]string{m1.ID: "YES"}, markets); !errors.Is(err, domain.ErrTournamentNotActive) {
		t.Errorf("pending: error = %v, want ErrTournamentNotActive", err)
	}
	if err := tr.Start("0xhost"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := tr.SubmitPredictions("0xz", map[string]string{m1.ID: "YES"}, markets); !errors.Is(err, domain.ErrNotParticipant) {
		t.Errorf("non-participant: error = %v, want ErrNotParticipant", err)
	}
	if err := tr.SubmitPredictions("0xa", map[string]string{other.ID: "YES"}, markets); !domain.IsInvalidArgument(err) {
		t.Errorf("foreign market: error = %v, want invalid argument", err)
	}
	if err := tr.SubmitPredictions("0xa", map[string]string{m1.ID: "MAYBE"}, markets); !domain.IsInvalidArgument(err) {
		t.Errorf("bad outcome: error = %v, want invalid argument", err)
	}
	if err := tr.SubmitPredictions("0xa", map[string]string{}, markets); !domain.IsInvalidArgument(err) {
		t.Errorf("empty: error = %v, want invalid argument", err)
	}
	if len(tr.Predictions["0xa"]) != 0 {
		t.Errorf("rejected submissions stored predictions: %v", tr.Predictions["0xa"])
	}
}

// ── Completion ────────────────────────────────────────────────────────────────

func TestComplete_RanksAndSplitsPrize(t *testing.T) {
	m1 := newTestMarket(t)
	m2 := newTestMarket(t)
	m3 := newTestMarket(t)
	markets := map[string]*domain.Market{m1.ID: m1, m2.ID: m2, m3.ID: m3}

	tr := newTestTournament(t, []string{m1.ID, m2.ID, m3.ID}, 10)
	mustJoin(t, tr, "0xa", "0xb", "0xc", "0xd")
	if err := tr.Start("0xhost"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	submit := func(addr string, preds map[string]string) {
		t.Helper()
		if err := tr.SubmitPredictions(addr, preds, markets); err != nil {
			t.Fatalf("SubmitPredictions(%s) error = %v", addr, err)
		}
	}
	// m1 → YES, m2 → NO, m3 unresolved
	submit("0xa", map[string]string{m1.ID: "NO", m2.ID: "YES", m3.ID: "YES"}) // 0
	submit("0xb", map[string]string{m1.ID: "YES", m2.ID: "NO", m3.ID: "YES"}) // 2
	submit("0xc", map[string]string{m1.ID: "YES", m2.ID: "YES"})              // 1
	submit("0xd", map[string]string{m1.ID: "YES"})                            // 1

	resolved := map[string]string{m1.ID: "YES", m2.ID: "NO"}
	res, err := tr.Complete("0xhost", resolved, time.Now())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	wantWinners := []string{"0xb", "0xc", "0xd"}
	if len(res.Winners) != len(wantWinners) {
		t.Fatalf("Winners = %v, want %v", res.Winners, wantWinners)
	}
	for i, w := range wantWinners {
		if res.Winners[i] != w {
			t.Errorf("Winners[%d] = %s, want %s", i, res.Winners[i], w)
		}
	}

	wantPrize := map[string]int64{"0xb": 500, "0xc": 300, "0xd": 200}
	for addr, want := range wantPrize {
		if !res.PrizeDistribution[addr].Equal(decimal.NewFromInt(want)) {
			t.Errorf("prize[%s] = %s, want %d", addr, res.PrizeDistribution[addr], want)
		}
	}
	if _, ok := res.PrizeDistribution["0xa"]; ok {
		t.Error("fourth place should not receive a prize")
	}
	if res.Scores["0xa"] != 0 || res.Scores["0xb"] != 2 {
		t.Errorf("Scores = %v", res.Scores)
	}
	if tr.Status != domain.TournamentCompleted || tr.CompletedAt == nil {
		t.Errorf("Status = %s, CompletedAt = %v", tr.Status, tr.CompletedAt)
	}

	if _, err := tr.Complete("0xhost", resolved, time.Now()); !errors.Is(err, domain.ErrTournamentCompleted) {
		t.Errorf("second Complete() error = %v, want ErrTournamentCompleted", err)
	}
}

func TestComplete_FewerThanThreeParticipants(t *testing.T) {
	tr := newTestTournament(t, []string{"m1"}, 10)
	mustJoin(t, tr, "0xa", "0xb")

	res, err := tr.Complete("0xhost", nil, time.Now())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(res.Winners) != 2 {
		t.Fatalf("Winners = %v, want two", res.Winners)
	}
	// tie keeps join order
	if res.Winners[0] != "0xa" || res.Winners[1] != "0xb" {
		t.Errorf("Winners = %v, want [0xa 0xb]", res.Winners)
	}
	total := decimal.Zero
	for _, p := range res.PrizeDistribution {
		total = total.Add(p)
	}
	if !total.Equal(decimal.NewFromInt(800)) {
		t.Errorf("distributed = %s, want 800", total)
	}
}

func TestComplete_NonCreator(t *testing.T) {
	tr := newTestTournament(t, []string{"m1"}, 10)
	if _, err := tr.Complete("0xa", nil, time.Now()); !errors.Is(err, domain.ErrNotTournamentCreator) {
		t.Errorf("Complete() error = %v, want ErrNotTournamentCreator", err)
	}
	if tr.Status != domain.TournamentPending {
		t.Errorf("Status = %s, want pending", tr.Status)
	}
}

func TestRanking_Order(t *testing.T) {
	tr := newTestTournament(t, []string{"m1"}, 10)
	mustJoin(t, tr, "0xa", "0xb", "0xc")
	tr.ParticipantScores = map[string]int{"0xa": 1, "0xb": 3, "0xc": 1}

	got := tr.Ranking()
	want := []string{"0xb", "0xa", "0xc"}
	for i, w := range want {
		if got[i].Participant != w || got[i].Rank != i+1 {
			t.Errorf("Ranking()[%d] = %+v, want %s at rank %d", i, got[i], w, i+1)
		}
	}
}

func TestTournament_CloneIsDeep(t *testing.T) {
	tr := newTestTournament(t, []string{"m1"}, 10)
	mustJoin(t, tr, "0xa")
	tr.Predictions["0xa"] = map[string]string{"m1": "YES"}

	c := tr.Clone()
	c.Predictions["0xa"]["m1"] = "NO"
	c.Participants[0] = "0xz"

	if tr.Predictions["0xa"]["m1"] != "YES" || tr.Participants[0] != "0xa" {
		t.Error("mutating clone leaked into original")
	}
}
