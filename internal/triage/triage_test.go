package triage

import (
	"math/rand"
	"testing"
	"time"

	"carebridge/internal/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func req(id string, offset time.Duration, priority bool, status model.Status) model.Request {
	return model.Request{
		ID:        id,
		UserID:    "owner-" + id,
		Status:    status,
		Priority:  priority,
		CreatedAt: t0.Add(offset),
	}
}

func ids(requests []model.Request) []string {
	out := make([]string, len(requests))
	for i, r := range requests {
		out[i] = r.ID
	}
	return out
}

func assertOrder(t *testing.T, got []model.Request, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, gotIDs)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, gotIDs)
		}
	}
}

func TestDashboardOrder(t *testing.T) {
	r1 := req("r1", 0, false, model.StatusPending)
	r2 := req("r2", time.Minute, true, model.StatusPending)
	r3 := req("r3", 2*time.Minute, false, model.StatusFulfilled)

	assertOrder(t, Dashboard([]model.Request{r1, r2, r3}), "r2", "r1", "r3")
	assertOrder(t, Dashboard([]model.Request{r3, r1, r2}), "r2", "r1", "r3")
}

func TestDashboardTiers(t *testing.T) {
	input := []model.Request{
		req("f-important", 0, true, model.StatusFulfilled),
		req("f-old", time.Second, false, model.StatusFulfilled),
		req("p-new", 5*time.Second, false, model.StatusPending),
		req("p-important-new", 4*time.Second, true, model.StatusPending),
		req("p-old", 2*time.Second, false, model.StatusPending),
		req("p-important-old", 3*time.Second, true, model.StatusPending),
	}
	assertOrder(t, Dashboard(input),
		"p-important-old", "p-important-new", "p-old", "p-new", "f-important", "f-old")
}

func TestSameTimestampFallsBackToID(t *testing.T) {
	input := []model.Request{
		req("c", 0, false, model.StatusPending),
		req("a", 0, false, model.StatusPending),
		req("b", 0, false, model.StatusPending),
	}
	assertOrder(t, Dashboard(input), "a", "b", "c")
	input[0].Priority, input[1].Priority, input[2].Priority = true, true, true
	assertOrder(t, Important(input), "a", "b", "c")
}

func TestDashboardIsDeterministic(t *testing.T) {
	input := []model.Request{
		req("a", 0, false, model.StatusPending),
		req("b", 0, true, model.StatusPending),
		req("c", time.Second, true, model.StatusFulfilled),
		req("d", time.Second, false, model.StatusPending),
		req("e", 0, false, model.StatusFulfilled),
	}
	want := ids(Dashboard(input))
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]model.Request(nil), input...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assertOrder(t, Dashboard(shuffled), want...)
	}
}

func TestImportantAndFulfilledViews(t *testing.T) {
	input := []model.Request{
		req("r1", 3*time.Second, true, model.StatusFulfilled),
		req("r2", 2*time.Second, true, model.StatusPending),
		req("r3", time.Second, false, model.StatusFulfilled),
		req("r4", 0, false, model.StatusPending),
	}
	assertOrder(t, Important(input), "r2", "r1")
	assertOrder(t, Fulfilled(input), "r3", "r1")
}

func TestForRequester(t *testing.T) {
	a1 := req("a1", 0, false, model.StatusFulfilled)
	a2 := req("a2", time.Second, false, model.StatusPending)
	b1 := req("b1", 0, true, model.StatusPending)
	a1.UserID, a2.UserID, b1.UserID = "alice", "alice", "bob"

	assertOrder(t, ForRequester([]model.Request{a1, b1, a2}, "alice"), "a2", "a1")
	assertOrder(t, ForRequester([]model.Request{a1, b1, a2}, "nobody"))
}

func TestViewsDoNotMutateInput(t *testing.T) {
	input := []model.Request{
		req("r2", time.Second, false, model.StatusPending),
		req("r1", 0, false, model.StatusPending),
	}
	_ = Dashboard(input)
	assertOrder(t, input, "r2", "r1")
}
