// Package triage orders requests for the staff views.
//
// Every view is a total order: ties on createdAt fall back to the request id
// so repeated reads of the same data render identically.
package triage

import (
	"cmp"
	"slices"

	"carebridge/internal/model"
)

func statusRank(status model.Status) int {
	if status == model.StatusFulfilled {
		return 1
	}
	return 0
}

func priorityRank(priority bool) int {
	if priority {
		return 0
	}
	return 1
}

func byAge(a, b model.Request) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Compare is the staff dashboard order: pending before fulfilled, important
// before the rest, then oldest first.
func Compare(a, b model.Request) int {
	if c := cmp.Compare(statusRank(a.Status), statusRank(b.Status)); c != 0 {
		return c
	}
	if c := cmp.Compare(priorityRank(a.Priority), priorityRank(b.Priority)); c != 0 {
		return c
	}
	return byAge(a, b)
}

func Dashboard(requests []model.Request) []model.Request {
	out := slices.Clone(requests)
	slices.SortFunc(out, Compare)
	return out
}

func Important(requests []model.Request) []model.Request {
	out := filter(requests, func(r model.Request) bool { return r.Priority })
	slices.SortFunc(out, byAge)
	return out
}

func Fulfilled(requests []model.Request) []model.Request {
	out := filter(requests, func(r model.Request) bool { return r.Status == model.StatusFulfilled })
	slices.SortFunc(out, byAge)
	return out
}

// ForRequester keeps one owner's requests, in dashboard order.
func ForRequester(requests []model.Request, userID string) []model.Request {
	out := filter(requests, func(r model.Request) bool { return r.UserID == userID })
	slices.SortFunc(out, Compare)
	return out
}

func filter(requests []model.Request, keep func(model.Request) bool) []model.Request {
	out := make([]model.Request, 0, len(requests))
	for _, r := range requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
