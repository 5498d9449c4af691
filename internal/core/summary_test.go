package core

import "testing"

func TestSummarizeGroupsByCategoryAndDay(t *testing.T) {
	// Three rows this month, two "car" entries on different days.
	emissions := []Emission{
		{Date: NewDate(2025, 6, 1), ActivityType: "car", Amount: Amount{Milligrams: 10000}},
		{Date: NewDate(2025, 6, 2), ActivityType: "bus", Amount: Amount{Milligrams: 20000}},
		{Date: NewDate(2025, 6, 3), ActivityType: "car", Amount: Amount{Milligrams: 30000}},
	}

	s := Summarize(emissions)

	if s.Total.Milligrams != 60000 {
		t.Fatalf("expected total 60000, got %d", s.Total.Milligrams)
	}
	if got := s.ByCategory["car"].Milligrams; got != 40000 {
		t.Fatalf("expected car 40000, got %d", got)
	}
	if got := s.ByCategory["bus"].Milligrams; got != 20000 {
		t.Fatalf("expected bus 20000, got %d", got)
	}
	if len(s.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(s.ByCategory))
	}
	if got := s.ByDay["2025-06-01"].Milligrams; got != 10000 {
		t.Fatalf("expected 10000 on 2025-06-01, got %d", got)
	}
}

func TestSummarizeConsistency(t *testing.T) {
	// Same day and category repeated: category, day, and grand totals
	// must agree for any input set.
	emissions := []Emission{
		{Date: NewDate(2025, 2, 10), ActivityType: "electricity", Amount: Amount{Milligrams: 1}},
		{Date: NewDate(2025, 2, 10), ActivityType: "electricity", Amount: Amount{Milligrams: 2}},
		{Date: NewDate(2025, 2, 11), ActivityType: "flight", Amount: Amount{Milligrams: 999999}},
		{Date: NewDate(2025, 2, 12), ActivityType: "car", Amount: Amount{Milligrams: 0}},
	}

	s := Summarize(emissions)

	var byCat, byDay int64
	for _, a := range s.ByCategory {
		byCat += a.Milligrams
	}
	for _, a := range s.ByDay {
		byDay += a.Milligrams
	}
	if byCat != s.Total.Milligrams || byDay != s.Total.Milligrams {
		t.Fatalf("inconsistent totals: cat=%d day=%d total=%d", byCat, byDay, s.Total.Milligrams)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total.Milligrams != 0 || len(s.ByCategory) != 0 || len(s.ByDay) != 0 {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestEvaluateLimit(t *testing.T) {
	cases := []struct {
		total int64
		limit *Amount
		want  bool
	}{
		{100000, nil, false},
		{100000, &Amount{Milligrams: 100000}, false}, // equal is not a breach
		{100001, &Amount{Milligrams: 100000}, true},  // strictly greater breaches
		{99999, &Amount{Milligrams: 100000}, false},
		{0, &Amount{Milligrams: 0}, false},
		{1, &Amount{Milligrams: 0}, true},
	}
	for i, tc := range cases {
		if got := EvaluateLimit(Amount{Milligrams: tc.total}, tc.limit); got != tc.want {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, got)
		}
	}
}

func TestEvaluateLimitSubGramExcess(t *testing.T) {
	// A tenth-of-a-gram excess over the limit must still breach: strict
	// comparison holds down to the smallest parsed digit.
	total, err := ParseAmount("100.0001")
	if err != nil {
		t.Fatalf("parse total: %v", err)
	}
	limit, err := ParseAmount("100")
	if err != nil {
		t.Fatalf("parse limit: %v", err)
	}
	if !EvaluateLimit(total, &limit) {
		t.Fatalf("expected breach: total=%d mg limit=%d mg", total.Milligrams, limit.Milligrams)
	}
	if EvaluateLimit(limit, &limit) {
		t.Fatal("equal total must not breach")
	}
}
