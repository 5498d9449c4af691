package core

// MonthlySummary is the aggregated view of a user's emissions for a
// month window: grand total, per-activity totals, and per-day totals.
// Map iteration order is unspecified; renderers sort as needed.
type MonthlySummary struct {
	Total      Amount
	ByCategory map[string]Amount
	ByDay      map[string]Amount // keyed by YYYY-MM-DD
}

// Summarize folds a set of emissions into a MonthlySummary. The fold is
// pure: callers are responsible for selecting the date window. For any
// input, the category totals, the daily totals, and Total all sum to
// the same value.
func Summarize(emissions []Emission) MonthlySummary {
	s := MonthlySummary{
		ByCategory: make(map[string]Amount),
		ByDay:      make(map[string]Amount),
	}
	for _, e := range emissions {
		s.Total.Milligrams += e.Amount.Milligrams

		cat := s.ByCategory[e.ActivityType]
		cat.Milligrams += e.Amount.Milligrams
		s.ByCategory[e.ActivityType] = cat

		day := e.Date.ISO()
		d := s.ByDay[day]
		d.Milligrams += e.Amount.Milligrams
		s.ByDay[day] = d
	}
	return s
}

// EvaluateLimit reports whether total breaches the configured limit.
// A nil limit never breaches; a total exactly at the limit does not.
func EvaluateLimit(total Amount, limit *Amount) bool {
	if limit == nil {
		return false
	}
	return total.Milligrams > limit.Milligrams
}
