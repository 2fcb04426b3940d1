package domain

import "math"

// TreatmentStatistics summarises the whole treatments collection.
type TreatmentStatistics struct {
	TotalTreatments             int64                   `json:"totalTreatments"`
	TreatmentsByType            map[TreatmentType]int64 `json:"treatmentsByType"`
	CompletedSessions           int64                   `json:"completedSessions"`
	AverageSessionsPerTreatment float64                 `json:"averageSessionsPerTreatment"`
}

// TypeTally is the per-type aggregate a store returns.
type TypeTally struct {
	Type              TreatmentType
	Count             int64
	CompletedSessions int64
}

// NewTreatmentStatistics folds per-type tallies into the summary. The
// average is rounded to two decimals and is 0 for an empty collection.
func NewTreatmentStatistics(tallies []TypeTally) *TreatmentStatistics {
	stats := &TreatmentStatistics{TreatmentsByType: map[TreatmentType]int64{}}
	for _, t := range tallies {
		stats.TotalTreatments += t.Count
		stats.CompletedSessions += t.CompletedSessions
		stats.TreatmentsByType[t.Type] += t.Count
	}
	if stats.TotalTreatments > 0 {
		avg := float64(stats.CompletedSessions) / float64(stats.TotalTreatments)
		stats.AverageSessionsPerTreatment = math.Round(avg*100) / 100
	}
	return stats
}

// CountCompletedSessions counts sessions that have a date.
func CountCompletedSessions(sessions []Session) int64 {
	var n int64
	for _, s := range sessions {
		if s.Completed() {
			n++
		}
	}
	return n
}
