package stats

import (
	"github.com/dhcgn/vmsg2csv/model"
)

const (
	CategoryPhone     = "Phone"
	CategoryDirection = "Direction"
	CategoryMonth     = "Month"
)

// Categories lists the breakdown categories in report order.
var Categories = []string{CategoryPhone, CategoryDirection, CategoryMonth}

// Breakdown counts parsed records per phone, direction and month.
type Breakdown struct {
	Total  int
	Counts map[string]map[string]int
}

func NewBreakdown() *Breakdown {
	counts := make(map[string]map[string]int, len(Categories))
	for _, c := range Categories {
		counts[c] = make(map[string]int)
	}
	return &Breakdown{Counts: counts}
}

// Add counts one record. Records without a timestamp are counted under
// "unknown" in the month category.
func (b *Breakdown) Add(rec model.Record) {
	b.Total++
	b.Counts[CategoryPhone][valueOrUnknown(rec.Phone)]++
	b.Counts[CategoryDirection][valueOrUnknown(string(rec.Direction))]++

	month := "unknown"
	if len(rec.Timestamp) >= len("2006-01") {
		month = rec.Timestamp[:len("2006-01")]
	}
	b.Counts[CategoryMonth][month]++
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
