// Package report computes read-only rollups over recorded sales.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"salonpos/backend/internal/domain"
)

const (
	DefaultTopN  = 5
	UnknownStaff = "Unknown"
	DateLayout   = "2006-01-02"
)

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Range returns the closed interval [StartOfDay(start), EndOfDay(end)].
// Arguments given in the wrong order are swapped.
func Range(start time.Time, end time.Time) (time.Time, time.Time) {
	if StartOfDay(end).Before(StartOfDay(start)) {
		start, end = end, start
	}
	return StartOfDay(start), EndOfDay(end)
}

// ParseRange reads YYYY-MM-DD bounds in loc. Empty bounds default to the day
// of now.
func ParseRange(from string, to string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)
	start, end := today, today
	if from != "" {
		parsed, err := time.ParseInLocation(DateLayout, from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
		if to == "" {
			end = parsed
		}
	}
	if to != "" {
		parsed, err := time.ParseInLocation(DateLayout, to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
		if from == "" {
			start = parsed
		}
	}
	start, end = Range(start, end)
	return start, end, nil
}

func TotalSales(transactions []domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range transactions {
		total = total.Add(tx.TotalAmount)
	}
	return total
}

// StaffName resolves the label used for a credited staff member.
func StaffName(fullName *string, email *string) string {
	if fullName != nil && *fullName != "" {
		return *fullName
	}
	if email != nil && *email != "" {
		return *email
	}
	return UnknownStaff
}

// Performance holds one row per credited staff member in the order each was
// first encountered.
type Performance struct {
	rows []domain.StaffPerformance
}

func Aggregate(items []domain.StaffItem) Performance {
	index := make(map[string]int, len(items))
	rows := make([]domain.StaffPerformance, 0)
	for _, item := range items {
		pos, ok := index[item.StaffID]
		if !ok {
			pos = len(rows)
			index[item.StaffID] = pos
			rows = append(rows, domain.StaffPerformance{
				StaffID:   item.StaffID,
				Name:      StaffName(item.FullName, item.Email),
				TotalTips: decimal.Zero,
			})
		}
		rows[pos].TotalTips = rows[pos].TotalTips.Add(item.Tip)
		rows[pos].ServiceCount++
	}
	return Performance{rows: rows}
}

func (p Performance) Rows() []domain.StaffPerformance {
	out := make([]domain.StaffPerformance, len(p.rows))
	copy(out, p.rows)
	return out
}

func (p Performance) Len() int {
	return len(p.rows)
}

// TopTipEarners orders by total tips, highest first. Ties keep encounter order.
func (p Performance) TopTipEarners(n int) []domain.StaffPerformance {
	return p.top(n, func(a, b domain.StaffPerformance) bool {
		return a.TotalTips.GreaterThan(b.TotalTips)
	})
}

// MostServicesProvided orders by service count, highest first. Ties keep
// encounter order.
func (p Performance) MostServicesProvided(n int) []domain.StaffPerformance {
	return p.top(n, func(a, b domain.StaffPerformance) bool {
		return a.ServiceCount > b.ServiceCount
	})
}

func (p Performance) top(n int, less func(a, b domain.StaffPerformance) bool) []domain.StaffPerformance {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := p.Rows()
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
