// Package sale assembles the line items of one pending sale before it is
// recorded. A Builder only copies values out of the catalog; it never writes
// back to it.
package sale

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"salonpos/backend/internal/domain"
)

// ServiceLookup resolves a catalog service by id.
type ServiceLookup interface {
	ServiceByID(id string) (domain.Service, bool)
}

// Builder is not safe for concurrent use; callers hold one per operator.
type Builder struct {
	catalog ServiceLookup
	lines   []domain.SaleLine
	seq     int
}

func NewBuilder(catalog ServiceLookup) *Builder {
	return &Builder{catalog: catalog}
}

// SetCatalog swaps the lookup used by SetService, e.g. after the catalog was
// refreshed. Lines already priced keep their snapshot.
func (b *Builder) SetCatalog(catalog ServiceLookup) {
	b.catalog = catalog
}

func (b *Builder) AddLine() domain.SaleLine {
	b.seq++
	line := domain.SaleLine{
		ID:    fmt.Sprintf("line-%d", b.seq),
		Price: decimal.Zero,
		Tip:   decimal.Zero,
	}
	b.lines = append(b.lines, line)
	return line
}

// SetCategory invalidates whatever service was chosen on the line.
func (b *Builder) SetCategory(lineID string, categoryID string) bool {
	return b.update(lineID, func(line *domain.SaleLine) {
		line.CategoryID = categoryID
		line.ServiceName = ""
		line.ServiceID = ""
		line.Price = decimal.Zero
	})
}

// SetService copies name and price from the catalog. Unknown ids leave the
// line untouched.
func (b *Builder) SetService(lineID string, serviceID string) bool {
	if b.catalog == nil {
		return false
	}
	svc, ok := b.catalog.ServiceByID(serviceID)
	if !ok {
		return false
	}
	return b.update(lineID, func(line *domain.SaleLine) {
		line.ServiceName = svc.Name
		line.ServiceID = svc.ID
		line.Price = svc.Price
	})
}

func (b *Builder) SetStaff(lineID string, staffID string) bool {
	return b.update(lineID, func(line *domain.SaleLine) {
		line.StaffID = staffID
	})
}

func (b *Builder) SetPrice(lineID string, raw string) bool {
	return b.update(lineID, func(line *domain.SaleLine) {
		line.Price = ParseAmount(raw)
	})
}

func (b *Builder) SetTip(lineID string, raw string) bool {
	return b.update(lineID, func(line *domain.SaleLine) {
		line.Tip = ParseAmount(raw)
	})
}

func (b *Builder) RemoveLine(lineID string) bool {
	for i := range b.lines {
		if b.lines[i].ID == lineID {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Total is the sum of price plus tip over every line.
func (b *Builder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.lines {
		total = total.Add(line.Price).Add(line.Tip)
	}
	return total
}

func (b *Builder) TotalTips() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.lines {
		total = total.Add(line.Tip)
	}
	return total
}

func (b *Builder) Lines() []domain.SaleLine {
	out := make([]domain.SaleLine, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *Builder) Len() int {
	return len(b.lines)
}

func (b *Builder) Line(lineID string) (domain.SaleLine, bool) {
	for _, line := range b.lines {
		if line.ID == lineID {
			return line, true
		}
	}
	return domain.SaleLine{}, false
}

// Reset drops every line. Transient ids keep increasing so a stale id from a
// previous sale can never address a new line.
func (b *Builder) Reset() {
	b.lines = nil
}

func (b *Builder) Draft() domain.SaleDraft {
	return domain.SaleDraft{
		Lines:     b.Lines(),
		Total:     b.Total(),
		TotalTips: b.TotalTips(),
	}
}

func (b *Builder) update(lineID string, apply func(line *domain.SaleLine)) bool {
	for i := range b.lines {
		if b.lines[i].ID == lineID {
			apply(&b.lines[i])
			return true
		}
	}
	return false
}

// MaxAmount is the exclusive upper bound of any stored amount. Amount
// columns are NUMERIC(12,2).
var MaxAmount = decimal.New(1, 10)

// WithinLimit reports whether v fits an amount column.
func WithinLimit(v decimal.Decimal) bool {
	return v.LessThan(MaxAmount)
}

// ParseAmount coerces user input to a non-negative amount rounded to cents.
// Empty, malformed, negative and out-of-range input all yield zero.
func ParseAmount(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	value = value.Round(2)
	if !WithinLimit(value) {
		return decimal.Zero
	}
	return value
}
