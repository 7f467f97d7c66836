// Package notify sends customer receipts after a sale is recorded.
package notify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"salonpos/backend/internal/domain"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

var ErrUnreachableNumber = errors.New("customer mobile is not a dialable number")

type ReceiptSender interface {
	SendReceipt(ctx context.Context, tx domain.Transaction) error
}

type NoopReceiptSender struct{}

func (NoopReceiptSender) SendReceipt(_ context.Context, _ domain.Transaction) error {
	return nil
}

// NormalizePhone strips common separators and reports whether what is left
// looks like an international number.
func NormalizePhone(phone string) (string, bool) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(strings.TrimSpace(phone))
	if !phonePattern.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// ReceiptMessage renders the SMS body for a recorded sale.
func ReceiptMessage(salonName string, tx domain.Transaction) string {
	if strings.TrimSpace(salonName) == "" {
		salonName = "our salon"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, thank you for visiting %s.\n", strings.TrimSpace(tx.CustomerName), salonName)
	for _, item := range tx.Items {
		name := item.ServiceName
		if name == "" {
			name = "Service"
		}
		fmt.Fprintf(&b, "%s: %s\n", name, item.Price.StringFixed(2))
	}
	if tx.TotalTips.IsPositive() {
		fmt.Fprintf(&b, "Tips: %s\n", tx.TotalTips.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s", tx.TotalAmount.StringFixed(2))
	return b.String()
}
