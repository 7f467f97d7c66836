package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/events"
	"salonpos/backend/internal/notify"
	"salonpos/backend/internal/sale"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/xid"
)

// draftSession is the pending sale of one operator.
type draftSession struct {
	mu      sync.Mutex
	builder *sale.Builder
}

func (s *Service) session(actorID string) *draftSession {
	s.draftsMu.Lock()
	defer s.draftsMu.Unlock()

	d, ok := s.drafts[actorID]
	if !ok {
		d = &draftSession{builder: sale.NewBuilder(nil)}
		s.drafts[actorID] = d
	}
	return d
}

func (s *Service) GetDraft(ctx context.Context) (domain.SaleDraft, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.SaleDraft{}, err
	}
	d := s.session(actor.ID)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.builder.Draft(), nil
}

func (s *Service) AddDraftLine(ctx context.Context) (domain.SaleDraft, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.SaleDraft{}, err
	}
	d := s.session(actor.ID)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.builder.AddLine()
	return d.builder.Draft(), nil
}

// UpdateDraftLine applies the provided fields in the order category, service,
// staff, price, tip, so a price sent together with a service overrides the
// catalog price.
func (s *Service) UpdateDraftLine(ctx context.Context, lineID string, update domain.SaleLineUpdate) (domain.SaleDraft, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.SaleDraft{}, err
	}

	var catalog *domain.Catalog
	if update.ServiceID != nil {
		loaded, err := s.Catalog(ctx)
		if err != nil {
			return domain.SaleDraft{}, err
		}
		catalog = &loaded
	}

	d := s.session(actor.ID)
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.builder.Line(lineID); !ok {
		return domain.SaleDraft{}, fmt.Errorf("line %s: %w", lineID, store.ErrNotFound)
	}
	if catalog != nil {
		d.builder.SetCatalog(*catalog)
	}
	applyLineUpdate(d.builder, lineID, update)
	return d.builder.Draft(), nil
}

func (s *Service) RemoveDraftLine(ctx context.Context, lineID string) (domain.SaleDraft, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.SaleDraft{}, err
	}
	d := s.session(actor.ID)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.builder.RemoveLine(lineID)
	return d.builder.Draft(), nil
}

func (s *Service) DiscardDraft(ctx context.Context) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	d := s.session(actor.ID)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.builder.Reset()
	return nil
}

// CommitDraft records the operator's pending sale. The draft is cleared only
// when the sale was stored; on any failure it stays as it was.
func (s *Service) CommitDraft(ctx context.Context, req domain.CommitDraftRequest) (domain.Transaction, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	d := s.session(actor.ID)
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := s.record(ctx, actor, req.CustomerName, req.CustomerMobile, d.builder)
	if err != nil {
		return domain.Transaction{}, err
	}
	d.builder.Reset()
	return tx, nil
}

// RecordSale records a sale whose lines arrive in one request.
func (s *Service) RecordSale(ctx context.Context, req domain.RecordSaleRequest) (domain.Transaction, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}

	builder := sale.NewBuilder(catalog)
	for _, input := range req.Lines {
		line := builder.AddLine()
		update := domain.SaleLineUpdate{Price: input.Price, Tip: input.Tip}
		if input.CategoryID != "" {
			update.CategoryID = &input.CategoryID
		}
		if input.ServiceID != "" {
			update.ServiceID = &input.ServiceID
		}
		if input.StaffID != "" {
			update.StaffID = &input.StaffID
		}
		applyLineUpdate(builder, line.ID, update)
	}
	return s.record(ctx, actor, req.CustomerName, req.CustomerMobile, builder)
}

func applyLineUpdate(b *sale.Builder, lineID string, update domain.SaleLineUpdate) {
	if update.CategoryID != nil {
		b.SetCategory(lineID, strings.TrimSpace(*update.CategoryID))
	}
	if update.ServiceID != nil {
		b.SetService(lineID, strings.TrimSpace(*update.ServiceID))
	}
	if update.StaffID != nil {
		b.SetStaff(lineID, strings.TrimSpace(*update.StaffID))
	}
	if update.Price != nil {
		b.SetPrice(lineID, string(*update.Price))
	}
	if update.Tip != nil {
		b.SetTip(lineID, string(*update.Tip))
	}
}

// record validates the builder's lines, then stores header and items as one
// unit. Follow-up work (audit, event, receipt) never fails the sale.
func (s *Service) record(ctx context.Context, actor domain.Actor, customerName string, customerMobile string, b *sale.Builder) (domain.Transaction, error) {
	customerName = strings.TrimSpace(customerName)
	customerMobile = strings.TrimSpace(customerMobile)
	if customerName == "" || customerMobile == "" {
		return domain.Transaction{}, invalidf("please fill in all customer details")
	}
	lines := b.Lines()
	if len(lines) == 0 {
		return domain.Transaction{}, invalidf("add at least one service to the sale")
	}
	if err := s.validateLines(ctx, lines); err != nil {
		return domain.Transaction{}, err
	}
	if !sale.WithinLimit(b.Total()) {
		return domain.Transaction{}, invalidf("sale total is too large")
	}

	now := s.now().UTC()
	tx := domain.Transaction{
		ID:             xid.New(),
		CustomerName:   customerName,
		CustomerMobile: customerMobile,
		TotalAmount:    b.Total(),
		TotalTips:      b.TotalTips(),
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		Items:          make([]domain.TransactionItem, 0, len(lines)),
	}
	for _, line := range lines {
		tx.Items = append(tx.Items, domain.TransactionItem{
			ID:            xid.New(),
			TransactionID: tx.ID,
			ServiceID:     line.ServiceID,
			StaffID:       line.StaffID,
			Price:         line.Price,
			Tip:           line.Tip,
			CreatedAt:     now,
		})
	}

	created, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return domain.Transaction{}, invalidf("sale references a service that no longer exists")
		}
		return domain.Transaction{}, fmt.Errorf("record sale: %w", err)
	}

	s.logAudit(ctx, "sale_record", "transaction", created.ID, fmt.Sprintf("items=%d,total=%s,tips=%s", len(created.Items), created.TotalAmount.StringFixed(2), created.TotalTips.StringFixed(2)))
	if err := s.publisher.Publish(ctx, events.KeySaleRecorded, events.SaleRecorded{
		TransactionID: created.ID,
		CustomerName:  created.CustomerName,
		TotalAmount:   created.TotalAmount,
		TotalTips:     created.TotalTips,
		ItemCount:     len(created.Items),
		RecordedBy:    created.CreatedBy,
		RecordedAt:    created.CreatedAt,
	}); err != nil {
		log.Printf("[service] WARN: failed to publish %s for %s: %v", events.KeySaleRecorded, created.ID, err)
	}
	s.sendReceipt(ctx, *created)
	return *created, nil
}

// sendReceipt delivers the SMS receipt in the background so a slow provider
// never delays the response of an already stored sale.
func (s *Service) sendReceipt(ctx context.Context, tx domain.Transaction) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiptTimeout)
		defer cancel()

		if err := s.receipts.SendReceipt(sendCtx, tx); err != nil && !errors.Is(err, notify.ErrUnreachableNumber) {
			log.Printf("[service] WARN: failed to send receipt for %s: %v", tx.ID, err)
		}
	}()
}

// WaitForReceipts blocks until background receipts finish or ctx ends.
func (s *Service) WaitForReceipts(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) validateLines(ctx context.Context, lines []domain.SaleLine) error {
	services := make(map[string]bool)
	staff := make(map[string]int)
	for i, line := range lines {
		n := i + 1
		if line.ServiceID == "" {
			return invalidf("line %d: choose a service", n)
		}
		if line.StaffID == "" {
			return invalidf("line %d: choose a staff member", n)
		}
		if line.Price.IsNegative() || line.Tip.IsNegative() {
			return invalidf("line %d: amounts must not be negative", n)
		}
		if !sale.WithinLimit(line.Price) || !sale.WithinLimit(line.Tip) {
			return invalidf("line %d: amount is too large", n)
		}

		if _, seen := services[line.ServiceID]; !seen {
			_, err := s.repo.GetService(ctx, line.ServiceID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			services[line.ServiceID] = err == nil
		}
		if !services[line.ServiceID] {
			return invalidf("line %d: unknown service", n)
		}

		if _, seen := staff[line.StaffID]; !seen {
			state, err := s.staffEligibility(ctx, line.StaffID)
			if err != nil {
				return err
			}
			staff[line.StaffID] = state
		}
		switch staff[line.StaffID] {
		case staffUnknown:
			return invalidf("line %d: unknown staff member", n)
		case staffIneligible:
			return invalidf("line %d: staff member cannot be credited", n)
		}
	}
	return nil
}

const (
	staffEligible = iota
	staffUnknown
	staffIneligible
)

// staffEligibility applies the directory rule on the write path: only
// approved members with the staff role can be credited with a line.
func (s *Service) staffEligibility(ctx context.Context, staffID string) (int, error) {
	user, err := s.repo.GetUserByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return staffUnknown, nil
		}
		return 0, err
	}
	if user.Role != domain.RoleStaff || user.ApprovalStatus != domain.ApprovalApproved {
		return staffIneligible, nil
	}
	return staffEligible, nil
}
