package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/events"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/store/memory"
)

type publisherStub struct {
	mu   sync.Mutex
	keys []string
}

func (p *publisherStub) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *publisherStub) Close() error { return nil }

type receiptStub struct {
	mu      sync.Mutex
	sent    []string
	err     error
	release chan struct{}
	started chan struct{}
	hadDeadline bool
}

func (r *receiptStub) SendReceipt(ctx context.Context, tx domain.Transaction) error {
	if r.started != nil {
		close(r.started)
	}
	if r.release != nil {
		<-r.release
	}
	_, hasDeadline := ctx.Deadline()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, tx.ID)
	r.hadDeadline = hasDeadline
	return r.err
}

func (r *receiptStub) sentIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func waitForReceipts(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.WaitForReceipts(ctx); err != nil {
		t.Fatalf("receipts still pending: %v", err)
	}
}

// failingRepo breaks selected repository calls on top of a working store.
type failingRepo struct {
	store.Repository
	failStaffList bool
	failCreateTx  bool
}

func (f *failingRepo) ListStaff(ctx context.Context, filter store.StaffFilter) ([]domain.StaffMember, error) {
	if f.failStaffList {
		return nil, errors.New("connection reset")
	}
	return f.Repository.ListStaff(ctx, filter)
}

func (f *failingRepo) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if f.failCreateTx {
		return nil, errors.New("connection reset")
	}
	return f.Repository.CreateTransaction(ctx, tx)
}

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	return New(repo, Options{}), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{ID: memory.SeedAdminID, Email: "admin@salon.local", Role: domain.RoleAdmin})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{ID: memory.SeedStaffJaneID, Email: "jane@salon.local", Role: domain.RoleStaff})
}

func amount(v string) *domain.AmountInput {
	a := domain.AmountInput(v)
	return &a
}

func strPtr(v string) *string { return &v }

func sampleSale() domain.RecordSaleRequest {
	return domain.RecordSaleRequest{
		CustomerName:   "Ann",
		CustomerMobile: "+15550100100",
		Lines: []domain.SaleLineInput{
			{CategoryID: memory.SeedCategoryHair, ServiceID: memory.SeedServiceCut, StaffID: memory.SeedStaffJaneID, Tip: amount("5")},
			{CategoryID: memory.SeedCategoryNail, ServiceID: memory.SeedServiceMani, StaffID: memory.SeedStaffSamID},
		},
	}
}

func TestRecordSaleTotalsMatchOnReread(t *testing.T) {
	pub := &publisherStub{}
	receipts := &receiptStub{}
	repo := memory.NewSeeded()
	svc := New(repo, Options{Publisher: pub, Receipts: receipts})

	tx, err := svc.RecordSale(staffCtx(), sampleSale())
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !tx.TotalAmount.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected total 85, got %s", tx.TotalAmount)
	}
	if !tx.TotalTips.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected tips 5, got %s", tx.TotalTips)
	}
	if tx.CreatedBy != memory.SeedStaffJaneID {
		t.Fatalf("expected created_by to be the operator, got %s", tx.CreatedBy)
	}

	again, err := svc.GetTransaction(staffCtx(), tx.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if !again.TotalAmount.Equal(tx.TotalAmount) || len(again.Items) != 2 {
		t.Fatalf("re-read differs: %+v", again)
	}
	if again.Items[0].ServiceName != "Haircut" || again.Items[0].StaffName != "Jane Doe" {
		t.Fatalf("expected joined names, got %+v", again.Items[0])
	}

	if len(pub.keys) != 1 || pub.keys[0] != events.KeySaleRecorded {
		t.Fatalf("expected one sale event, got %v", pub.keys)
	}
	waitForReceipts(t, svc)
	if sent := receipts.sentIDs(); len(sent) != 1 || sent[0] != tx.ID {
		t.Fatalf("expected one receipt, got %v", sent)
	}
}

func TestRecordSaleSurvivesReceiptFailure(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(repo, Options{Receipts: &receiptStub{err: errors.New("twilio down")}})

	if _, err := svc.RecordSale(staffCtx(), sampleSale()); err != nil {
		t.Fatalf("receipt failure must not fail the sale: %v", err)
	}
	waitForReceipts(t, svc)
}

func TestRecordSaleDoesNotWaitForReceipt(t *testing.T) {
	receipts := &receiptStub{release: make(chan struct{}), started: make(chan struct{})}
	svc := New(memory.NewSeeded(), Options{Receipts: receipts})

	done := make(chan error, 1)
	go func() {
		_, err := svc.RecordSale(staffCtx(), sampleSale())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("record sale: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sale blocked on a slow receipt provider")
	}

	<-receipts.started
	close(receipts.release)
	waitForReceipts(t, svc)
	if len(receipts.sentIDs()) != 1 {
		t.Fatalf("expected the receipt to be delivered in the background")
	}
	receipts.mu.Lock()
	defer receipts.mu.Unlock()
	if !receipts.hadDeadline {
		t.Fatalf("expected the receipt to run under a deadline")
	}
}

func TestRecordSaleValidationWritesNothing(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(req *domain.RecordSaleRequest)
	}{
		{"blank customer", func(req *domain.RecordSaleRequest) { req.CustomerName = "  " }},
		{"blank mobile", func(req *domain.RecordSaleRequest) { req.CustomerMobile = "" }},
		{"no lines", func(req *domain.RecordSaleRequest) { req.Lines = nil }},
		{"missing staff", func(req *domain.RecordSaleRequest) { req.Lines[1].StaffID = "" }},
		{"unknown service", func(req *domain.RecordSaleRequest) { req.Lines[0].ServiceID = "svc-missing" }},
		{"unknown staff", func(req *domain.RecordSaleRequest) { req.Lines[0].StaffID = "staff-missing" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, repo := newTestService()
			req := sampleSale()
			c.mutate(&req)

			_, err := svc.RecordSale(staffCtx(), req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			txs, _ := repo.ListTransactions(context.Background(), time.Time{}, time.Now().Add(time.Hour))
			if len(txs) != 0 {
				t.Fatalf("expected no transactions, got %d", len(txs))
			}
		})
	}
}

func TestRecordSaleCreditsOnlyApprovedStaff(t *testing.T) {
	for _, staffID := range []string{memory.SeedPendingID, memory.SeedAdminID} {
		svc, repo := newTestService()
		req := sampleSale()
		req.Lines[1].StaffID = staffID

		_, err := svc.RecordSale(staffCtx(), req)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || !strings.Contains(vErr.Message, "cannot be credited") {
			t.Fatalf("staff %s: expected ineligible staff error, got %v", staffID, err)
		}
		txs, _ := repo.ListTransactions(context.Background(), time.Time{}, time.Now().Add(time.Hour))
		if len(txs) != 0 {
			t.Fatalf("staff %s: expected nothing recorded, got %d", staffID, len(txs))
		}
	}

	svc, _ := newTestService()
	if _, err := svc.UpdateApproval(adminCtx(), memory.SeedStaffSamID, domain.ApprovalRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.RecordSale(staffCtx(), sampleSale()); err == nil {
		t.Fatalf("expected rejected staff to be refused")
	}
}

func TestRecordSaleBoundsAmounts(t *testing.T) {
	svc, _ := newTestService()
	req := sampleSale()
	req.Lines[0].Tip = amount("1e20")

	tx, err := svc.RecordSale(staffCtx(), req)
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !tx.TotalTips.IsZero() || !tx.TotalAmount.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("expected out-of-range tip to count as zero, got total=%s tips=%s", tx.TotalAmount, tx.TotalTips)
	}

	req = sampleSale()
	req.Lines = nil
	for i := 0; i < 2; i++ {
		req.Lines = append(req.Lines, domain.SaleLineInput{CategoryID: memory.SeedCategoryHair, ServiceID: memory.SeedServiceCut, StaffID: memory.SeedStaffJaneID, Price: amount("9000000000")})
	}
	_, err = svc.RecordSale(staffCtx(), req)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected oversized total to be rejected, got %v", err)
	}

	_, err = svc.CreateService(adminCtx(), domain.ServiceCreateRequest{Name: "Gold Facial", Price: decimal.RequireFromString("1e10"), CategoryID: memory.SeedCategoryHair})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected oversized price to be rejected, got %v", err)
	}
}

func TestRecordSaleCoercesInvalidAmounts(t *testing.T) {
	svc, _ := newTestService()
	req := sampleSale()
	req.Lines[0].Price = amount("abc")
	req.Lines[0].Tip = amount("-4")

	tx, err := svc.RecordSale(staffCtx(), req)
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !tx.TotalAmount.Equal(decimal.RequireFromString("30")) || !tx.TotalTips.IsZero() {
		t.Fatalf("expected coerced amounts to count as zero, got total=%s tips=%s", tx.TotalAmount, tx.TotalTips)
	}
}

func TestDraftCommitResetsOnlyOnSuccess(t *testing.T) {
	repo := &failingRepo{Repository: memory.NewSeeded(), failCreateTx: true}
	svc := New(repo, Options{})
	ctx := staffCtx()

	draft, err := svc.AddDraftLine(ctx)
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	lineID := draft.Lines[0].ID
	draft, err = svc.UpdateDraftLine(ctx, lineID, domain.SaleLineUpdate{
		CategoryID: strPtr(memory.SeedCategoryHair),
		ServiceID:  strPtr(memory.SeedServiceCut),
		StaffID:    strPtr(memory.SeedStaffJaneID),
		Tip:        amount("5"),
	})
	if err != nil {
		t.Fatalf("update line: %v", err)
	}
	if !draft.Total.Equal(decimal.RequireFromString("55")) {
		t.Fatalf("expected draft total 55, got %s", draft.Total)
	}

	req := domain.CommitDraftRequest{CustomerName: "Ann", CustomerMobile: "555"}
	if _, err := svc.CommitDraft(ctx, req); err == nil {
		t.Fatalf("expected commit to fail")
	}
	draft, _ = svc.GetDraft(ctx)
	if len(draft.Lines) != 1 {
		t.Fatalf("failed commit must keep the draft, got %d lines", len(draft.Lines))
	}

	repo.failCreateTx = false
	tx, err := svc.CommitDraft(ctx, req)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !tx.TotalAmount.Equal(decimal.RequireFromString("55")) {
		t.Fatalf("expected committed total 55, got %s", tx.TotalAmount)
	}
	draft, _ = svc.GetDraft(ctx)
	if len(draft.Lines) != 0 || !draft.Total.IsZero() {
		t.Fatalf("expected empty draft after commit, got %+v", draft)
	}
}

func TestDraftsAreScopedPerOperator(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.AddDraftLine(staffCtx()); err != nil {
		t.Fatalf("add line: %v", err)
	}
	other, err := svc.GetDraft(adminCtx())
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if len(other.Lines) != 0 {
		t.Fatalf("expected another operator's draft to be empty, got %d lines", len(other.Lines))
	}
	if _, err := svc.GetDraft(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated draft access to fail, got %v", err)
	}
}

func TestUpdateDraftLineUnknownLine(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.UpdateDraftLine(staffCtx(), "line-404", domain.SaleLineUpdate{StaffID: strPtr(memory.SeedStaffJaneID)})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDashboardAggregatesStaffAndFallsBackToUnknown(t *testing.T) {
	svc, repo := newTestService()
	fixed := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	for i := 0; i < 2; i++ {
		if _, err := svc.RecordSale(staffCtx(), sampleSale()); err != nil {
			t.Fatalf("record sale: %v", err)
		}
	}
	if err := repo.DeleteUser(context.Background(), memory.SeedStaffSamID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	dash, err := svc.Dashboard(staffCtx(), "", "")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.From != "2026-10-18" || dash.To != "2026-10-18" {
		t.Fatalf("expected today's range, got %s..%s", dash.From, dash.To)
	}
	if !dash.TotalSales.Equal(decimal.RequireFromString("170")) || dash.TransactionCount != 2 {
		t.Fatalf("unexpected totals: %s over %d", dash.TotalSales, dash.TransactionCount)
	}
	if len(dash.StaffPerformance) != 2 {
		t.Fatalf("expected 2 staff rows, got %+v", dash.StaffPerformance)
	}
	jane, sam := dash.StaffPerformance[0], dash.StaffPerformance[1]
	if jane.Name != "Jane Doe" || jane.ServiceCount != 2 || !jane.TotalTips.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("unexpected row for Jane: %+v", jane)
	}
	if sam.Name != "Unknown" || sam.ServiceCount != 2 {
		t.Fatalf("expected removed staff to be reported as Unknown, got %+v", sam)
	}
	if dash.TopTipEarners[0].StaffID != memory.SeedStaffJaneID {
		t.Fatalf("expected Jane to lead tips, got %+v", dash.TopTipEarners)
	}

	dash, err = svc.Dashboard(staffCtx(), "2026-10-17", "2026-10-17")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !dash.TotalSales.IsZero() || dash.TransactionCount != 0 || len(dash.StaffPerformance) != 0 {
		t.Fatalf("expected an empty day, got %+v", dash)
	}

	if _, err := svc.Dashboard(staffCtx(), "18-10-2026", ""); err == nil {
		t.Fatalf("expected malformed date to be rejected")
	}
}

func TestDailySummaryNamesLeaders(t *testing.T) {
	svc, _ := newTestService()
	fixed := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	if _, err := svc.RecordSale(staffCtx(), sampleSale()); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	summary, err := svc.DailySummary(context.Background(), fixed)
	if err != nil {
		t.Fatalf("daily summary: %v", err)
	}
	if summary.Date != "2026-10-18" || summary.TransactionCount != 1 || summary.TopTipEarner != "Jane Doe" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestStaffDirectoryListsApprovedStaffOnly(t *testing.T) {
	svc, _ := newTestService()
	members, warning := svc.StaffDirectory(context.Background())
	if warning != "" {
		t.Fatalf("unexpected warning %q", warning)
	}
	if len(members) != 2 || members[0].ID != memory.SeedStaffJaneID || members[1].ID != memory.SeedStaffSamID {
		t.Fatalf("expected Jane and Sam, got %+v", members)
	}
}

func TestStaffDirectoryDegradesOnFailure(t *testing.T) {
	svc := New(&failingRepo{Repository: memory.NewSeeded(), failStaffList: true}, Options{})
	members, warning := svc.StaffDirectory(context.Background())
	if members == nil || len(members) != 0 {
		t.Fatalf("expected an empty list, got %+v", members)
	}
	if warning == "" {
		t.Fatalf("expected a warning")
	}
}

func TestAuthenticateHonoursApproval(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, "jane@salon.local", "staff123"); err != nil {
		t.Fatalf("expected approved login, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "jane@salon.local", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "pat@salon.local", "staff123"); !errors.Is(err, ErrPendingApproval) {
		t.Fatalf("expected pending approval, got %v", err)
	}
	if _, err := svc.UpdateApproval(adminCtx(), memory.SeedPendingID, domain.ApprovalRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "pat@salon.local", "staff123"); !errors.Is(err, ErrAccountRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
}

func TestSignupCreatesPendingAccount(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	member, err := svc.Signup(ctx, domain.SignupRequest{Email: " New@Salon.Local ", Password: "secret1", FullName: "New Hire"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if member.Email != "new@salon.local" || member.ApprovalStatus != domain.ApprovalPending || member.Role != domain.RoleStaff {
		t.Fatalf("unexpected member: %+v", member)
	}
	_, err = svc.Signup(ctx, domain.SignupRequest{Email: "new@salon.local", Password: "secret1", FullName: "Again"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate email conflict, got %v", err)
	}
	if err.Error() != "email is already registered" {
		t.Fatalf("unexpected conflict message %q", err.Error())
	}
	if _, err := svc.Authenticate(ctx, "new@salon.local", "secret1"); !errors.Is(err, ErrPendingApproval) {
		t.Fatalf("expected pending approval, got %v", err)
	}
}

func TestManageStaffAddAndRemove(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	resp, err := svc.ManageStaff(ctx, domain.ManageStaffRequest{Action: "add", Email: "lee@salon.local", FullName: "Lee"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if resp.Message == "" {
		t.Fatalf("expected a message")
	}
	added, err := repo.GetUserByEmail(context.Background(), "lee@salon.local")
	if err != nil {
		t.Fatalf("provisioned account missing: %v", err)
	}
	if added.ApprovalStatus != domain.ApprovalApproved || added.Role != domain.RoleStaff || !isPasswordHash(added.PasswordHash) {
		t.Fatalf("unexpected provisioned account: %+v", added.StaffMember)
	}

	if _, err := svc.ManageStaff(ctx, domain.ManageStaffRequest{Action: "remove", UserID: added.ID}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := repo.GetUserByID(context.Background(), added.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected removed account to be gone, got %v", err)
	}

	if _, err := svc.ManageStaff(ctx, domain.ManageStaffRequest{Action: "remove", UserID: memory.SeedAdminID}); err == nil {
		t.Fatalf("expected self removal to fail")
	}
	if _, err := svc.ManageStaff(ctx, domain.ManageStaffRequest{Action: "add", Email: "not-an-email"}); err == nil {
		t.Fatalf("expected malformed email to fail")
	}
	if _, err := svc.ManageStaff(ctx, domain.ManageStaffRequest{Action: "promote"}); err == nil {
		t.Fatalf("expected unknown action to fail")
	}
}

func TestManageStaffRereadsCallerRole(t *testing.T) {
	svc, _ := newTestService()
	// Jane claims admin in the context but the store says staff.
	ctx := WithActor(context.Background(), domain.Actor{ID: memory.SeedStaffJaneID, Role: domain.RoleAdmin})
	_, err := svc.ManageStaff(ctx, domain.ManageStaffRequest{Action: "add", Email: "x@salon.local"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCatalogWritesRequireAdmin(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.CreateCategory(staffCtx(), domain.CategoryCreateRequest{Name: "Spa"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.CreateCategory(adminCtx(), domain.CategoryCreateRequest{Name: "  "}); err == nil {
		t.Fatalf("expected blank name to fail")
	}
	created, err := svc.CreateCategory(adminCtx(), domain.CategoryCreateRequest{Name: "Spa"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := svc.CreateCategory(adminCtx(), domain.CategoryCreateRequest{Name: "spa"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate category conflict, got %v", err)
	}
	categories, _ := svc.ListCategories(context.Background())
	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(categories))
	}
	if err := svc.DeleteCategory(adminCtx(), created.ID); err != nil {
		t.Fatalf("delete empty category: %v", err)
	}
}

func TestDeletesRejectedWhileReferenced(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.DeleteCategory(adminCtx(), memory.SeedCategoryHair); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting category with services, got %v", err)
	}
	if _, err := svc.RecordSale(staffCtx(), sampleSale()); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if err := svc.DeleteService(adminCtx(), memory.SeedServiceCut); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict deleting sold service, got %v", err)
	}
	if err := svc.DeleteService(adminCtx(), memory.SeedServiceColor); err != nil {
		t.Fatalf("delete unsold service: %v", err)
	}
}

func TestUpdateServiceIsPartial(t *testing.T) {
	svc, _ := newTestService()
	price := decimal.RequireFromString("55.5")
	updated, err := svc.UpdateService(adminCtx(), memory.SeedServiceCut, domain.ServiceUpdateRequest{Price: &price})
	if err != nil {
		t.Fatalf("update service: %v", err)
	}
	if updated.Name != "Haircut" || !updated.Price.Equal(price) || updated.CategoryName != "Hair" {
		t.Fatalf("unexpected service: %+v", updated)
	}
	negative := decimal.RequireFromString("-1")
	if _, err := svc.UpdateService(adminCtx(), memory.SeedServiceCut, domain.ServiceUpdateRequest{Price: &negative}); err == nil {
		t.Fatalf("expected negative price to fail")
	}
}

func TestGroupedServices(t *testing.T) {
	svc, _ := newTestService()
	groups, err := svc.GroupedServices(context.Background())
	if err != nil {
		t.Fatalf("grouped services: %v", err)
	}
	if len(groups) != 2 || groups[0].Category != "Hair" || len(groups[0].Services) != 2 || groups[1].Category != "Nails" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
}
