package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/service"
	"salonpos/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, service.Options{})
	auth := NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, svc, nil)

	return New(svc, auth, "*")
}

func decodeBody[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v (body: %s)", err, res.Body.String())
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeBody[map[string]any](t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestDataRoutesRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/v1/dashboard", "/api/v1/services", "/api/v1/staff/directory", "/api/v1/sales/draft", "/api/v1/transactions"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestRecordSaleEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "jane@salon.local", "staff123")

	res := doRequest(t, api, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"customer_name":   "Alice",
		"customer_mobile": "+15551234567",
		"lines": []map[string]any{
			{"category_id": memory.SeedCategoryHair, "service_id": memory.SeedServiceCut, "staff_id": memory.SeedStaffJaneID, "tip": 5},
			{"category_id": memory.SeedCategoryNail, "service_id": memory.SeedServiceMani, "staff_id": memory.SeedStaffSamID, "tip": "abc"},
		},
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	created := decodeBody[struct {
		Transaction domain.Transaction `json:"transaction"`
	}](t, res).Transaction
	if created.TotalAmount.StringFixed(2) != "85.00" || created.TotalTips.StringFixed(2) != "5.00" {
		t.Fatalf("unexpected totals: amount=%s tips=%s", created.TotalAmount, created.TotalTips)
	}
	if len(created.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(created.Items))
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/transactions/"+created.ID, token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on re-read, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/dashboard", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", res.Code)
	}
	dashboard := decodeBody[domain.Dashboard](t, res)
	if dashboard.TransactionCount != 1 || dashboard.TotalSales.StringFixed(2) != "85.00" {
		t.Fatalf("unexpected dashboard: %+v", dashboard)
	}
	if len(dashboard.TopTipEarners) == 0 || dashboard.TopTipEarners[0].Name != "Jane Doe" {
		t.Fatalf("expected Jane Doe as top tip earner, got %+v", dashboard.TopTipEarners)
	}
}

func TestRecordSaleValidationReturns400(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "jane@salon.local", "staff123")

	res := doRequest(t, api, http.MethodPost, "/api/v1/sales", token, map[string]any{
		"customer_name":   "",
		"customer_mobile": "+15551234567",
		"lines": []map[string]any{
			{"service_id": memory.SeedServiceCut, "staff_id": memory.SeedStaffJaneID},
		},
	})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/transactions", token, nil)
	list := decodeBody[struct {
		Transactions []domain.Transaction `json:"transactions"`
	}](t, res)
	if len(list.Transactions) != 0 {
		t.Fatalf("expected nothing recorded, got %d", len(list.Transactions))
	}
}

func TestDraftFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "jane@salon.local", "staff123")

	res := doRequest(t, api, http.MethodPost, "/api/v1/sales/draft/lines", token, nil)
	if res.Code != http.StatusCreated {
		t.Fatalf("add line: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}
	draft := decodeBody[struct {
		Draft domain.SaleDraft `json:"draft"`
	}](t, res).Draft
	if len(draft.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(draft.Lines))
	}
	lineID := draft.Lines[0].ID

	res = doRequest(t, api, http.MethodPatch, "/api/v1/sales/draft/lines/"+lineID, token, map[string]any{
		"category_id": memory.SeedCategoryHair,
		"service_id":  memory.SeedServiceColor,
		"staff_id":    memory.SeedStaffSamID,
		"tip":         "10",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("update line: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	draft = decodeBody[struct {
		Draft domain.SaleDraft `json:"draft"`
	}](t, res).Draft
	if draft.Total.StringFixed(2) != "130.00" || draft.TotalTips.StringFixed(2) != "10.00" {
		t.Fatalf("unexpected draft totals: %s / %s", draft.Total, draft.TotalTips)
	}

	res = doRequest(t, api, http.MethodPatch, "/api/v1/sales/draft/lines/line-999", token, map[string]any{"tip": 1})
	if res.Code != http.StatusNotFound {
		t.Fatalf("unknown line: expected 404, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/sales/draft/commit", token, map[string]any{"customer_name": "Bob"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("commit without mobile: expected 400, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/sales/draft", token, nil)
	draft = decodeBody[struct {
		Draft domain.SaleDraft `json:"draft"`
	}](t, res).Draft
	if len(draft.Lines) != 1 {
		t.Fatalf("failed commit must keep the draft, got %d lines", len(draft.Lines))
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/sales/draft/commit", token, map[string]any{"customer_name": "Bob", "customer_mobile": "+15550000000"})
	if res.Code != http.StatusCreated {
		t.Fatalf("commit: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/sales/draft", token, nil)
	draft = decodeBody[struct {
		Draft domain.SaleDraft `json:"draft"`
	}](t, res).Draft
	if len(draft.Lines) != 0 || !draft.Total.IsZero() {
		t.Fatalf("expected empty draft after commit, got %+v", draft)
	}
}

func TestDashboardCSVAndBadDate(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "admin@salon.local", "admin123")

	res := doRequest(t, api, http.MethodGet, "/api/v1/dashboard?format=csv", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	if !strings.HasPrefix(res.Body.String(), "section,key,value\n") {
		t.Fatalf("unexpected csv header: %q", res.Body.String())
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/dashboard?from=yesterday", token, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", res.Code)
	}
}

func TestStaffDirectoryListsApprovedStaff(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "sam@salon.local", "staff123")

	res := doRequest(t, api, http.MethodGet, "/api/v1/staff/directory", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody[struct {
		Staff   []domain.StaffMember `json:"staff"`
		Warning string               `json:"warning"`
	}](t, res)
	if len(body.Staff) != 2 || body.Warning != "" {
		t.Fatalf("expected 2 approved staff and no warning, got %+v", body)
	}
	for _, member := range body.Staff {
		if member.ID == memory.SeedPendingID {
			t.Fatalf("pending account must not be listed")
		}
	}
}

func TestManageStaff(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin@salon.local", "admin123")
	staff := loginAs(t, api, "jane@salon.local", "staff123")

	res := doRequest(t, api, http.MethodPost, "/api/v1/staff/manage", staff, map[string]string{"action": "add", "email": "new@salon.local"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("non-admin: expected 400, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/staff/manage", admin, map[string]string{"action": "add", "email": "new@salon.local", "full_name": "New Hire"})
	if res.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	msg := decodeBody[domain.ManageStaffResponse](t, res)
	if msg.Message != "Staff member added successfully" {
		t.Fatalf("unexpected message %q", msg.Message)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/staff/manage", admin, map[string]string{"action": "promote"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("bad action: expected 400, got %d", res.Code)
	}
	if body := decodeBody[map[string]any](t, res); body["error"] == nil {
		t.Fatalf("expected error field, got %v", body)
	}

	res = doRequest(t, api, http.MethodPost, "/api/v1/staff/manage", admin, map[string]string{"action": "remove", "userId": memory.SeedStaffSamID})
	if res.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
}

func TestApprovalEndpointIsAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin@salon.local", "admin123")
	staff := loginAs(t, api, "jane@salon.local", "staff123")
	path := "/api/v1/staff/" + memory.SeedPendingID + "/approval"

	res := doRequest(t, api, http.MethodPatch, path, staff, map[string]string{"status": "approved"})
	if res.Code != http.StatusForbidden {
		t.Fatalf("staff: expected 403, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodPatch, path, admin, map[string]string{"status": "approved"})
	if res.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	loginAs(t, api, "pat@salon.local", "staff123")
}

func TestApprovalChangeRevokesExistingSession(t *testing.T) {
	cases := []struct {
		status string
		code   string
	}{
		{domain.ApprovalPending, "pending_approval"},
		{domain.ApprovalRejected, "account_rejected"},
	}
	for _, tc := range cases {
		api := newTestAPI(t)
		admin := loginAs(t, api, "admin@salon.local", "admin123")
		staff := loginAs(t, api, "jane@salon.local", "staff123")

		res := doRequest(t, api, http.MethodGet, "/api/v1/dashboard", staff, nil)
		if res.Code != http.StatusOK {
			t.Fatalf("%s: dashboard before change: expected 200, got %d", tc.status, res.Code)
		}

		res = doRequest(t, api, http.MethodPatch, "/api/v1/staff/"+memory.SeedStaffJaneID+"/approval", admin, map[string]string{"status": tc.status})
		if res.Code != http.StatusOK {
			t.Fatalf("%s: approval change: expected 200, got %d (body: %s)", tc.status, res.Code, res.Body.String())
		}

		res = doRequest(t, api, http.MethodGet, "/api/v1/dashboard", staff, nil)
		if res.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for the old token, got %d", tc.status, res.Code)
		}
		if body := decodeBody[map[string]any](t, res); body["code"] != tc.code {
			t.Fatalf("%s: expected code %s, got %v", tc.status, tc.code, body)
		}
	}
}

func TestCatalogManagement(t *testing.T) {
	api := newTestAPI(t)
	admin := loginAs(t, api, "admin@salon.local", "admin123")

	res := doRequest(t, api, http.MethodPost, "/api/v1/categories", admin, map[string]string{"name": "hair"})
	if res.Code != http.StatusConflict {
		t.Fatalf("duplicate category: expected 409, got %d", res.Code)
	}

	res = doRequest(t, api, http.MethodDelete, "/api/v1/categories/"+memory.SeedCategoryHair, admin, nil)
	if res.Code != http.StatusConflict {
		t.Fatalf("referenced category: expected 409, got %d", res.Code)
	}
	if body := decodeBody[map[string]any](t, res); body["error"] != "category still has services" {
		t.Fatalf("unexpected conflict message: %v", body)
	}

	res = doRequest(t, api, http.MethodPatch, "/api/v1/services/"+memory.SeedServiceCut, admin, map[string]any{"price": "55"})
	if res.Code != http.StatusOK {
		t.Fatalf("update service: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}
	updated := decodeBody[struct {
		Service domain.Service `json:"service"`
	}](t, res).Service
	if updated.Price.StringFixed(2) != "55.00" || updated.Name != "Haircut" {
		t.Fatalf("unexpected service after update: %+v", updated)
	}

	res = doRequest(t, api, http.MethodGet, "/api/v1/services?grouped=true", admin, nil)
	groups := decodeBody[struct {
		Groups []domain.ServiceGroup `json:"groups"`
	}](t, res).Groups
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}
