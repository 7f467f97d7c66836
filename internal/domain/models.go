package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type Service struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ServiceCreateRequest struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"category_id"`
}

type ServiceUpdateRequest struct {
	Name       *string          `json:"name,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	CategoryID *string          `json:"category_id,omitempty"`
}

// ServiceGroup is a category heading with the services filed under it.
type ServiceGroup struct {
	Category string    `json:"category"`
	Services []Service `json:"services"`
}

// Catalog is the cached snapshot of everything a sale can be composed from.
type Catalog struct {
	Categories []Category `json:"categories"`
	Services   []Service  `json:"services"`
}

func (c Catalog) ServiceByID(id string) (Service, bool) {
	for _, svc := range c.Services {
		if svc.ID == id {
			return svc, true
		}
	}
	return Service{}, false
}

type StaffMember struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FullName       *string   `json:"full_name"`
	Role           string    `json:"role"`
	ApprovalStatus string    `json:"approval_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// DisplayName prefers the full name and falls back to the email address.
func (m StaffMember) DisplayName() string {
	if m.FullName != nil && *m.FullName != "" {
		return *m.FullName
	}
	return m.Email
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	StaffMember
	PasswordHash string
}

type Actor struct {
	ID    string
	Email string
	Role  string
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   string      `json:"expires_at"`
	Profile     StaffMember `json:"profile"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type ApprovalUpdateRequest struct {
	Status string `json:"status"`
}

// ManageStaffRequest is the privileged provisioning call; Action selects which
// of the remaining fields are read.
type ManageStaffRequest struct {
	Action   string `json:"action"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

type ManageStaffResponse struct {
	Message string `json:"message"`
}

type SaleLine struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	ServiceName string          `json:"service"`
	ServiceID   string          `json:"service_id"`
	StaffID     string          `json:"staff_id"`
	Price       decimal.Decimal `json:"price"`
	Tip         decimal.Decimal `json:"tip"`
}

type SaleDraft struct {
	Lines     []SaleLine      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	TotalTips decimal.Decimal `json:"total_tips"`
}

type SaleLineUpdate struct {
	CategoryID *string      `json:"category_id,omitempty"`
	ServiceID  *string      `json:"service_id,omitempty"`
	StaffID    *string      `json:"staff_id,omitempty"`
	Price      *AmountInput `json:"price,omitempty"`
	Tip        *AmountInput `json:"tip,omitempty"`
}

type SaleLineInput struct {
	CategoryID string       `json:"category_id"`
	ServiceID  string       `json:"service_id"`
	StaffID    string       `json:"staff_id"`
	Price      *AmountInput `json:"price,omitempty"`
	Tip        *AmountInput `json:"tip,omitempty"`
}

// AmountInput keeps a money field exactly as the client sent it. JSON numbers,
// strings and anything else decode without error; coercion happens later.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*a = AmountInput(raw)
	return nil
}

type RecordSaleRequest struct {
	CustomerName   string          `json:"customer_name"`
	CustomerMobile string          `json:"customer_mobile"`
	Lines          []SaleLineInput `json:"lines"`
}

type CommitDraftRequest struct {
	CustomerName   string `json:"customer_name"`
	CustomerMobile string `json:"customer_mobile"`
}

type Transaction struct {
	ID             string            `json:"id"`
	CustomerName   string            `json:"customer_name"`
	CustomerMobile string            `json:"customer_mobile"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	TotalTips      decimal.Decimal   `json:"total_tips"`
	CreatedBy      string            `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	Items          []TransactionItem `json:"items"`
}

type TransactionItem struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ServiceID     string          `json:"service_id"`
	ServiceName   string          `json:"service_name,omitempty"`
	StaffID       string          `json:"staff_id"`
	StaffName     string          `json:"staff_name,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Tip           decimal.Decimal `json:"tip"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StaffItem is the reporting read model of a transaction item joined with the
// credited staff profile. FullName and Email are nil when the profile is gone.
type StaffItem struct {
	StaffID   string
	Tip       decimal.Decimal
	FullName  *string
	Email     *string
	CreatedAt time.Time
}

type StaffPerformance struct {
	StaffID      string          `json:"staff_id"`
	Name         string          `json:"name"`
	TotalTips    decimal.Decimal `json:"total_tips"`
	ServiceCount int             `json:"service_count"`
}

type Dashboard struct {
	From                 string             `json:"from"`
	To                   string             `json:"to"`
	TotalSales           decimal.Decimal    `json:"total_sales"`
	TransactionCount     int                `json:"transaction_count"`
	StaffPerformance     []StaffPerformance `json:"staff_performance"`
	TopTipEarners        []StaffPerformance `json:"top_tip_earners"`
	MostServicesProvided []StaffPerformance `json:"most_services_provided"`
}

type DailySummary struct {
	Date             string          `json:"date"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
	TopTipEarner     string          `json:"top_tip_earner,omitempty"`
	MostServices     string          `json:"most_services,omitempty"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

const (
	ManageActionAdd    = "add"
	ManageActionRemove = "remove"
)

func IsValidApprovalStatus(status string) bool {
	switch status {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}
