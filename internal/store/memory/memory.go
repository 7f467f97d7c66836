package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/xid"
)

// Fixed ids of the seeded demo records.
const (
	SeedAdminID      = "00000000-0000-4000-8000-000000000001"
	SeedStaffJaneID  = "00000000-0000-4000-8000-000000000002"
	SeedStaffSamID   = "00000000-0000-4000-8000-000000000003"
	SeedPendingID    = "00000000-0000-4000-8000-000000000004"
	SeedCategoryHair = "00000000-0000-4000-8000-000000000101"
	SeedCategoryNail = "00000000-0000-4000-8000-000000000102"
	SeedServiceCut   = "00000000-0000-4000-8000-000000000201"
	SeedServiceColor = "00000000-0000-4000-8000-000000000202"
	SeedServiceMani  = "00000000-0000-4000-8000-000000000203"
)

type Store struct {
	mu           sync.RWMutex
	categories   map[string]domain.Category
	services     map[string]domain.Service
	users        map[string]domain.UserAccount
	transactions []domain.Transaction
	txIndex      map[string]int
	auditLogs    []domain.AuditLog
}

func New() *Store {
	return &Store{
		categories:   make(map[string]domain.Category),
		services:     make(map[string]domain.Service),
		users:        make(map[string]domain.UserAccount),
		transactions: make([]domain.Transaction, 0, 64),
		txIndex:      make(map[string]int),
		auditLogs:    make([]domain.AuditLog, 0, 128),
	}
}

// NewSeeded returns a store with a small demo catalog, an admin, two approved
// stylists and one account waiting for approval. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; dev defaults are used otherwise.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	adminEmail := strings.ToLower(envOr("SEED_ADMIN_EMAIL", "admin@salon.local"))
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	jane := "Jane Doe"
	sam := "Sam Lee"
	pat := "Pat Pending"
	for _, u := range []struct {
		id       string
		email    string
		fullName *string
		role     string
		status   string
		password string
	}{
		{SeedAdminID, adminEmail, nil, domain.RoleAdmin, domain.ApprovalApproved, adminPwd},
		{SeedStaffJaneID, "jane@salon.local", &jane, domain.RoleStaff, domain.ApprovalApproved, staffPwd},
		{SeedStaffSamID, "sam@salon.local", &sam, domain.RoleStaff, domain.ApprovalApproved, staffPwd},
		{SeedPendingID, "pat@salon.local", &pat, domain.RoleStaff, domain.ApprovalPending, staffPwd},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.email, err)
		}
		s.users[u.id] = domain.UserAccount{
			StaffMember: domain.StaffMember{
				ID:             u.id,
				Email:          u.email,
				FullName:       u.fullName,
				Role:           u.role,
				ApprovalStatus: u.status,
				CreatedAt:      now,
			},
			PasswordHash: string(hash),
		}
	}

	s.categories[SeedCategoryHair] = domain.Category{ID: SeedCategoryHair, Name: "Hair", CreatedAt: now}
	s.categories[SeedCategoryNail] = domain.Category{ID: SeedCategoryNail, Name: "Nails", CreatedAt: now}
	for _, svc := range []domain.Service{
		{ID: SeedServiceCut, Name: "Haircut", Price: decimal.RequireFromString("50"), CategoryID: SeedCategoryHair},
		{ID: SeedServiceColor, Name: "Hair Color", Price: decimal.RequireFromString("120"), CategoryID: SeedCategoryHair},
		{ID: SeedServiceMani, Name: "Manicure", Price: decimal.RequireFromString("30"), CategoryID: SeedCategoryNail},
	} {
		svc.CreatedAt = now
		s.services[svc.ID] = svc
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrConflict
		}
	}
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, svc := range s.services {
		if svc.CategoryID == id {
			return store.ErrConflict
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListServices(_ context.Context) ([]domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, s.withCategoryName(svc))
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetService(_ context.Context, id string) (*domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := s.withCategoryName(svc)
	return &found, nil
}

func (s *Store) CreateService(_ context.Context, svc domain.Service) (*domain.Service, error) {
	if err := validateService(svc); err != nil {
		return nil, err
	}
	if svc.ID == "" {
		svc.ID = xid.New()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[svc.CategoryID]; !ok {
		return nil, store.ErrInvalidInput
	}
	svc.CategoryName = ""
	s.services[svc.ID] = svc
	created := s.withCategoryName(svc)
	return &created, nil
}

func (s *Store) UpdateService(_ context.Context, svc domain.Service) (*domain.Service, error) {
	if err := validateService(svc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.services[svc.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.categories[svc.CategoryID]; !ok {
		return nil, store.ErrInvalidInput
	}
	existing.Name = svc.Name
	existing.Price = svc.Price
	existing.CategoryID = svc.CategoryID
	s.services[svc.ID] = existing
	updated := s.withCategoryName(existing)
	return &updated, nil
}

func (s *Store) DeleteService(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[id]; !ok {
		return store.ErrNotFound
	}
	for _, tx := range s.transactions {
		for _, item := range tx.Items {
			if item.ServiceID == id {
				return store.ErrConflict
			}
		}
	}
	delete(s.services, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || user.PasswordHash == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New()
	}
	if user.Role == "" {
		user.Role = domain.RoleStaff
	}
	if user.ApprovalStatus == "" {
		user.ApprovalStatus = domain.ApprovalPending
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrConflict
		}
	}
	if _, exists := s.users[user.ID]; exists {
		return store.ErrConflict
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListStaff(_ context.Context, filter store.StaffFilter) ([]domain.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StaffMember, 0, len(s.users))
	for _, user := range s.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.ApprovalStatus != "" && user.ApprovalStatus != filter.ApprovalStatus {
			continue
		}
		out = append(out, user.StaffMember)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *Store) UpdateApprovalStatus(_ context.Context, id string, status string) (*domain.StaffMember, error) {
	if !domain.IsValidApprovalStatus(status) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.ApprovalStatus = status
	s.users[id] = user
	updated := user.StaffMember
	return &updated, nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if tx.ID == "" {
		tx.ID = xid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txIndex[tx.ID]; exists {
		return nil, store.ErrConflict
	}
	items := make([]domain.TransactionItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		if _, ok := s.services[item.ServiceID]; !ok {
			return nil, store.ErrInvalidInput
		}
		if item.ID == "" {
			item.ID = xid.New()
		}
		item.TransactionID = tx.ID
		item.CreatedAt = tx.CreatedAt
		item.ServiceName = ""
		item.StaffName = ""
		items = append(items, item)
	}
	tx.Items = items

	s.txIndex[tx.ID] = len(s.transactions)
	s.transactions = append(s.transactions, tx)
	created := s.hydrate(tx)
	return &created, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.txIndex[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := s.hydrate(s.transactions[pos])
	return &found, nil
}

func (s *Store) ListTransactions(_ context.Context, from time.Time, to time.Time) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, tx := range s.transactions {
		if inRange(tx.CreatedAt, from, to) {
			out = append(out, s.hydrate(tx))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListStaffItems(_ context.Context, from time.Time, to time.Time) ([]domain.StaffItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StaffItem, 0)
	for _, tx := range s.transactions {
		for _, item := range tx.Items {
			if !inRange(item.CreatedAt, from, to) {
				continue
			}
			row := domain.StaffItem{
				StaffID:   item.StaffID,
				Tip:       item.Tip,
				CreatedAt: item.CreatedAt,
			}
			if user, ok := s.users[item.StaffID]; ok {
				email := user.Email
				row.Email = &email
				row.FullName = user.FullName
			}
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(out) < limit; i-- {
		entry := s.auditLogs[i]
		if inRange(entry.CreatedAt, from, to) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *Store) withCategoryName(svc domain.Service) domain.Service {
	if category, ok := s.categories[svc.CategoryID]; ok {
		svc.CategoryName = category.Name
	}
	return svc
}

// hydrate returns a copy of tx with display names resolved from the current
// catalog and roster.
func (s *Store) hydrate(tx domain.Transaction) domain.Transaction {
	items := make([]domain.TransactionItem, len(tx.Items))
	for i, item := range tx.Items {
		if svc, ok := s.services[item.ServiceID]; ok {
			item.ServiceName = svc.Name
		}
		if user, ok := s.users[item.StaffID]; ok {
			item.StaffName = user.DisplayName()
		}
		items[i] = item
	}
	tx.Items = items
	return tx
}

func validateService(svc domain.Service) error {
	if strings.TrimSpace(svc.Name) == "" || svc.CategoryID == "" {
		return store.ErrInvalidInput
	}
	if svc.Price.IsNegative() {
		return store.ErrInvalidInput
	}
	return nil
}

func inRange(at time.Time, from time.Time, to time.Time) bool {
	return !at.Before(from) && !at.After(to)
}
