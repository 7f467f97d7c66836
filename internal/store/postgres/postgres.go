package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/xid"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate applies the bundled schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		ORDER BY lower(name)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at)
		VALUES ($1,$2,$3)
	`, category.ID, category.Name, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if !xid.Valid(id) {
		return store.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return expectAffected(res)
}

const selectService = `
	SELECT s.id, s.name, s.price, s.category_id, COALESCE(c.name, ''), s.created_at
	FROM services s
	LEFT JOIN categories c ON c.id = s.category_id
`

func (s *Store) ListServices(ctx context.Context) ([]domain.Service, error) {
	rows, err := s.db.QueryContext(ctx, selectService+` ORDER BY lower(s.name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]domain.Service, 0, 64)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) GetService(ctx context.Context, id string) (*domain.Service, error) {
	if !xid.Valid(id) {
		return nil, store.ErrNotFound
	}
	svc, err := scanService(s.db.QueryRowContext(ctx, selectService+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &svc, nil
}

func (s *Store) CreateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	if err := validateService(svc); err != nil {
		return nil, err
	}
	if svc.ID == "" {
		svc.ID = xid.New()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, price, category_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, svc.ID, strings.TrimSpace(svc.Name), svc.Price.Round(2), svc.CategoryID, svc.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) || isNumericOverflow(err) {
			return nil, store.ErrInvalidInput
		}
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return s.GetService(ctx, svc.ID)
}

func (s *Store) UpdateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	if !xid.Valid(svc.ID) {
		return nil, store.ErrNotFound
	}
	if err := validateService(svc); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE services
		SET name = $2, price = $3, category_id = $4
		WHERE id = $1
	`, svc.ID, strings.TrimSpace(svc.Name), svc.Price.Round(2), svc.CategoryID)
	if err != nil {
		if isForeignKeyViolation(err) || isNumericOverflow(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	return s.GetService(ctx, svc.ID)
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	if !xid.Valid(id) {
		return store.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, approval_status, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.ID, user.Email, nullString(user.FullName), user.Role, user.ApprovalStatus, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

const selectProfile = `
	SELECT id, email, full_name, role, approval_status, password_hash, created_at
	FROM profiles
`

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	if !xid.Valid(id) {
		return nil, store.ErrNotFound
	}
	return s.getUser(ctx, selectProfile+` WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, store.ErrNotFound
	}
	return s.getUser(ctx, selectProfile+` WHERE email = $1`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (*domain.UserAccount, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListStaff(ctx context.Context, filter store.StaffFilter) ([]domain.StaffMember, error) {
	rows, err := s.db.QueryContext(ctx, selectProfile+`
		WHERE ($1 = '' OR role = $1)
			AND ($2 = '' OR approval_status = $2)
		ORDER BY created_at DESC, email ASC
	`, filter.Role, filter.ApprovalStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.StaffMember, 0, 16)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, user.StaffMember)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Store) UpdateApprovalStatus(ctx context.Context, id string, status string) (*domain.StaffMember, error) {
	if !domain.IsValidApprovalStatus(status) {
		return nil, store.ErrInvalidInput
	}
	if !xid.Valid(id) {
		return nil, store.ErrNotFound
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET approval_status = $2
		WHERE id = $1
		RETURNING id, email, full_name, role, approval_status, password_hash, created_at
	`, id, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user.StaffMember, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if !xid.Valid(id) {
		return store.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if len(tx.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if tx.ID == "" {
		tx.ID = xid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_name, customer_mobile, total_amount, total_tips, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, tx.ID, tx.CustomerName, tx.CustomerMobile, tx.TotalAmount.Round(2), tx.TotalTips.Round(2), tx.CreatedBy, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		if isNumericOverflow(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	for i := range tx.Items {
		item := &tx.Items[i]
		if item.ID == "" {
			item.ID = xid.New()
		}
		item.TransactionID = tx.ID
		item.CreatedAt = tx.CreatedAt
		if !xid.Valid(item.ServiceID) || !xid.Valid(item.StaffID) {
			return nil, store.ErrInvalidInput
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, position, service_id, staff_id, price, tip, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, item.ID, tx.ID, i, item.ServiceID, item.StaffID, item.Price.Round(2), item.Tip.Round(2), tx.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) || isNumericOverflow(err) {
				return nil, store.ErrInvalidInput
			}
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, tx.ID)
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if !xid.Valid(id) {
		return nil, store.ErrNotFound
	}
	var tx domain.Transaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_mobile, total_amount, total_tips, created_by, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &tx.CustomerName, &tx.CustomerMobile, &tx.TotalAmount, &tx.TotalTips, &tx.CreatedBy, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	items, err := s.itemsByTransaction(ctx, []string{tx.ID})
	if err != nil {
		return nil, err
	}
	tx.Items = items[tx.ID]
	if tx.Items == nil {
		tx.Items = []domain.TransactionItem{}
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, from time.Time, to time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_name, customer_mobile, total_amount, total_tips, created_by, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, 32)
	ids := make([]string, 0, 32)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.CustomerName, &tx.CustomerMobile, &tx.TotalAmount, &tx.TotalTips, &tx.CreatedBy, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		transactions = append(transactions, tx)
		ids = append(ids, tx.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return transactions, nil
	}

	items, err := s.itemsByTransaction(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range transactions {
		transactions[i].Items = items[transactions[i].ID]
		if transactions[i].Items == nil {
			transactions[i].Items = []domain.TransactionItem{}
		}
	}
	return transactions, nil
}

func (s *Store) itemsByTransaction(ctx context.Context, ids []string) (map[string][]domain.TransactionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.id, ti.transaction_id, ti.service_id, COALESCE(sv.name, ''),
			ti.staff_id, COALESCE(NULLIF(p.full_name, ''), p.email, ''),
			ti.price, ti.tip, ti.created_at
		FROM transaction_items ti
		LEFT JOIN services sv ON sv.id = ti.service_id
		LEFT JOIN profiles p ON p.id = ti.staff_id
		WHERE ti.transaction_id = ANY($1)
		ORDER BY ti.transaction_id, ti.position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.TransactionItem, len(ids))
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ServiceID, &item.ServiceName, &item.StaffID, &item.StaffName, &item.Price, &item.Tip, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		out[item.TransactionID] = append(out[item.TransactionID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListStaffItems(ctx context.Context, from time.Time, to time.Time) ([]domain.StaffItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.staff_id, ti.tip, p.full_name, p.email, ti.created_at
		FROM transaction_items ti
		LEFT JOIN profiles p ON p.id = ti.staff_id
		WHERE ti.created_at >= $1 AND ti.created_at <= $2
		ORDER BY ti.created_at, ti.transaction_id, ti.position
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.StaffItem, 0, 64)
	for rows.Next() {
		var (
			item     domain.StaffItem
			fullName sql.NullString
			email    sql.NullString
		)
		if err := rows.Scan(&item.StaffID, &item.Tip, &fullName, &email, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.FullName = stringPtr(fullName)
		item.Email = stringPtr(email)
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorID, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (domain.Service, error) {
	var svc domain.Service
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Price, &svc.CategoryID, &svc.CategoryName, &svc.CreatedAt); err != nil {
		return domain.Service{}, err
	}
	svc.CreatedAt = svc.CreatedAt.UTC()
	return svc, nil
}

func scanUser(row rowScanner) (domain.UserAccount, error) {
	var (
		user     domain.UserAccount
		fullName sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Email, &fullName, &user.Role, &user.ApprovalStatus, &user.PasswordHash, &user.CreatedAt); err != nil {
		return domain.UserAccount{}, err
	}
	user.FullName = stringPtr(fullName)
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func validateService(svc domain.Service) error {
	if strings.TrimSpace(svc.Name) == "" || !xid.Valid(svc.CategoryID) {
		return store.ErrInvalidInput
	}
	if svc.Price.IsNegative() {
		return store.ErrInvalidInput
	}
	return nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// isNumericOverflow matches amounts that do not fit NUMERIC(12,2).
func isNumericOverflow(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22003"
	}
	return false
}

func nullString(val *string) any {
	if val == nil || strings.TrimSpace(*val) == "" {
		return nil
	}
	return strings.TrimSpace(*val)
}

func stringPtr(val sql.NullString) *string {
	if !val.Valid {
		return nil
	}
	v := val.String
	return &v
}
