package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/intlpay/backend/internal/audit"
	"github.com/intlpay/backend/internal/models"
	"github.com/lib/pq"
)

const accountColumns = "id, name, email, password_hash, role, created_at, updated_at"

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// AccountFilter narrows the admin user listing.
type AccountFilter struct {
	Search string
	Role   models.Role
	Page   Page
}

// AccountService is the user directory: registration, credential checks,
// and admin-only role and lifecycle management.
type AccountService struct {
	db     *sql.DB
	hasher *PasswordHasher
	audit  *audit.AuditLogger
	now    func() time.Time
}

func NewAccountService(db *sql.DB, hasher *PasswordHasher, auditLogger *audit.AuditLogger) *AccountService {
	return &AccountService{
		db:     db,
		hasher: hasher,
		audit:  auditLogger,
		now:    time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

// Register creates a customer account unless a valid role is supplied.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	role := models.RoleCustomer
	if in.Role != "" {
		role = models.Role(in.Role)
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
	}

	account, err := s.insert(ctx, in.Name, in.Email, in.Password, role)
	if err != nil {
		return nil, err
	}

	log.Printf("[AUTH] User created successfully - ID: %s, Role: %s", account.ID, account.Role)
	return account, nil
}

// Create is the admin path for adding an account of any role.
func (s *AccountService) Create(ctx context.Context, caller *models.Identity, in RegisterInput) (*models.Account, error) {
	if caller == nil || caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	account, err := s.Register(ctx, in)
	if err != nil {
		return nil, err
	}

	log.Printf("[ADMIN] Account %s created by %s", account.ID, caller.ID)
	return account, nil
}

func (s *AccountService) insert(ctx context.Context, name, email, password string, role models.Role) (*models.Account, error) {
	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	account := &models.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, account.ID, account.Name, account.Email, account.PasswordHash, string(account.Role), now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return account, nil
}

func (s *AccountService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var taken bool
	var err error
	if exceptID == "" {
		err = s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))", email).Scan(&taken)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)", email, exceptID).Scan(&taken)
	}
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

// Authenticate returns the account for a matching email and password. Unknown
// emails and wrong passwords fail identically.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE LOWER(email) = LOWER($1)", email)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		s.hasher.VerifyDummy(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAccountNotFound
	}

	account, err := scanAccount(s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return account, nil
}

// List returns accounts newest-first together with the unpaginated total.
func (s *AccountService) List(ctx context.Context, filter AccountFilter) ([]models.Account, int, error) {
	var where whereBuilder
	if filter.Search != "" {
		where.add(`(name ILIKE ? OR email ILIKE ?)`, containsPattern(filter.Search))
	}
	if filter.Role != "" {
		where.add("role = ?", string(filter.Role))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := "SELECT " + accountColumns + " FROM users" + where.String() + " ORDER BY created_at DESC"
	query += where.paginate(filter.Page.Normalize())

	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// SetRole changes another account's role. Admins cannot change their own role.
func (s *AccountService) SetRole(ctx context.Context, caller *models.Identity, targetID, role string) (*models.Account, error) {
	if caller == nil || caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if caller.ID == targetID {
		return nil, ErrSelfModification
	}

	newRole := models.Role(strings.ToLower(strings.TrimSpace(role)))
	if !newRole.Valid() {
		return nil, ErrInvalidRole
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return nil, ErrAccountNotFound
	}

	account, err := scanAccount(s.db.QueryRowContext(ctx,
		"UPDATE users SET role = $1, updated_at = $2 WHERE id = $3 RETURNING "+accountColumns,
		string(newRole), s.now().UTC(), targetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.audit.LogRoleChange(caller.ID, account.ID, string(newRole))
	log.Printf("[ADMIN] Role of %s set to %s by %s", account.ID, newRole, caller.ID)
	return account, nil
}

// Remove deletes another account and every transaction it owns in one
// database transaction. It returns the number of transactions removed.
func (s *AccountService) Remove(ctx context.Context, caller *models.Identity, targetID string) (int64, error) {
	if caller == nil || caller.Role != models.RoleAdmin {
		return 0, ErrForbidden
	}
	if caller.ID == targetID {
		return 0, ErrSelfModification
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return 0, ErrAccountNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE customer_id = $1", targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user transactions: %w", err)
	}
	removed, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, "DELETE FROM users WHERE id = $1", targetID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrAccountNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.audit.LogAccountRemoved(caller.ID, targetID, removed)
	log.Printf("[ADMIN] User %s and %d transactions deleted by %s", targetID, removed, caller.ID)
	return removed, nil
}

// UpdateProfile applies the non-empty fields of in. Admins may edit any
// account; customers only their own and never the role.
func (s *AccountService) UpdateProfile(ctx context.Context, caller *models.Identity, targetID string, in UpdateProfileInput) (*models.Account, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleCustomer:
		if caller.ID != targetID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	if in.Role != "" {
		if caller.Role != models.RoleAdmin {
			return nil, ErrForbidden
		}
		if caller.ID == targetID {
			return nil, ErrSelfModification
		}
		if !models.Role(in.Role).Valid() {
			return nil, ErrInvalidRole
		}
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return nil, ErrAccountNotFound
	}

	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Name != "" {
		set("name", in.Name)
	}
	if in.Email != "" {
		taken, err := s.emailTaken(ctx, in.Email, targetID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
		set("email", in.Email)
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		set("password_hash", hash)
	}
	if in.Role != "" {
		set("role", in.Role)
	}

	if len(sets) == 0 {
		return s.Get(ctx, targetID)
	}

	set("updated_at", s.now().UTC())
	args = append(args, targetID)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), accountColumns)

	account, err := scanAccount(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if in.Role != "" {
		s.audit.LogRoleChange(caller.ID, account.ID, in.Role)
	}
	log.Printf("[AUTH] Profile %s updated by %s", account.ID, caller.ID)
	return account, nil
}
