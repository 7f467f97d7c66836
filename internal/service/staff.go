package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"sort"
	"strings"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/store"
	"salonpos/backend/internal/xid"
)

const directoryUnavailable = "staff list could not be loaded"

// Authenticate checks credentials and approval state. Pending and rejected
// accounts get their own errors so the client can explain why sign-in failed.
func (s *Service) Authenticate(ctx context.Context, email string, password string) (domain.StaffMember, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.StaffMember{}, ErrInvalidCredentials
		}
		return domain.StaffMember{}, err
	}
	if !verifyPassword(user.PasswordHash, password) {
		return domain.StaffMember{}, ErrInvalidCredentials
	}
	if err := approvalError(user.ApprovalStatus); err != nil {
		return domain.StaffMember{}, err
	}
	return user.StaffMember, nil
}

// ResolveActor reloads the account behind a session so role and approval are
// always current.
func (s *Service) ResolveActor(ctx context.Context, userID string) (domain.StaffMember, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.StaffMember{}, ErrUnauthenticated
		}
		return domain.StaffMember{}, err
	}
	if err := approvalError(user.ApprovalStatus); err != nil {
		return domain.StaffMember{}, err
	}
	return user.StaffMember, nil
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (domain.StaffMember, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.StaffMember{}, err
	}
	if len(req.Password) < minPasswordLength {
		return domain.StaffMember{}, invalidf("password must be at least %d characters", minPasswordLength)
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.StaffMember{}, invalidf("full name is required")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.StaffMember{}, fmt.Errorf("hash password: %w", err)
	}
	member := domain.StaffMember{
		ID:             xid.New(),
		Email:          email,
		FullName:       &fullName,
		Role:           domain.RoleStaff,
		ApprovalStatus: domain.ApprovalPending,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, domain.UserAccount{StaffMember: member, PasswordHash: hash}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.StaffMember{}, conflictf("email is already registered")
		}
		return domain.StaffMember{}, err
	}

	s.logAudit(WithActor(ctx, domain.Actor{ID: member.ID, Email: member.Email, Role: member.Role}), "staff_signup", "staff", member.ID, "email="+member.Email)
	return member, nil
}

// EnsureAdmin creates an approved admin with the given credentials unless an
// account with that email already exists.
func (s *Service) EnsureAdmin(ctx context.Context, email string, password string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return invalidf("admin password must be at least %d characters", minPasswordLength)
	}
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.repo.CreateUser(ctx, domain.UserAccount{
		StaffMember: domain.StaffMember{
			ID:             xid.New(),
			Email:          email,
			Role:           domain.RoleAdmin,
			ApprovalStatus: domain.ApprovalApproved,
			CreatedAt:      s.now().UTC(),
		},
		PasswordHash: hash,
	})
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return err
	}
	return nil
}

// StaffDirectory lists the approved stylists a sale line can be credited to.
// A failed read degrades to an empty list and a warning instead of an error.
func (s *Service) StaffDirectory(ctx context.Context) ([]domain.StaffMember, string) {
	members, err := s.repo.ListStaff(ctx, store.StaffFilter{
		Role:           domain.RoleStaff,
		ApprovalStatus: domain.ApprovalApproved,
	})
	if err != nil {
		log.Printf("[service] WARN: failed to load staff directory: %v", err)
		return []domain.StaffMember{}, directoryUnavailable
	}
	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToLower(members[i].DisplayName()) < strings.ToLower(members[j].DisplayName())
	})
	return members, ""
}

func (s *Service) ListStaff(ctx context.Context, status string) ([]domain.StaffMember, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !domain.IsValidApprovalStatus(status) {
		return nil, invalidf("unknown approval status %q", status)
	}
	return s.repo.ListStaff(ctx, store.StaffFilter{Role: domain.RoleStaff, ApprovalStatus: status})
}

func (s *Service) UpdateApproval(ctx context.Context, userID string, status string) (domain.StaffMember, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.StaffMember{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.IsValidApprovalStatus(status) {
		return domain.StaffMember{}, invalidf("unknown approval status %q", status)
	}

	updated, err := s.repo.UpdateApprovalStatus(ctx, strings.TrimSpace(userID), status)
	if err != nil {
		return domain.StaffMember{}, err
	}
	s.logAudit(ctx, "staff_approval", "staff", updated.ID, "status="+status)
	return *updated, nil
}

// ManageStaff is the privileged add/remove operation. The caller's role is
// read from the store again, not taken from the session.
func (s *Service) ManageStaff(ctx context.Context, req domain.ManageStaffRequest) (domain.ManageStaffResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.ManageStaffResponse{}, err
	}
	caller, err := s.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ManageStaffResponse{}, ErrUnauthenticated
		}
		return domain.ManageStaffResponse{}, err
	}
	if caller.Role != domain.RoleAdmin || caller.ApprovalStatus != domain.ApprovalApproved {
		return domain.ManageStaffResponse{}, ErrForbidden
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case domain.ManageActionAdd:
		member, err := s.provisionStaff(ctx, req.Email, req.FullName)
		if err != nil {
			return domain.ManageStaffResponse{}, err
		}
		s.logAudit(ctx, "staff_add", "staff", member.ID, "email="+member.Email)
		return domain.ManageStaffResponse{Message: "Staff member added successfully"}, nil
	case domain.ManageActionRemove:
		userID := strings.TrimSpace(req.UserID)
		if userID == "" {
			return domain.ManageStaffResponse{}, invalidf("userId is required")
		}
		if userID == caller.ID {
			return domain.ManageStaffResponse{}, invalidf("you cannot remove your own account")
		}
		if err := s.repo.DeleteUser(ctx, userID); err != nil {
			return domain.ManageStaffResponse{}, err
		}
		s.logAudit(ctx, "staff_remove", "staff", userID, "")
		return domain.ManageStaffResponse{Message: "Staff member removed successfully"}, nil
	default:
		return domain.ManageStaffResponse{}, invalidf("invalid action %q", req.Action)
	}
}

func (s *Service) provisionStaff(ctx context.Context, rawEmail string, rawName string) (domain.StaffMember, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return domain.StaffMember{}, err
	}
	password, err := generatePassword()
	if err != nil {
		return domain.StaffMember{}, fmt.Errorf("generate password: %w", err)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.StaffMember{}, fmt.Errorf("hash password: %w", err)
	}

	member := domain.StaffMember{
		ID:             xid.New(),
		Email:          email,
		Role:           domain.RoleStaff,
		ApprovalStatus: domain.ApprovalApproved,
		CreatedAt:      s.now().UTC(),
	}
	if name := strings.TrimSpace(rawName); name != "" {
		member.FullName = &name
	}
	if err := s.repo.CreateUser(ctx, domain.UserAccount{StaffMember: member, PasswordHash: hash}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.StaffMember{}, conflictf("email is already registered")
		}
		return domain.StaffMember{}, err
	}
	return member, nil
}

func approvalError(status string) error {
	switch status {
	case domain.ApprovalApproved:
		return nil
	case domain.ApprovalRejected:
		return ErrAccountRejected
	default:
		return ErrPendingApproval
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalidf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidf("invalid email address")
	}
	return email, nil
}
