package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"salonpos/backend/internal/cache"
	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/xid"
)

const tokenIssuer = "salonpos"

var errInvalidToken = errors.New("invalid or expired token")

// Accounts is the part of the service the auth layer needs.
type Accounts interface {
	Authenticate(ctx context.Context, email string, password string) (domain.StaffMember, error)
	ResolveActor(ctx context.Context, userID string) (domain.StaffMember, error)
}

type AuthManager struct {
	secret      []byte
	tokenTTL    time.Duration
	accounts    Accounts
	revocations cache.Revocations
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// session is a verified token before the account behind it was reloaded.
type session struct {
	userID    string
	tokenID   string
	expiresAt time.Time
}

func NewAuthManager(secret string, tokenTTL time.Duration, accounts Accounts, revocations cache.Revocations) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	if revocations == nil {
		revocations = cache.NewMemoryRevocations()
	}
	return &AuthManager{
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		accounts:    accounts,
		revocations: revocations,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	member, err := a.accounts.Authenticate(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(member, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		Profile:     member,
	}, nil
}

// Resolve verifies the token, rejects revoked sessions and reloads the
// account so role and approval come from the store.
func (a *AuthManager) Resolve(ctx context.Context, tokenStr string) (domain.Actor, domain.StaffMember, error) {
	sess, err := a.parseToken(tokenStr)
	if err != nil {
		return domain.Actor{}, domain.StaffMember{}, err
	}
	revoked, err := a.revocations.IsRevoked(ctx, sess.tokenID)
	if err != nil {
		return domain.Actor{}, domain.StaffMember{}, err
	}
	if revoked {
		return domain.Actor{}, domain.StaffMember{}, errInvalidToken
	}

	member, err := a.accounts.ResolveActor(ctx, sess.userID)
	if err != nil {
		return domain.Actor{}, domain.StaffMember{}, err
	}
	return domain.Actor{ID: member.ID, Email: member.Email, Role: member.Role}, member, nil
}

func (a *AuthManager) Logout(ctx context.Context, tokenStr string) error {
	sess, err := a.parseToken(tokenStr)
	if err != nil {
		return err
	}
	return a.revocations.Revoke(ctx, sess.tokenID, sess.expiresAt)
}

func (a *AuthManager) parseToken(tokenStr string) (session, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return session{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return session{}, errInvalidToken
	}
	return session{userID: sub, tokenID: claims.ID, expiresAt: claims.ExpiresAt.Time}, nil
}

func (a *AuthManager) sign(member domain.StaffMember, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        xid.New(),
			Subject:   member.ID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Role: member.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
