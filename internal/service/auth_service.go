package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/wallet"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Roles carried in access tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const tokenTypeAccess = "access"

// ──────────────────────────────────────────────────────────────────────────────
// JWT claims
// ──────────────────────────────────────────────────────────────────────────────

// AppClaims extends jwt.RegisteredClaims with application-specific fields.
// Subject is the caller's wallet address.
type AppClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"type"`
}

// ──────────────────────────────────────────────────────────────────────────────
// DTOs
// ──────────────────────────────────────────────────────────────────────────────

// ChallengeResponse carries the message the wallet must sign.
type ChallengeResponse struct {
	Address   string    `json:"address"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenRequest exchanges a signed challenge for an access token.
type TokenRequest struct {
	Address     string
	Signature   string
	AdminSecret string
}

// TokenResponse is returned by IssueToken.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	Address     string    `json:"address"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type challenge struct {
	message string
	expires time.Time
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthService
// ──────────────────────────────────────────────────────────────────────────────

// AuthService issues access tokens to callers that prove they hold an
// address's key by signing a one-time challenge.
type AuthService struct {
	cfg *config.Config
	now func() time.Time

	mu      sync.Mutex
	pending map[string]challenge // by lowercased address
}

// NewAuthService creates an AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		pending: make(map[string]challenge),
	}
}

// Challenge issues a single-use login message for address, replacing any
// earlier one.
func (s *AuthService) Challenge(address string) (*ChallengeResponse, error) {
	addr, ok := wallet.NormalizeAddress(address)
	if !ok {
		return nil, domain.InvalidArgument("address", "must be a 0x-prefixed 20-byte hex address")
	}

	now := s.now()
	ch := challenge{
		message: fmt.Sprintf("Sign in to PredictArena\naddress: %s\nnonce: %s\nissued: %s",
			addr, uuid.NewString(), now.Format(time.RFC3339)),
		expires: now.Add(s.challengeTTL()),
	}

	s.mu.Lock()
	for a, p := range s.pending {
		if !now.Before(p.expires) {
			delete(s.pending, a)
		}
	}
	s.pending[addr] = ch
	s.mu.Unlock()

	return &ChallengeResponse{Address: addr, Message: ch.message, ExpiresAt: ch.expires}, nil
}

// IssueToken consumes the pending challenge for req.Address and signs an
// access token when req.Signature recovers to that address. The admin role
// needs both an AUTH_ADMIN_ADDRESSES listing and the admin secret.
func (s *AuthService) IssueToken(req TokenRequest) (*TokenResponse, error) {
	addr, ok := wallet.NormalizeAddress(req.Address)
	if !ok {
		return nil, domain.InvalidArgument("address", "must be a 0x-prefixed 20-byte hex address")
	}
	if strings.TrimSpace(req.Signature) == "" {
		return nil, domain.InvalidArgument("signature", "must not be empty")
	}

	now := s.now()
	s.mu.Lock()
	ch, found := s.pending[addr]
	delete(s.pending, addr)
	s.mu.Unlock()
	if !found || !now.Before(ch.expires) {
		return nil, domain.ErrChallengeNotFound
	}

	signer, err := wallet.RecoverAddress(ch.message, req.Signature)
	if err != nil || signer != addr {
		return nil, domain.ErrSignatureInvalid
	}

	role := RoleUser
	if req.AdminSecret != "" {
		if !s.adminSecretOK(addr, req.AdminSecret) {
			return nil, domain.ErrAdminSecretInvalid
		}
		role = RoleAdmin
	}

	exp := now.Add(s.cfg.Auth.AccessTTL)
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:      role,
		TokenType: tokenTypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Auth.AccessSecret))
	if err != nil {
		return nil, fmt.Errorf("auth_service.IssueToken: sign: %w", err)
	}

	return &TokenResponse{AccessToken: signed, Address: addr, Role: role, ExpiresAt: exp}, nil
}

// ParseAccessToken validates the signature, algorithm, expiry and token type.
func (s *AuthService) ParseAccessToken(tokenString string) (*AppClaims, error) {
	secret := []byte(s.cfg.Auth.AccessSecret)
	tok, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*AppClaims)
	if !ok || claims.TokenType != tokenTypeAccess || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// ── Private helpers ───────────────────────────────────────────────────────────

func (s *AuthService) adminSecretOK(addr, secret string) bool {
	hash := s.cfg.Auth.AdminSecretHash
	if hash == "" || !s.cfg.IsAdmin(addr) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

func (s *AuthService) challengeTTL() time.Duration {
	if s.cfg.Auth.ChallengeTTL > 0 {
		return s.cfg.Auth.ChallengeTTL
	}
	return 5 * time.Minute
}
