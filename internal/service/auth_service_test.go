package service_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/evetabi/predictarena/internal/config"
	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/evetabi/predictarena/internal/wallet"
	"golang.org/x/crypto/bcrypt"
)

const adminSecret = "ops-secret"

func newSigner(t *testing.T) *wallet.Signer {
	t.Helper()
	s, err := wallet.GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner() error = %v", err)
	}
	return s
}

// authConfig lists admin as an admin address guarded by adminSecret.
func authConfig(t *testing.T, admin *wallet.Signer) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminSecret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	cfg := testConfig()
	cfg.Auth.AdminAddresses = []string{admin.Address()}
	cfg.Auth.AdminSecretHash = string(hash)
	return cfg
}

// signedRequest fetches a challenge for s and signs it.
func signedRequest(t *testing.T, auth *service.AuthService, s *wallet.Signer) service.TokenRequest {
	t.Helper()
	ch, err := auth.Challenge(s.Address())
	if err != nil {
		t.Fatalf("Challenge() error = %v", err)
	}
	sig, err := s.SignMessage(ch.Message)
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}
	return service.TokenRequest{Address: s.Address(), Signature: sig}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	user := newSigner(t)
	auth := service.NewAuthService(testConfig())

	req := signedRequest(t, auth, user)
	req.Address = " 0x" + strings.ToUpper(user.Address()[2:]) + " "
	tok, err := auth.IssueToken(req)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if tok.Address != user.Address() || tok.Role != service.RoleUser {
		t.Errorf("token = %+v, want %s/user", tok, user.Address())
	}

	claims, err := auth.ParseAccessToken(tok.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if claims.Subject != user.Address() || claims.Role != service.RoleUser {
		t.Errorf("claims = %s/%s, want %s/user", claims.Subject, claims.Role, user.Address())
	}
}

func TestIssueToken_ChallengeIsSingleUse(t *testing.T) {
	user := newSigner(t)
	auth := service.NewAuthService(testConfig())

	req := signedRequest(t, auth, user)
	if _, err := auth.IssueToken(req); err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := auth.IssueToken(req); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Errorf("replayed IssueToken() error = %v, want ErrChallengeNotFound", err)
	}
}

func TestIssueToken_WithoutChallenge(t *testing.T) {
	user := newSigner(t)
	auth := service.NewAuthService(testConfig())

	sig, _ := user.SignMessage("Sign in to PredictArena")
	_, err := auth.IssueToken(service.TokenRequest{Address: user.Address(), Signature: sig})
	if !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Errorf("IssueToken() error = %v, want ErrChallengeNotFound", err)
	}
}

func TestIssueToken_ExpiredChallenge(t *testing.T) {
	user := newSigner(t)
	cfg := testConfig()
	cfg.Auth.ChallengeTTL = time.Nanosecond
	auth := service.NewAuthService(cfg)

	req := signedRequest(t, auth, user)
	time.Sleep(time.Millisecond)
	if _, err := auth.IssueToken(req); !errors.Is(err, domain.ErrChallengeNotFound) {
		t.Errorf("IssueToken() error = %v, want ErrChallengeNotFound", err)
	}
}

func TestIssueToken_ForeignSignature(t *testing.T) {
	victim := newSigner(t)
	attacker := newSigner(t)
	auth := service.NewAuthService(testConfig())

	ch, err := auth.Challenge(victim.Address())
	if err != nil {
		t.Fatalf("Challenge() error = %v", err)
	}
	sig, _ := attacker.SignMessage(ch.Message)
	_, err = auth.IssueToken(service.TokenRequest{Address: victim.Address(), Signature: sig})
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Errorf("IssueToken() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestIssueToken_AdminRole(t *testing.T) {
	admin := newSigner(t)
	auth := service.NewAuthService(authConfig(t, admin))

	// A listed address without the secret is an ordinary user.
	tok, err := auth.IssueToken(signedRequest(t, auth, admin))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if tok.Role != service.RoleUser {
		t.Errorf("Role without secret = %s, want user", tok.Role)
	}

	req := signedRequest(t, auth, admin)
	req.AdminSecret = adminSecret
	tok, err = auth.IssueToken(req)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if tok.Role != service.RoleAdmin {
		t.Errorf("Role = %s, want admin", tok.Role)
	}
}

func TestIssueToken_AdminSecretRejected(t *testing.T) {
	admin := newSigner(t)
	user := newSigner(t)
	auth := service.NewAuthService(authConfig(t, admin))

	req := signedRequest(t, auth, admin)
	req.AdminSecret = "guess"
	if _, err := auth.IssueToken(req); !errors.Is(err, domain.ErrAdminSecretInvalid) {
		t.Errorf("wrong secret: IssueToken() error = %v, want ErrAdminSecretInvalid", err)
	}

	// The right secret does not promote an unlisted address.
	req = signedRequest(t, auth, user)
	req.AdminSecret = adminSecret
	if _, err := auth.IssueToken(req); !errors.Is(err, domain.ErrAdminSecretInvalid) {
		t.Errorf("unlisted address: IssueToken() error = %v, want ErrAdminSecretInvalid", err)
	}

	// No configured hash means no admin tokens at all.
	cfg := authConfig(t, admin)
	cfg.Auth.AdminSecretHash = ""
	noHash := service.NewAuthService(cfg)
	req = signedRequest(t, noHash, admin)
	req.AdminSecret = adminSecret
	if _, err := noHash.IssueToken(req); !errors.Is(err, domain.ErrAdminSecretInvalid) {
		t.Errorf("no hash: IssueToken() error = %v, want ErrAdminSecretInvalid", err)
	}
}

func TestIssueToken_BadInput(t *testing.T) {
	auth := service.NewAuthService(testConfig())
	if _, err := auth.Challenge("0xadmin"); !domain.IsInvalidArgument(err) {
		t.Errorf("Challenge(0xadmin) error = %v, want invalid argument", err)
	}
	if _, err := auth.IssueToken(service.TokenRequest{Address: "  ", Signature: "0x00"}); !domain.IsInvalidArgument(err) {
		t.Errorf("IssueToken(blank) error = %v, want invalid argument", err)
	}
	user := newSigner(t)
	if _, err := auth.IssueToken(service.TokenRequest{Address: user.Address()}); !domain.IsInvalidArgument(err) {
		t.Errorf("IssueToken(no signature) error = %v, want invalid argument", err)
	}
}

func TestParseAccessToken_Rejects(t *testing.T) {
	user := newSigner(t)
	auth := service.NewAuthService(testConfig())
	tok, err := auth.IssueToken(signedRequest(t, auth, user))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	other := testConfig()
	other.Auth.AccessSecret = "different-secret"
	foreign := service.NewAuthService(other)
	foreignTok, err := foreign.IssueToken(signedRequest(t, foreign, user))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	for name, raw := range map[string]string{
		"garbage":      "not-a-token",
		"tampered":     tok.AccessToken + "x",
		"wrong secret": foreignTok.AccessToken,
	} {
		if _, err := auth.ParseAccessToken(raw); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("%s: ParseAccessToken() error = %v, want ErrTokenInvalid", name, err)
		}
	}
}
