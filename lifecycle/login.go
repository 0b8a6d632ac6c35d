package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cqcsystem/cqcsrv/pkg/cqcerrors"
)

// SecureStore is the host-specific secure-storage fallback consulted when
// CQC_SRVNAME/CQC_SRVPASS are not set in the environment (spec.md §4.1
// step 1). It stands in for the original's OS-credential-store lookup;
// no SPEC_FULL component talks to a cloud key vault, so this is a local
// interface rather than an Azure/KMS client (see DESIGN.md dropped-deps).
type SecureStore interface {
	Lookup(ctx context.Context, keyPath string) (user, password string, found bool, err error)
}

// NullSecureStore is the default SecureStore: it never finds anything,
// matching a host with no configured credential store.
type NullSecureStore struct{}

func (NullSecureStore) Lookup(ctx context.Context, keyPath string) (string, string, bool, error) {
	return "", "", false, nil
}

// SecurityClient is the ORB-obtained security-service proxy the login
// stage talks to. A derived server supplies its own implementation; the
// framework owns no transport (spec.md Non-goals).
type SecurityClient interface {
	// LoginRequest begins a login exchange for user, returning an
	// opaque challenge to be validated.
	LoginRequest(ctx context.Context, user string) (challenge []byte, err error)
	// Validate submits the hashed password against the challenge and, on
	// success, returns a security token.
	Validate(ctx context.Context, challenge []byte, passwordHash string) (token string, err error)
}

// SecurityClientFactory obtains a SecurityClient from the ORB, bounded by
// a 5-second timeout per spec.md §4.1 step 3.
type SecurityClientFactory func(ctx context.Context) (SecurityClient, error)

const (
	loginClientTimeout = 5 * time.Second
	loginRetryDelay    = 5 * time.Second
	loginMissingDelay  = 15 * time.Second
)

// LoginResult holds what the login stage stores for later use by derived
// code, per spec.md §4.1 step 6.
type LoginResult struct {
	Token        string
	PasswordHash string
}

// loginSecureKeyPath is the fixed key path used for the secure-storage
// fallback lookup.
const loginSecureKeyPath = "cqcsrv/service-account"

// runLogin executes the login sub-protocol described in spec.md §4.1. It
// is invoked by the engine during the LogIn stage only when
// ServerDescriptor.RequiresLogin is set.
func runLogin(ctx context.Context, store SecureStore, newClient SecurityClientFactory, attempt int) (StageResult, *LoginResult) {
	user := os.Getenv("CQC_SRVNAME")
	pass := os.Getenv("CQC_SRVPASS")

	if user == "" || pass == "" {
		if store == nil {
			store = NullSecureStore{}
		}
		storedUser, storedPass, found, err := store.Lookup(ctx, loginSecureKeyPath)
		if err == nil && found {
			if user == "" {
				user = storedUser
			}
			if pass == "" {
				pass = storedPass
			}
		}
	}

	if user == "" || pass == "" {
		return ResultRetry(loginMissingDelay, cqcerrors.TransientDependency(
			"credentials", errFmt("CQC_SRVNAME/CQC_SRVPASS not set and no secure-store entry"))), nil
	}

	if newClient == nil {
		return ResultFailed(cqcerrors.FatalConfig("SecurityClientFactory", "no security client factory configured")), nil
	}

	clientCtx, cancel := context.WithTimeout(ctx, loginClientTimeout)
	defer cancel()

	client, err := newClient(clientCtx)
	if err != nil {
		return retryOnlyOnceLogged(loginRetryDelay, "obtain security client", err, attempt), nil
	}

	challenge, err := client.LoginRequest(clientCtx, user)
	if err != nil {
		return retryOnlyOnceLogged(loginRetryDelay, "login request", err, attempt), nil
	}

	hash := hashPassword(pass)
	token, err := client.Validate(clientCtx, challenge, hash)
	if err != nil {
		return retryOnlyOnceLogged(loginRetryDelay, "validate challenge", err, attempt), nil
	}

	return ResultSuccess(), &LoginResult{Token: token, PasswordHash: hash}
}

// retryOnlyOnceLogged builds a Retry result. The "log only once per
// attempt under diagnostic verbosity" requirement (spec.md §4.1 step 5) is
// the caller's responsibility: the engine logs a stage's Retry transition
// exactly once per attempt, at debug level (engine.go), so no extra
// suppression logic is needed here beyond tagging the error with the
// failed step.
func retryOnlyOnceLogged(delay time.Duration, step string, err error, attempt int) StageResult {
	return ResultRetry(delay, cqcerrors.TransientDependency(step, err).WithDetail("attempt", attempt))
}

func hashPassword(pass string) string {
	sum := sha256.Sum256([]byte(pass))
	return hex.EncodeToString(sum[:])
}

// MintSessionToken signs a short-lived JWT asserting user as the session
// identity, used by a SecurityClient implementation's Validate step to
// produce the token stored in LoginResult.Token.
func MintSessionToken(signingKey []byte, user string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": user,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// ParseSessionToken validates and extracts the subject from a token minted
// by MintSessionToken.
func ParseSessionToken(signingKey []byte, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errFmt("invalid session token")
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func errFmt(msg string) error { return simpleErr(msg) }
