package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecurityClient struct {
	challenge []byte
	token     string
	loginErr  error
	validErr  error
}

func (f *fakeSecurityClient) LoginRequest(ctx context.Context, user string) ([]byte, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.challenge, nil
}

func (f *fakeSecurityClient) Validate(ctx context.Context, challenge []byte, passwordHash string) (string, error) {
	if f.validErr != nil {
		return "", f.validErr
	}
	return f.token, nil
}

func TestRunLoginMissingCredentialsRetries(t *testing.T) {
	t.Setenv("CQC_SRVNAME", "")
	t.Setenv("CQC_SRVPASS", "")

	result, login := runLogin(context.Background(), NullSecureStore{}, nil, 0)

	assert.Equal(t, Retry, result.Outcome)
	assert.Equal(t, loginMissingDelay, result.Delay)
	assert.Nil(t, login)
}

func TestRunLoginSuccessStoresTokenAndHash(t *testing.T) {
	t.Setenv("CQC_SRVNAME", "svcuser")
	t.Setenv("CQC_SRVPASS", "svcpass")

	client := &fakeSecurityClient{challenge: []byte("chal"), token: "tok-123"}
	factory := func(ctx context.Context) (SecurityClient, error) { return client, nil }

	result, login := runLogin(context.Background(), NullSecureStore{}, factory, 0)

	require.Equal(t, Success, result.Outcome)
	require.NotNil(t, login)
	assert.Equal(t, "tok-123", login.Token)
	assert.Equal(t, hashPassword("svcpass"), login.PasswordHash)
}

func TestRunLoginTransportFailureRetries(t *testing.T) {
	t.Setenv("CQC_SRVNAME", "svcuser")
	t.Setenv("CQC_SRVPASS", "svcpass")

	client := &fakeSecurityClient{loginErr: errors.New("unreachable")}
	factory := func(ctx context.Context) (SecurityClient, error) { return client, nil }

	result, login := runLogin(context.Background(), NullSecureStore{}, factory, 2)

	assert.Equal(t, Retry, result.Outcome)
	assert.Equal(t, loginRetryDelay, result.Delay)
	assert.Nil(t, login)
}

func TestMintAndParseSessionToken(t *testing.T) {
	key := []byte("test-signing-key")

	tok, err := MintSessionToken(key, "admin", 1*time.Minute)
	require.NoError(t, err)

	sub, err := ParseSessionToken(key, tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)
}

func TestParseSessionTokenRejectsBadSignature(t *testing.T) {
	tok, err := MintSessionToken([]byte("key-one"), "admin", 1*time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken([]byte("key-two"), tok)
	assert.Error(t, err)
}
