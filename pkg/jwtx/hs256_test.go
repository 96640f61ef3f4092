package jwtx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "authsvc-test"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestSignAndVerify_Session(t *testing.T) {
	signer := NewSigner(testSecret)
	verifier := NewVerifier(testSecret, testIssuer)

	now := time.Now().UTC()
	raw, err := signer.Sign(NewSessionClaims("user-1", "alice", "user", testIssuer, time.Hour, now))
	require.NoError(t, err)

	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "user", claims.Role)
	require.Equal(t, PurposeSession, claims.Purpose)
	require.NotEmpty(t, claims.ID, "jti should be set")
	require.NoError(t, claims.RequirePurpose(PurposeSession))
}

func TestSignAndVerify_Challenge(t *testing.T) {
	signer := NewSigner(testSecret)
	verifier := NewVerifier(testSecret, testIssuer)

	now := time.Now().UTC()
	raw, err := signer.Sign(NewChallengeClaims("user-2", "carol", testIssuer, 5*time.Minute, now))
	require.NoError(t, err)

	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, PurposeChallenge, claims.Purpose)
	require.Empty(t, claims.Role, "challenge tokens carry no role")

	require.ErrorIs(t, claims.RequirePurpose(PurposeSession), ErrPurpose)
	require.NoError(t, claims.RequirePurpose(PurposeChallenge))
}

func TestVerify_WrongSecret(t *testing.T) {
	signer := NewSigner(testSecret)
	verifier := NewVerifier([]byte("a completely different secret!!!"), testIssuer)

	raw, err := signer.Sign(NewSessionClaims("user-1", "alice", "user", testIssuer, time.Hour, time.Now().UTC()))
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerify_Expired(t *testing.T) {
	signer := NewSigner(testSecret)
	verifier := NewVerifier(testSecret, testIssuer)

	issued := time.Now().UTC().Add(-2 * time.Hour)
	raw, err := signer.Sign(NewSessionClaims("user-1", "alice", "user", testIssuer, time.Hour, issued))
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	verifier := NewVerifier(testSecret, testIssuer)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := verifier.Verify(raw)
		require.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	signer := NewSigner(testSecret)
	verifier := NewVerifier(testSecret, testIssuer)

	raw, err := signer.Sign(NewSessionClaims("user-1", "alice", "user", "someone-else", time.Hour, time.Now().UTC()))
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerify_RejectsUnsignedAlg(t *testing.T) {
	verifier := NewVerifier(testSecret, testIssuer)

	// alg=none tokens must never verify
	tok := jwt.NewWithClaims(jwt.SigningMethodNone,
		NewSessionClaims("user-1", "alice", "user", testIssuer, time.Hour, time.Now().UTC()))
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.Error(t, err)
}

func TestVerify_MissingExpiry(t *testing.T) {
	verifier := NewVerifier(testSecret, testIssuer)

	claims := Claims{Purpose: PurposeSession}
	claims.Subject = "user-1"
	claims.Issuer = testIssuer
	raw, err := NewSigner(testSecret).Sign(claims)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	require.Error(t, err, "tokens without exp must be rejected")
}
