package jwtx

import "errors"

var (
	// ErrMalformed reports a token whose structure cannot be parsed.
	ErrMalformed = errors.New("jwtx: malformed token")

	// ErrInvalidSig reports a token whose signature does not match.
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	// ErrExpired reports a token past its exp claim.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrNotYetValid reports a token used before its nbf claim.
	ErrNotYetValid = errors.New("jwtx: token not yet valid")

	// ErrIssuer reports an issuer mismatch.
	ErrIssuer = errors.New("jwtx: issuer mismatch")

	// ErrPurpose reports a token presented for the wrong purpose, e.g.
	// a pending-challenge token used as a session.
	ErrPurpose = errors.New("jwtx: wrong token purpose")

	// ErrInvalidClaim covers any other claim validation failure.
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)
