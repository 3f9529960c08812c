package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Share token errors.
var (
	ErrTokenMalformed = errors.New("share token malformed")
	ErrTokenExpired   = errors.New("share token expired")
	ErrTokenMismatch  = errors.New("share token does not match actor and subject")
	ErrTokenForged    = errors.New("share token signature invalid")
)

// DefaultShareTokenTTL bounds how long a minted share link stays creditable.
const DefaultShareTokenTTL = 48 * time.Hour

// MintShareToken issues a signed, time-boxed token binding an actor to a
// shared subject. Format: base64url(actor|subject|expiryUnix).base64url(sig).
func (kp *Keypair) MintShareToken(actor, subject string, ttl time.Duration, now time.Time) string {
	payload := tokenPayload(actor, subject, now.Add(ttl).Unix())
	sig := kp.Sign([]byte(payload))
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) +
		"." + base64.RawURLEncoding.EncodeToString(sig)
}

// VerifyShareToken checks a token's signature, expiry, and that it was
// minted for exactly this actor and subject.
func (kp *Keypair) VerifyShareToken(token, actor, subject string, now time.Time) error {
	dot := strings.IndexByte(token, '.')
	if dot < 0 {
		return ErrTokenMalformed
	}
	payload, err := base64.RawURLEncoding.DecodeString(token[:dot])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(token[dot+1:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if !Verify(payload, sig, kp.Public) {
		return ErrTokenForged
	}

	parts := strings.Split(string(payload), "|")
	if len(parts) != 3 {
		return ErrTokenMalformed
	}
	expiry, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return ErrTokenMalformed
	}
	if now.Unix() > expiry {
		return ErrTokenExpired
	}
	if parts[0] != actor || parts[1] != subject {
		return ErrTokenMismatch
	}
	return nil
}

func tokenPayload(actor, subject string, expiry int64) string {
	return actor + "|" + subject + "|" + strconv.FormatInt(expiry, 10)
}
