package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strings"
)

// GenerateNumericOTP returns a uniformly random numeric code of the given
// length, zero-padded. The source is crypto/rand; the code gates account
// access and must never come from a non-cryptographic PRNG.
func GenerateNumericOTP(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	var builder strings.Builder
	builder.Grow(digits)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}
	return builder.String(), nil
}

// HashChallengeCode computes an HMAC-SHA256 digest binding a one-time code to
// its challenge, tenant, phone and scope. A digest leaked from one challenge
// cannot verify any other, and none can be produced without the server
// secret. Output is hex.
func HashChallengeCode(secret []byte, challengeID, institutionID, phone, scope, code string) string {
	mac := hmac.New(sha256.New, secret)
	for _, part := range []string{challengeID, institutionID, phone, scope, code} {
		mac.Write([]byte(part))
		mac.Write([]byte{0})
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyChallengeCode recomputes the context-bound digest for a submitted
// code and compares it to the stored one in constant time.
func VerifyChallengeCode(secret []byte, challengeID, institutionID, phone, scope, code, storedHash string) bool {
	candidate := HashChallengeCode(secret, challengeID, institutionID, phone, scope, strings.TrimSpace(code))
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
