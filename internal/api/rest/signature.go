package rest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature headers. The X-Slack-* names are accepted as well.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Request-Timestamp"

	headerSlackSignature = "X-Slack-Signature"
	headerSlackTimestamp = "X-Slack-Request-Timestamp"

	signatureVersion = "v0"
)

var (
	errSecretMissing      = errors.New("signing secret is not configured")
	errHeadersMissing     = errors.New("signature headers are missing")
	errMalformedTimestamp = errors.New("request timestamp is malformed")
	errStaleRequest       = errors.New("request timestamp is outside the tolerance")
	errMalformedSignature = errors.New("signature is malformed")
	errSignatureMismatch  = errors.New("signature mismatch")
)

// Sign returns the v0=<hex> HMAC-SHA256 signature of v0:<timestamp>:<body>.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureVersion + ":" + timestamp + ":"))
	mac.Write(body)

	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signed request. The timestamp is Unix seconds and may
// differ from now by at most tolerance in either direction.
func Verify(secret string, tolerance time.Duration, now time.Time, timestamp, signature string, body []byte) error {
	if secret == "" {
		return errSecretMissing
	}

	if timestamp == "" || signature == "" {
		return errHeadersMissing
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformedTimestamp, err)
	}

	skew := now.Sub(time.Unix(seconds, 0))
	if skew < 0 {
		skew = -skew
	}

	if skew > tolerance {
		return fmt.Errorf("%w: skew %s", errStaleRequest, skew)
	}

	if !strings.HasPrefix(signature, signatureVersion+"=") {
		return errMalformedSignature
	}

	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errSignatureMismatch
	}

	return nil
}
