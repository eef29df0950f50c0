package rest

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestVerify covers the tolerance boundary and every malformed input.
func TestVerify(t *testing.T) {
	t.Parallel()

	const secret = "8f742231b10e8888abcd99yyyzzz85a5"

	now := time.Unix(1_700_000_000, 0)
	body := []byte("token=x&user_name=alice&command=%2Farm")
	stamp := func(offset time.Duration) string {
		return strconv.FormatInt(now.Add(offset).Unix(), 10)
	}

	cases := []struct {
		name      string
		secret    string
		timestamp string
		signature string
		wantErr   error
	}{
		{
			name:      "valid",
			secret:    secret,
			timestamp: stamp(0),
			signature: Sign(secret, stamp(0), body),
		},
		{
			name:      "299 seconds old",
			secret:    secret,
			timestamp: stamp(-299 * time.Second),
			signature: Sign(secret, stamp(-299*time.Second), body),
		},
		{
			name:      "301 seconds old",
			secret:    secret,
			timestamp: stamp(-301 * time.Second),
			signature: Sign(secret, stamp(-301*time.Second), body),
			wantErr:   errStaleRequest,
		},
		{
			name:      "301 seconds ahead",
			secret:    secret,
			timestamp: stamp(301 * time.Second),
			signature: Sign(secret, stamp(301*time.Second), body),
			wantErr:   errStaleRequest,
		},
		{
			name:      "no secret configured",
			timestamp: stamp(0),
			signature: Sign("", stamp(0), body),
			wantErr:   errSecretMissing,
		},
		{
			name:      "missing signature",
			secret:    secret,
			timestamp: stamp(0),
			wantErr:   errHeadersMissing,
		},
		{
			name:      "malformed timestamp",
			secret:    secret,
			timestamp: "yesterday",
			signature: Sign(secret, "yesterday", body),
			wantErr:   errMalformedTimestamp,
		},
		{
			name:      "wrong version",
			secret:    secret,
			timestamp: stamp(0),
			signature: "v1=abcdef",
			wantErr:   errMalformedSignature,
		},
		{
			name:      "other secret",
			secret:    secret,
			timestamp: stamp(0),
			signature: Sign("other", stamp(0), body),
			wantErr:   errSignatureMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Verify(tc.secret, 300*time.Second, now, tc.timestamp, tc.signature, body)
			if tc.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// TestVerify_TamperedBody fails when the body changes after signing.
func TestVerify_TamperedBody(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	signature := Sign("secret", ts, []byte("user_name=alice"))

	err := Verify("secret", time.Minute, now, ts, signature, []byte("user_name=mallory"))
	require.ErrorIs(t, err, errSignatureMismatch)
}
