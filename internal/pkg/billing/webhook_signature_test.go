package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signStripePayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	secret := "whsec_test"
	now := time.Now().Unix()

	tests := []struct {
		name      string
		header    string
		secret    string
		tolerance time.Duration
		want      bool
	}{
		{
			name:      "valid signature",
			header:    signStripePayload(payload, secret, now),
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      true,
		},
		{
			name:      "wrong secret",
			header:    signStripePayload(payload, "whsec_other", now),
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      false,
		},
		{
			name:      "expired timestamp",
			header:    signStripePayload(payload, secret, now-3600),
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      false,
		},
		{
			name:      "old timestamp accepted without tolerance",
			header:    signStripePayload(payload, secret, now-3600),
			secret:    secret,
			tolerance: 0,
			want:      true,
		},
		{
			name:      "tampered payload",
			header:    signStripePayload([]byte(`{"id":"evt_2"}`), secret, now),
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      false,
		},
		{
			name:      "second v1 signature matches",
			header:    fmt.Sprintf("t=%d,v1=deadbeef,%s", now, signStripePayload(payload, secret, now)[len(fmt.Sprintf("t=%d,", now)):]),
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      true,
		},
		{
			name:      "empty header",
			header:    "",
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      false,
		},
		{
			name:      "empty secret",
			header:    signStripePayload(payload, secret, now),
			secret:    "",
			tolerance: DefaultSignatureTolerance,
			want:      false,
		},
		{
			name:      "missing timestamp",
			header:    "v1=deadbeef",
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      false,
		},
		{
			name:      "garbage header",
			header:    "not-a-signature",
			secret:    secret,
			tolerance: DefaultSignatureTolerance,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifyStripeWebhookSignature(payload, tt.header, tt.secret, tt.tolerance)
			if got != tt.want {
				t.Errorf("VerifyStripeWebhookSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
