package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"ecoshop-be/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRoundTripper allows us to mock the HTTP response
type MockRoundTripper func(req *http.Request) *http.Response

func (f MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func newTestGateway(rt http.RoundTripper) *stripeGateway {
	gw := NewStripeGateway(&config.Config{
		StripeSecretKey:     "sk_test_123",
		StripeWebhookSecret: "whsec_test",
		StripeSuccessURL:    "https://eco.shop/success",
		StripeCancelURL:     "https://eco.shop/cancel",
	}).(*stripeGateway)

	if rt != nil {
		gw.httpClient = &http.Client{Transport: rt}
	}
	return gw
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		var captured *http.Request

		gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
			captured = req
			body := `{"id": "cs_test_123", "url": "https://checkout.stripe.com/pay/cs_test_123"}`
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(body)),
			}
		}))

		session, err := gw.CreateCheckoutSession(ctx, orderID, 3698, "ana@example.com")
		require.NoError(t, err)
		assert.Equal(t, "cs_test_123", session.SessionID)
		assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", session.URL)

		require.NotNil(t, captured)
		assert.Equal(t, "/v1/checkout/sessions", captured.URL.Path)

		user, _, ok := captured.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test_123", user)

		require.NoError(t, captured.ParseForm())
		assert.Equal(t, orderID.String(), captured.PostForm.Get("metadata[orderId]"))
		assert.Equal(t, "3698", captured.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", captured.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "ana@example.com", captured.PostForm.Get("customer_email"))
	})

	t.Run("StripeError", func(t *testing.T) {
		gw := newTestGateway(MockRoundTripper(func(req *http.Request) *http.Response {
			return &http.Response{
				StatusCode: http.StatusBadRequest,
				Body:       io.NopCloser(bytes.NewBufferString(`{"error": {"message": "invalid amount"}}`)),
			}
		}))

		_, err := gw.CreateCheckoutSession(ctx, orderID, -1, "ana@example.com")
		assert.Error(t, err)
	})
}

func signPayload(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestStripeGateway_VerifySignature(t *testing.T) {
	gw := newTestGateway(nil)
	payload := []byte(`{"type": "checkout.session.completed"}`)

	t.Run("Valid", func(t *testing.T) {
		ts := time.Now().Unix()
		header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_test", ts, payload))

		assert.NoError(t, gw.VerifySignature(header, payload))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		ts := time.Now().Unix()
		header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_other", ts, payload))

		assert.ErrorIs(t, gw.VerifySignature(header, payload), ErrInvalidSignature)
	})

	t.Run("TamperedPayload", func(t *testing.T) {
		ts := time.Now().Unix()
		header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_test", ts, payload))

		assert.ErrorIs(t, gw.VerifySignature(header, []byte(`{"tampered": true}`)), ErrInvalidSignature)
	})

	t.Run("StaleTimestamp", func(t *testing.T) {
		ts := time.Now().Add(-10 * time.Minute).Unix()
		header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_test", ts, payload))

		assert.ErrorIs(t, gw.VerifySignature(header, payload), ErrInvalidSignature)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		assert.ErrorIs(t, gw.VerifySignature("not-a-signature", payload), ErrInvalidSignature)
		assert.ErrorIs(t, gw.VerifySignature("", payload), ErrInvalidSignature)
		assert.ErrorIs(t, gw.VerifySignature("t=abc,v1=def", payload), ErrInvalidSignature)
	})

	t.Run("SecondSignatureAccepted", func(t *testing.T) {
		ts := time.Now().Unix()
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s", ts, "deadbeef", signPayload("whsec_test", ts, payload))

		assert.NoError(t, gw.VerifySignature(header, payload))
	})

	t.Run("EmptySecretSkipsVerification", func(t *testing.T) {
		devGw := NewStripeGateway(&config.Config{StripeSecretKey: "sk_test_123"}).(*stripeGateway)
		assert.NoError(t, devGw.VerifySignature("anything", payload))
	})
}
