package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ecoshop-be/internal/config"
	"ecoshop-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	stripeBaseURL = "https://api.stripe.com"

	// Webhook deliveries older than this are rejected as replays.
	signatureTolerance = 5 * time.Minute
)

type stripeGateway struct {
	apiKey        string
	webhookSecret string
	successURL    string
	cancelURL     string
	httpClient    *http.Client
}

// ----------------- Constructor -----------------

func NewStripeGateway(cfg *config.Config) Gateway {
	if cfg.StripeSecretKey == "" {
		logger.L().Warn("Stripe secret key is empty")
	}

	return &stripeGateway{
		apiKey:        cfg.StripeSecretKey,
		webhookSecret: cfg.StripeWebhookSecret,
		successURL:    cfg.StripeSuccessURL,
		cancelURL:     cfg.StripeCancelURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ----------------- CreateCheckoutSession -----------------

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, orderID uuid.UUID, amountCents int64, customerEmail string) (*CheckoutSession, error) {
	log := logger.L().With(
		zap.String("order_id", orderID.String()),
		zap.Int64("amount_cents", amountCents),
	)

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", g.successURL)
	form.Set("cancel_url", g.cancelURL)
	form.Set("customer_email", customerEmail)
	form.Set("metadata[orderId]", orderID.String())
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]",
		fmt.Sprintf("Pedido EcoShop #%s", orderID.String()[:5]))
	form.Set("line_items[0][price_data][product_data][description]",
		"Compra sostenible en EcoShop")

	req, err := http.NewRequestWithContext(ctx, "POST",
		stripeBaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return nil, err
	}

	req.SetBasicAuth(g.apiKey, "")
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	log.Info("Creating Stripe checkout session")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error("Stripe request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("Stripe returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("stripe error: %s", string(bodyBytes))
	}

	var res struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Failed decoding Stripe response", zap.Error(err))
		return nil, err
	}

	log.Info("Stripe checkout session created", zap.String("session_id", res.ID))

	return &CheckoutSession{
		SessionID: res.ID,
		URL:       res.URL,
	}, nil
}

// ----------------- Verify Signature -----------------

// VerifySignature checks the Stripe-Signature header: an HMAC-SHA256 of
// "<timestamp>.<payload>" with the webhook secret, plus a freshness
// window against replayed deliveries.
func (g *stripeGateway) VerifySignature(header string, payload []byte) error {
	if g.webhookSecret == "" {
		return nil // skip in dev
	}

	var timestamp int64
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, v)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	if time.Since(time.Unix(timestamp, 0)) > signatureTolerance {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}

	return ErrInvalidSignature
}
