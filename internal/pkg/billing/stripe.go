package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shotmakerhq/shotmaker/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeClient is a minimal client for the handful of Stripe endpoints the
// app touches: checkout sessions, the billing portal, customers and
// subscription lookups. Requests are form-encoded and authenticated with
// the secret key, per the provider's API conventions.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// CheckoutSession is the subset of a created checkout session the app uses.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Subscription is the subset of a retrieved subscription the app uses.
type Subscription struct {
	ID       string
	Status   string
	Customer string
	PriceRef string
}

// NewStripeClientFromEnv builds a client from STRIPE_SECRET_KEY.
func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCustomer creates a provider customer linked back to the local user
// via metadata, returning the new customer id.
func (c *StripeClient) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	form := url.Values{}
	form.Set("email", strings.TrimSpace(email))
	form.Set("metadata[userId]", strconv.FormatUint(uint64(userID), 10))

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/customers", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("stripe customer create returned empty id")
	}
	return out.ID, nil
}

// CreateCheckoutSession starts a checkout for one price in the given mode
// ("subscription" or "payment").
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, customerID, priceRef, mode string, userID uint, successURL, cancelURL string) (*CheckoutSession, error) {
	if strings.TrimSpace(priceRef) == "" {
		return nil, errors.New("price ref is required")
	}

	form := url.Values{}
	form.Set("mode", mode)
	form.Set("customer", customerID)
	form.Set("line_items[0][price]", priceRef)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("metadata[userId]", strconv.FormatUint(uint64(userID), 10))

	var out CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, errors.New("stripe checkout session returned no url")
	}
	return &out, nil
}

// CreateBillingPortalSession returns a URL where the customer can manage
// their subscription.
func (c *StripeClient) CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("return_url", returnURL)

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/billing_portal/sessions", form, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("stripe portal session returned no url")
	}
	return out.URL, nil
}

// RetrieveSubscription fetches a subscription and its first item's price.
func (c *StripeClient) RetrieveSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	var out struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Customer string `json:"customer"`
		Items    struct {
			Data []struct {
				Price struct {
					ID string `json:"id"`
				} `json:"price"`
			} `json:"data"`
		} `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}

	sub := &Subscription{
		ID:       out.ID,
		Status:   out.Status,
		Customer: out.Customer,
	}
	if len(out.Items.Data) > 0 {
		sub.PriceRef = out.Items.Data[0].Price.ID
	}
	return sub, nil
}

// SubscriptionPrice implements PriceResolver.
func (c *StripeClient) SubscriptionPrice(ctx context.Context, subscriptionID string) (string, error) {
	sub, err := c.RetrieveSubscription(ctx, subscriptionID)
	if err != nil {
		return "", err
	}
	return sub.PriceRef, nil
}

// CheckoutSessionPrice implements PriceResolver by listing the session's
// line items; checkout payloads do not embed them.
func (c *StripeClient) CheckoutSessionPrice(ctx context.Context, sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", errors.New("session id is required")
	}

	var out struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	}
	path := "/checkout/sessions/" + url.PathEscape(id) + "/line_items?limit=1"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", nil
	}
	return out.Data[0].Price.ID, nil
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.APIBaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe request %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}
