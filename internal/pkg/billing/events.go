package billing

import (
	"encoding/json"
	"strings"
)

// Checkout session modes as delivered by the provider.
const (
	CheckoutModeSubscription = "subscription"
	CheckoutModePayment      = "payment"
)

// Subscription statuses the reconciler distinguishes. Anything else is
// passed through untouched and treated as still entitling.
const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
)

// Event is one validated billing event. The provider payloads are loosely
// typed JSON; at this boundary they become a closed set of variants carrying
// only the fields the reconciler acts on. Unknown event kinds never reach
// the reconciler.
type Event interface {
	// EventID returns the provider's unique event identifier.
	EventID() string
}

// CheckoutCompleted is a finished checkout session, either a new
// subscription or a one-time credit pack purchase depending on Mode.
type CheckoutCompleted struct {
	ID              string
	SessionID       string
	Mode            string
	CustomerRef     string
	SubscriptionRef string
	PriceRef        string
	AccountRef      string // internal user id passed through checkout metadata
}

func (e CheckoutCompleted) EventID() string { return e.ID }

// InvoicePaid is a successful recurring charge (renewal).
type InvoicePaid struct {
	ID              string
	InvoiceID       string
	CustomerRef     string
	SubscriptionRef string
	PriceRef        string
}

func (e InvoicePaid) EventID() string { return e.ID }

// SubscriptionUpdated reflects any change to an existing subscription,
// including cancellation (via Status).
type SubscriptionUpdated struct {
	ID              string
	SubscriptionRef string
	CustomerRef     string
	Status          string
	PriceRef        string
}

func (e SubscriptionUpdated) EventID() string { return e.ID }

// SubscriptionDeleted is the provider removing a subscription entirely.
type SubscriptionDeleted struct {
	ID              string
	SubscriptionRef string
	CustomerRef     string
}

func (e SubscriptionDeleted) EventID() string { return e.ID }

// ParseWebhookEvent maps a raw provider payload to one of the closed event
// variants. Event kinds the reconciler does not handle return (nil, nil);
// only malformed JSON is an error.
func ParseWebhookEvent(payload []byte) (Event, error) {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Type {
	case "checkout.session.completed":
		var obj struct {
			ID           string `json:"id"`
			Mode         string `json:"mode"`
			Customer     string `json:"customer"`
			Subscription string `json:"subscription"`
			Metadata     struct {
				UserID string `json:"userId"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &obj); err != nil {
			return nil, err
		}
		return CheckoutCompleted{
			ID:              envelope.ID,
			SessionID:       strings.TrimSpace(obj.ID),
			Mode:            strings.ToLower(strings.TrimSpace(obj.Mode)),
			CustomerRef:     strings.TrimSpace(obj.Customer),
			SubscriptionRef: strings.TrimSpace(obj.Subscription),
			AccountRef:      strings.TrimSpace(obj.Metadata.UserID),
		}, nil

	case "invoice.paid":
		var obj struct {
			ID           string `json:"id"`
			Customer     string `json:"customer"`
			Subscription string `json:"subscription"`
			Lines        struct {
				Data []struct {
					Price struct {
						ID string `json:"id"`
					} `json:"price"`
				} `json:"data"`
			} `json:"lines"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &obj); err != nil {
			return nil, err
		}
		ev := InvoicePaid{
			ID:              envelope.ID,
			InvoiceID:       strings.TrimSpace(obj.ID),
			CustomerRef:     strings.TrimSpace(obj.Customer),
			SubscriptionRef: strings.TrimSpace(obj.Subscription),
		}
		if len(obj.Lines.Data) > 0 {
			ev.PriceRef = strings.TrimSpace(obj.Lines.Data[0].Price.ID)
		}
		return ev, nil

	case "customer.subscription.updated", "customer.subscription.deleted":
		var obj struct {
			ID       string `json:"id"`
			Customer string `json:"customer"`
			Status   string `json:"status"`
			Items    struct {
				Data []struct {
					Price struct {
						ID string `json:"id"`
					} `json:"price"`
				} `json:"data"`
			} `json:"items"`
		}
		if err := json.Unmarshal(envelope.Data.Object, &obj); err != nil {
			return nil, err
		}
		if envelope.Type == "customer.subscription.deleted" {
			return SubscriptionDeleted{
				ID:              envelope.ID,
				SubscriptionRef: strings.TrimSpace(obj.ID),
				CustomerRef:     strings.TrimSpace(obj.Customer),
			}, nil
		}
		ev := SubscriptionUpdated{
			ID:              envelope.ID,
			SubscriptionRef: strings.TrimSpace(obj.ID),
			CustomerRef:     strings.TrimSpace(obj.Customer),
			Status:          strings.ToLower(strings.TrimSpace(obj.Status)),
		}
		if len(obj.Items.Data) > 0 {
			ev.PriceRef = strings.TrimSpace(obj.Items.Data[0].Price.ID)
		}
		return ev, nil
	}

	// Event kinds we do not handle are acknowledged and dropped.
	return nil, nil
}
