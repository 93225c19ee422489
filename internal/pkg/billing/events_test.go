package billing

import "testing"

func TestParseWebhookEventCheckoutCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_abc",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"mode": "Subscription",
			"customer": "cus_9",
			"subscription": "sub_9",
			"metadata": {"userId": "42"}
		}}
	}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkout, ok := ev.(CheckoutCompleted)
	if !ok {
		t.Fatalf("expected CheckoutCompleted, got %T", ev)
	}
	if checkout.EventID() != "evt_abc" {
		t.Errorf("expected event id evt_abc, got %q", checkout.EventID())
	}
	if checkout.SessionID != "cs_test_1" || checkout.Mode != CheckoutModeSubscription {
		t.Errorf("unexpected session fields: %+v", checkout)
	}
	if checkout.CustomerRef != "cus_9" || checkout.SubscriptionRef != "sub_9" || checkout.AccountRef != "42" {
		t.Errorf("unexpected refs: %+v", checkout)
	}
}

func TestParseWebhookEventInvoicePaid(t *testing.T) {
	payload := []byte(`{
		"id": "evt_inv",
		"type": "invoice.paid",
		"data": {"object": {
			"id": "in_1",
			"customer": "cus_9",
			"subscription": "sub_9",
			"lines": {"data": [{"price": {"id": "price_starter"}}]}
		}}
	}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	invoice, ok := ev.(InvoicePaid)
	if !ok {
		t.Fatalf("expected InvoicePaid, got %T", ev)
	}
	if invoice.InvoiceID != "in_1" || invoice.PriceRef != "price_starter" {
		t.Errorf("unexpected invoice fields: %+v", invoice)
	}
}

func TestParseWebhookEventSubscriptionUpdated(t *testing.T) {
	payload := []byte(`{
		"id": "evt_sub",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_9",
			"customer": "cus_9",
			"status": "Active",
			"items": {"data": [{"price": {"id": "price_pro"}}]}
		}}
	}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, ok := ev.(SubscriptionUpdated)
	if !ok {
		t.Fatalf("expected SubscriptionUpdated, got %T", ev)
	}
	if updated.Status != SubscriptionStatusActive || updated.PriceRef != "price_pro" {
		t.Errorf("unexpected subscription fields: %+v", updated)
	}
}

func TestParseWebhookEventSubscriptionDeleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_del",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_9", "customer": "cus_9", "status": "canceled"}}
	}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deleted, ok := ev.(SubscriptionDeleted)
	if !ok {
		t.Fatalf("expected SubscriptionDeleted, got %T", ev)
	}
	if deleted.SubscriptionRef != "sub_9" || deleted.CustomerRef != "cus_9" {
		t.Errorf("unexpected fields: %+v", deleted)
	}
}

func TestParseWebhookEventUnknownTypeIsDropped(t *testing.T) {
	payload := []byte(`{"id": "evt_x", "type": "payment_intent.created", "data": {"object": {}}}`)

	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("unknown types must not error: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil event for unknown type, got %T", ev)
	}
}

func TestParseWebhookEventMalformedJSON(t *testing.T) {
	if _, err := ParseWebhookEvent([]byte(`{"id": `)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
