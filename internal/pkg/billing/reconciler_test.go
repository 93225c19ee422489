package billing

import (
	"context"
	"testing"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/credits"
	"github.com/shotmakerhq/shotmaker/internal/pkg/entitlements"
	"gorm.io/gorm"
)

type fakeAccountStore struct {
	users map[uint]*models.User
}

func (f *fakeAccountStore) GetByID(id uint) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountStore) GetByStripeCustomerID(customerID string) (*models.User, error) {
	for _, u := range f.users {
		if u.StripeCustomerID == customerID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountStore) UpdatePlan(userID uint, plan string, subscriptionRef string) error {
	u, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Plan = plan
	u.StripeSubscriptionID = subscriptionRef
	return nil
}

type fakePriceResolver struct {
	subscriptionPrices map[string]string
	sessionPrices      map[string]string
}

func (f *fakePriceResolver) SubscriptionPrice(ctx context.Context, subscriptionID string) (string, error) {
	return f.subscriptionPrices[subscriptionID], nil
}

func (f *fakePriceResolver) CheckoutSessionPrice(ctx context.Context, sessionID string) (string, error) {
	return f.sessionPrices[sessionID], nil
}

type reconcilerFixture struct {
	reconciler *Reconciler
	accounts   *fakeAccountStore
	ledger     *repository.MemoryLedger
}

func newReconcilerFixture(t *testing.T, balance int, plan string) *reconcilerFixture {
	t.Helper()

	accounts := &fakeAccountStore{users: map[uint]*models.User{
		1: {ID: 1, Plan: plan, CreditBalance: balance, StripeCustomerID: "cus_1"},
	}}
	ledger := repository.NewMemoryLedger(map[uint]int{1: balance})
	creditSvc := credits.NewService(ledger)
	catalog := entitlements.NewCatalog(
		[]entitlements.PlanDefinition{
			{ID: entitlements.PlanFree, Name: "Free", MonthlyCredits: 50},
			{ID: entitlements.PlanStarter, Name: "Starter", MonthlyCredits: 200, PriceRef: "price_starter"},
			{ID: entitlements.PlanPro, Name: "Pro", MonthlyCredits: 600, PriceRef: "price_pro"},
		},
		[]entitlements.CreditPackDefinition{
			{ID: "credits-500", Credits: 500, PriceRef: "price_pack_500"},
		},
	)
	prices := &fakePriceResolver{
		subscriptionPrices: map[string]string{"sub_1": "price_starter"},
		sessionPrices:      map[string]string{"cs_pack": "price_pack_500"},
	}

	return &reconcilerFixture{
		reconciler: NewReconciler(accounts, creditSvc, catalog, prices),
		accounts:   accounts,
		ledger:     ledger,
	}
}

func (f *reconcilerFixture) balance(t *testing.T) int {
	t.Helper()
	balance, err := f.ledger.GetBalance(context.Background(), 1)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return balance
}

func TestCheckoutSubscriptionSetsPlanAndAllowance(t *testing.T) {
	f := newReconcilerFixture(t, 35, "free")

	ev := CheckoutCompleted{
		ID:              "evt_1",
		SessionID:       "cs_1",
		Mode:            CheckoutModeSubscription,
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
	}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := f.accounts.users[1]
	if user.Plan != "starter" || user.StripeSubscriptionID != "sub_1" {
		t.Fatalf("expected starter plan with sub_1, got plan=%q sub=%q", user.Plan, user.StripeSubscriptionID)
	}
	if got := f.balance(t); got != 200 {
		t.Fatalf("expected balance 200 (delta +165), got %d", got)
	}
	entries := f.ledger.Entries(1)
	if len(entries) != 1 || entries[0].Amount != 165 || entries[0].Reason != models.CreditReasonSubscriptionStart {
		t.Fatalf("unexpected ledger entries: %+v", entries)
	}
}

func TestCheckoutSubscriptionRedeliveryIsIdempotent(t *testing.T) {
	f := newReconcilerFixture(t, 35, "free")

	ev := CheckoutCompleted{
		ID:              "evt_1",
		SessionID:       "cs_1",
		Mode:            CheckoutModeSubscription,
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
	}
	for i := 0; i < 2; i++ {
		if err := f.reconciler.Process(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i+1, err)
		}
	}

	if got := f.balance(t); got != 200 {
		t.Fatalf("expected balance 200 after redelivery, got %d", got)
	}
	if got := len(f.ledger.Entries(1)); got != 1 {
		t.Fatalf("expected 1 ledger entry after redelivery, got %d", got)
	}
}

func TestCheckoutPaymentGrantsPack(t *testing.T) {
	f := newReconcilerFixture(t, 35, "free")

	ev := CheckoutCompleted{
		ID:          "evt_2",
		SessionID:   "cs_pack",
		Mode:        CheckoutModePayment,
		CustomerRef: "cus_1",
	}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.balance(t); got != 535 {
		t.Fatalf("expected balance 535 after pack purchase, got %d", got)
	}
	if f.accounts.users[1].Plan != "free" {
		t.Fatalf("pack purchase must not change the plan, got %q", f.accounts.users[1].Plan)
	}
}

func TestInvoicePaidRenewsAllowance(t *testing.T) {
	f := newReconcilerFixture(t, 12, "starter")
	f.accounts.users[1].StripeSubscriptionID = "sub_1"

	ev := InvoicePaid{
		ID:              "evt_3",
		InvoiceID:       "in_1",
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
		PriceRef:        "price_starter",
	}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.balance(t); got != 200 {
		t.Fatalf("expected renewal to reset balance to 200, got %d", got)
	}
	entries := f.ledger.Entries(1)
	if len(entries) != 1 || entries[0].Reason != models.CreditReasonSubscriptionRenewal {
		t.Fatalf("unexpected ledger entries: %+v", entries)
	}
}

func TestInvoicePaidUnknownPriceFallsBackToFree(t *testing.T) {
	f := newReconcilerFixture(t, 300, "starter")

	ev := InvoicePaid{
		ID:          "evt_4",
		InvoiceID:   "in_2",
		CustomerRef: "cus_1",
		PriceRef:    "price_gone",
	}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.accounts.users[1].Plan != "free" {
		t.Fatalf("expected fall back to free plan, got %q", f.accounts.users[1].Plan)
	}
	if got := f.balance(t); got != 50 {
		t.Fatalf("expected free allowance 50, got %d", got)
	}
}

func TestSubscriptionUpdatedSamePlanLeavesBalance(t *testing.T) {
	f := newReconcilerFixture(t, 73, "starter")

	ev := SubscriptionUpdated{
		ID:              "evt_5",
		SubscriptionRef: "sub_1",
		CustomerRef:     "cus_1",
		Status:          SubscriptionStatusActive,
		PriceRef:        "price_starter",
	}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Entitlement unchanged: mid-cycle balance must not be reset.
	if got := f.balance(t); got != 73 {
		t.Fatalf("expected balance untouched at 73, got %d", got)
	}
	if got := len(f.ledger.Entries(1)); got != 0 {
		t.Fatalf("expected no ledger entries, got %d", got)
	}
}

func TestSubscriptionUpdatedPlanChangeRegrants(t *testing.T) {
	f := newReconcilerFixture(t, 73, "starter")

	ev := SubscriptionUpdated{
		ID:              "evt_6",
		SubscriptionRef: "sub_1",
		CustomerRef:     "cus_1",
		Status:          SubscriptionStatusActive,
		PriceRef:        "price_pro",
	}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.accounts.users[1].Plan != "pro" {
		t.Fatalf("expected pro plan, got %q", f.accounts.users[1].Plan)
	}
	if got := f.balance(t); got != 600 {
		t.Fatalf("expected upgrade to set balance to 600, got %d", got)
	}
}

func TestSubscriptionCanceledResetsToFree(t *testing.T) {
	for _, status := range []string{SubscriptionStatusCanceled, SubscriptionStatusIncompleteExpired} {
		f := newReconcilerFixture(t, 123, "pro")
		f.accounts.users[1].StripeSubscriptionID = "sub_1"

		ev := SubscriptionUpdated{
			ID:              "evt_7",
			SubscriptionRef: "sub_1",
			CustomerRef:     "cus_1",
			Status:          status,
			PriceRef:        "price_pro",
		}
		if err := f.reconciler.Process(context.Background(), ev); err != nil {
			t.Fatalf("status %q: unexpected error: %v", status, err)
		}

		user := f.accounts.users[1]
		if user.Plan != "free" || user.StripeSubscriptionID != "" {
			t.Fatalf("status %q: expected free plan with cleared sub, got plan=%q sub=%q", status, user.Plan, user.StripeSubscriptionID)
		}
		if got := f.balance(t); got != 123 {
			t.Fatalf("status %q: cancellation must not touch balance, got %d", status, got)
		}
	}
}

func TestSubscriptionDeletedResetsToFree(t *testing.T) {
	f := newReconcilerFixture(t, 42, "starter")
	f.accounts.users[1].StripeSubscriptionID = "sub_1"

	ev := SubscriptionDeleted{ID: "evt_8", SubscriptionRef: "sub_1", CustomerRef: "cus_1"}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := f.accounts.users[1]
	if user.Plan != "free" || user.StripeSubscriptionID != "" {
		t.Fatalf("expected free plan with cleared sub, got plan=%q sub=%q", user.Plan, user.StripeSubscriptionID)
	}
	if got := f.balance(t); got != 42 {
		t.Fatalf("deletion must not touch balance, got %d", got)
	}
}

func TestUnresolvableEventsAreNoOps(t *testing.T) {
	f := newReconcilerFixture(t, 35, "free")

	// Unknown customer.
	ev := InvoicePaid{ID: "evt_9", InvoiceID: "in_3", CustomerRef: "cus_missing", PriceRef: "price_starter"}
	if err := f.reconciler.Process(context.Background(), ev); err != nil {
		t.Fatalf("unknown customer must not error: %v", err)
	}

	// Unknown price on an active subscription update.
	ev2 := SubscriptionUpdated{ID: "evt_10", SubscriptionRef: "sub_x", CustomerRef: "cus_1", Status: SubscriptionStatusActive, PriceRef: "price_unmapped"}
	if err := f.reconciler.Process(context.Background(), ev2); err != nil {
		t.Fatalf("unmapped price must not error: %v", err)
	}

	if got := f.balance(t); got != 35 {
		t.Fatalf("no-op events must leave balance at 35, got %d", got)
	}
	if f.accounts.users[1].Plan != "free" {
		t.Fatalf("no-op events must leave plan free, got %q", f.accounts.users[1].Plan)
	}
}
