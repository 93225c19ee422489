package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2/log"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/internal/pkg/credits"
	"github.com/shotmakerhq/shotmaker/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// AccountStore is the slice of the user repository the reconciler needs.
type AccountStore interface {
	GetByID(id uint) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	UpdatePlan(userID uint, plan string, subscriptionRef string) error
}

// PriceResolver looks up the purchased price when the webhook payload does
// not carry it (checkout sessions reference their line items indirectly).
type PriceResolver interface {
	SubscriptionPrice(ctx context.Context, subscriptionID string) (string, error)
	CheckoutSessionPrice(ctx context.Context, sessionID string) (string, error)
}

// Reconciler translates validated billing events into plan assignment and
// credit accounting calls. Every state change happens inside the accounting
// layer's atomic operations, so a failure during resolution leaves the
// account untouched. Events whose price, plan or account cannot be resolved
// are logged no-ops; returning an error here would only cause the provider
// to retry a payload that can never succeed.
type Reconciler struct {
	accounts AccountStore
	credits  *credits.Service
	catalog  *entitlements.Catalog
	prices   PriceResolver
}

// NewReconciler creates a billing event reconciler.
func NewReconciler(accounts AccountStore, creditSvc *credits.Service, catalog *entitlements.Catalog, prices PriceResolver) *Reconciler {
	return &Reconciler{
		accounts: accounts,
		credits:  creditSvc,
		catalog:  catalog,
		prices:   prices,
	}
}

// Process applies one billing event. A nil event (unhandled kind) is a
// no-op. Redelivery of an already-applied event is safe: the ledger
// short-circuits on the event's reference id.
func (r *Reconciler) Process(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case nil:
		return nil
	case CheckoutCompleted:
		return r.handleCheckoutCompleted(ctx, e)
	case InvoicePaid:
		return r.handleInvoicePaid(ctx, e)
	case SubscriptionUpdated:
		return r.handleSubscriptionUpdated(ctx, e)
	case SubscriptionDeleted:
		return r.resetToFree(e.CustomerRef, e.SubscriptionRef)
	default:
		log.Warnf("billing: ignoring unknown event type %T", ev)
		return nil
	}
}

func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, e CheckoutCompleted) error {
	user, err := r.resolveAccount(e.CustomerRef, e.AccountRef)
	if err != nil {
		return err
	}
	if user == nil {
		log.Warnf("billing: checkout %s has no resolvable account, skipping", e.SessionID)
		return nil
	}

	switch e.Mode {
	case CheckoutModeSubscription:
		priceRef := e.PriceRef
		if priceRef == "" && e.SubscriptionRef != "" {
			priceRef, err = r.prices.SubscriptionPrice(ctx, e.SubscriptionRef)
			if err != nil {
				return fmt.Errorf("resolve subscription price: %w", err)
			}
		}
		if priceRef == "" {
			priceRef, err = r.prices.CheckoutSessionPrice(ctx, e.SessionID)
			if err != nil {
				return fmt.Errorf("resolve session price: %w", err)
			}
		}
		plan := r.catalog.ResolvePlanByPriceRef(priceRef)
		if plan == nil {
			log.Warnf("billing: checkout %s price %q maps to no plan, skipping", e.SessionID, priceRef)
			return nil
		}
		if err := r.accounts.UpdatePlan(user.ID, string(plan.ID), e.SubscriptionRef); err != nil {
			return err
		}
		_, err = r.credits.SetMonthlyAllowance(ctx, user.ID, plan.MonthlyCredits, models.CreditReasonSubscriptionStart, e.SessionID)
		return err

	case CheckoutModePayment:
		priceRef := e.PriceRef
		if priceRef == "" {
			priceRef, err = r.prices.CheckoutSessionPrice(ctx, e.SessionID)
			if err != nil {
				return fmt.Errorf("resolve session price: %w", err)
			}
		}
		pack := r.catalog.ResolvePackByPriceRef(priceRef)
		if pack == nil {
			log.Warnf("billing: checkout %s price %q maps to no credit pack, skipping", e.SessionID, priceRef)
			return nil
		}
		_, err = r.credits.Grant(ctx, user.ID, pack.Credits, models.CreditReasonCreditPackPurchase, e.SessionID)
		return err
	}

	log.Warnf("billing: checkout %s has unsupported mode %q, skipping", e.SessionID, e.Mode)
	return nil
}

func (r *Reconciler) handleInvoicePaid(ctx context.Context, e InvoicePaid) error {
	user, err := r.resolveAccount(e.CustomerRef, "")
	if err != nil {
		return err
	}
	if user == nil {
		log.Warnf("billing: invoice %s has no resolvable account, skipping", e.InvoiceID)
		return nil
	}

	// A renewal whose price is unknown falls back to the free plan instead
	// of failing: the money was taken, the account must stay consistent.
	plan := r.catalog.ResolvePlanByPriceRef(e.PriceRef)
	if plan == nil {
		plan = r.catalog.GetPlan(entitlements.PlanFree)
	}
	if plan == nil {
		log.Warnf("billing: invoice %s resolves to no plan at all, skipping", e.InvoiceID)
		return nil
	}

	if err := r.accounts.UpdatePlan(user.ID, string(plan.ID), e.SubscriptionRef); err != nil {
		return err
	}
	_, err = r.credits.SetMonthlyAllowance(ctx, user.ID, plan.MonthlyCredits, models.CreditReasonSubscriptionRenewal, e.InvoiceID)
	return err
}

func (r *Reconciler) handleSubscriptionUpdated(ctx context.Context, e SubscriptionUpdated) error {
	if e.Status == SubscriptionStatusCanceled || e.Status == SubscriptionStatusIncompleteExpired {
		return r.resetToFree(e.CustomerRef, e.SubscriptionRef)
	}

	user, err := r.resolveAccount(e.CustomerRef, "")
	if err != nil {
		return err
	}
	if user == nil {
		log.Warnf("billing: subscription %s has no resolvable account, skipping", e.SubscriptionRef)
		return nil
	}

	plan := r.catalog.ResolvePlanByPriceRef(e.PriceRef)
	if plan == nil {
		log.Warnf("billing: subscription %s price %q maps to no plan, skipping", e.SubscriptionRef, e.PriceRef)
		return nil
	}

	// Re-grant only when the entitlement value actually changes, comparing
	// monthly credits rather than plan ids so a repriced plan with the same
	// id still triggers a reset.
	currentGrant := 0
	if current := r.catalog.GetPlan(entitlements.NormalizePlan(user.Plan)); current != nil {
		currentGrant = current.MonthlyCredits
	}

	if err := r.accounts.UpdatePlan(user.ID, string(plan.ID), e.SubscriptionRef); err != nil {
		return err
	}
	if plan.MonthlyCredits != currentGrant {
		if _, err := r.credits.SetMonthlyAllowance(ctx, user.ID, plan.MonthlyCredits, models.CreditReasonSubscriptionRenewal, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// resetToFree handles both cancellation and deletion: back to the free
// plan, subscription link cleared, balance untouched.
func (r *Reconciler) resetToFree(customerRef, subscriptionRef string) error {
	user, err := r.resolveAccount(customerRef, "")
	if err != nil {
		return err
	}
	if user == nil {
		log.Warnf("billing: subscription %s end has no resolvable account, skipping", subscriptionRef)
		return nil
	}
	return r.accounts.UpdatePlan(user.ID, string(entitlements.PlanFree), "")
}

// resolveAccount finds the local user for an event, preferring the internal
// account ref from checkout metadata and falling back to the provider
// customer link. A missing account is (nil, nil): webhooks for unknown
// customers are dropped, not retried.
func (r *Reconciler) resolveAccount(customerRef, accountRef string) (*models.User, error) {
	if accountRef != "" {
		if id, err := strconv.ParseUint(accountRef, 10, 64); err == nil {
			user, err := r.accounts.GetByID(uint(id))
			if err == nil {
				return user, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}
	if customerRef == "" {
		return nil, nil
	}
	user, err := r.accounts.GetByStripeCustomerID(customerRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
