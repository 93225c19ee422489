package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/shotmakerhq/shotmaker/app/models"
	"github.com/shotmakerhq/shotmaker/app/repository"
	"github.com/shotmakerhq/shotmaker/internal/pkg/billing"
	"github.com/shotmakerhq/shotmaker/internal/pkg/database"
	"github.com/shotmakerhq/shotmaker/internal/pkg/entitlements"
	"github.com/shotmakerhq/shotmaker/internal/pkg/env"
	"github.com/shotmakerhq/shotmaker/internal/pkg/usercontext"
)

// HandleGetCatalog returns the purchasable plans and credit packs.
func HandleGetCatalog(c *fiber.Ctx) error {
	catalog := entitlements.FromEnv()

	plans := make([]fiber.Map, 0)
	for _, plan := range catalog.Plans() {
		plans = append(plans, fiber.Map{
			"id":              string(plan.ID),
			"name":            plan.Name,
			"monthly_credits": plan.MonthlyCredits,
			"storage_limit":   plan.StorageLimit,
			"purchasable":     plan.PriceRef != "",
		})
	}
	packs := make([]fiber.Map, 0)
	for _, pack := range catalog.Packs() {
		packs = append(packs, fiber.Map{
			"id":          pack.ID,
			"credits":     pack.Credits,
			"purchasable": pack.PriceRef != "",
		})
	}
	return c.JSON(fiber.Map{"plans": plans, "packs": packs})
}

type checkoutRequest struct {
	Plan string `json:"plan"`
	Pack string `json:"pack"`
}

// HandleCreateCheckout starts a provider checkout for a plan subscription or
// a one-time credit pack.
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	catalog := entitlements.FromEnv()
	var priceRef, mode string
	switch {
	case req.Plan != "":
		plan := catalog.GetPlan(entitlements.NormalizePlan(req.Plan))
		if plan == nil || plan.PriceRef == "" {
			return jsonError(c, fiber.StatusBadRequest, "unknown_plan", "This plan cannot be purchased")
		}
		priceRef = plan.PriceRef
		mode = billing.CheckoutModeSubscription
	case req.Pack != "":
		var pack *entitlements.CreditPackDefinition
		for _, p := range catalog.Packs() {
			if p.ID == req.Pack {
				pack = &p
				break
			}
		}
		if pack == nil || pack.PriceRef == "" {
			return jsonError(c, fiber.StatusBadRequest, "unknown_pack", "This credit pack cannot be purchased")
		}
		priceRef = pack.PriceRef
		mode = billing.CheckoutModePayment
	default:
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Either plan or pack is required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load account")
	}

	ctx, cancel := requestContext()
	defer cancel()
	client := billing.NewStripeClientFromEnv()

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = client.CreateCustomer(ctx, user.Email, user.ID)
		if err != nil {
			log.Errorf("failed to create billing customer for user %d: %v", user.ID, err)
			return jsonError(c, fiber.StatusBadGateway, "billing_unavailable", "Billing provider is unavailable")
		}
		if err := repo.SetStripeCustomerID(user.ID, customerID); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to link billing customer")
		}
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:"+env.GetEnv("APP_PORT", "4000")), "/")
	sess, err := client.CreateCheckoutSession(ctx, customerID, priceRef, mode, user.ID,
		base+"/billing/success", base+"/billing/cancel")
	if err != nil {
		log.Errorf("failed to create checkout session for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "billing_unavailable", "Billing provider is unavailable")
	}

	return c.JSON(fiber.Map{"url": sess.URL, "session_id": sess.ID})
}

// HandleBillingPortal returns a URL to the provider's subscription
// management portal.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load account")
	}
	if user.StripeCustomerID == "" {
		return jsonError(c, fiber.StatusBadRequest, "no_billing_account", "No billing account linked yet")
	}

	ctx, cancel := requestContext()
	defer cancel()
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", "http://localhost:"+env.GetEnv("APP_PORT", "4000")), "/")
	url, err := billing.NewStripeClientFromEnv().CreateBillingPortalSession(ctx, user.StripeCustomerID, base+"/settings/billing")
	if err != nil {
		log.Errorf("failed to create portal session for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "billing_unavailable", "Billing provider is unavailable")
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleStripeWebhook ingests provider webhooks: verify the signature,
// persist the event exactly once, then reconcile. Redeliveries of an
// already-processed event are acknowledged without reprocessing.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	signatureValid := billing.VerifyStripeWebhookSignature(payload, signature, secret, billing.DefaultSignatureTolerance)
	if !signatureValid {
		log.Warnf("rejected billing webhook with invalid signature")
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	event, err := billing.ParseWebhookEvent(payload)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_payload", "Webhook payload is not valid JSON")
	}
	if event == nil {
		// Unhandled event kinds are acknowledged so the provider stops
		// retrying them.
		return c.JSON(fiber.Map{"ok": true, "ignored": true})
	}

	webhookRepo := billing.NewWebhookRepository(database.GetDB())
	record := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.EventID(),
		EventType:       eventTypeName(event),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	}
	created, stored, err := webhookRepo.CreateWebhookEventIfNotExists(record)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to persist webhook event")
	}
	if !created && stored.ProcessedAt != nil {
		return c.JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	reconciler := billing.NewReconciler(
		repository.GetGlobalFactory().GetUserRepository(),
		creditService(),
		entitlements.FromEnv(),
		billing.NewStripeClientFromEnv(),
	)

	ctx, cancel := requestContext()
	defer cancel()
	processErr := reconciler.Process(ctx, event)

	errDetail := ""
	if processErr != nil {
		errDetail = processErr.Error()
	}
	if err := webhookRepo.MarkWebhookProcessed(stored.ID, errDetail); err != nil {
		log.Errorf("failed to mark webhook %s processed: %v", event.EventID(), err)
	}

	if processErr != nil {
		if errors.Is(processErr, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"ok": true, "skipped": true})
		}
		log.Errorf("failed to process billing event %s: %v", event.EventID(), processErr)
		return jsonError(c, fiber.StatusInternalServerError, "processing_failed", "Failed to process billing event")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func eventTypeName(event billing.Event) string {
	switch event.(type) {
	case billing.CheckoutCompleted:
		return "checkout.session.completed"
	case billing.InvoicePaid:
		return "invoice.paid"
	case billing.SubscriptionUpdated:
		return "customer.subscription.updated"
	case billing.SubscriptionDeleted:
		return "customer.subscription.deleted"
	default:
		return "unknown"
	}
}
