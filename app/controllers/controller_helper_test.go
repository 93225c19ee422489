package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/shotmakerhq/shotmaker/internal/pkg/billing"
)

func paginationFor(t *testing.T, query string) (int, int) {
	t.Helper()

	app := fiber.New()
	var offset, limit int
	app.Get("/", func(c *fiber.Ctx) error {
		offset, limit = pagination(c, 25, 100)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/"+query, nil))
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	return offset, limit
}

func TestPagination(t *testing.T) {
	offset, limit := paginationFor(t, "")
	assert.Equal(t, 0, offset)
	assert.Equal(t, 25, limit)

	offset, limit = paginationFor(t, "?offset=50&limit=10")
	assert.Equal(t, 50, offset)
	assert.Equal(t, 10, limit)

	// Out-of-range values are clamped.
	offset, limit = paginationFor(t, "?offset=-5&limit=5000")
	assert.Equal(t, 0, offset)
	assert.Equal(t, 100, limit)

	offset, limit = paginationFor(t, "?offset=abc&limit=0")
	assert.Equal(t, 0, offset)
	assert.Equal(t, 25, limit)
}

func TestEventTypeName(t *testing.T) {
	assert.Equal(t, "checkout.session.completed", eventTypeName(billing.CheckoutCompleted{}))
	assert.Equal(t, "invoice.paid", eventTypeName(billing.InvoicePaid{}))
	assert.Equal(t, "customer.subscription.updated", eventTypeName(billing.SubscriptionUpdated{}))
	assert.Equal(t, "customer.subscription.deleted", eventTypeName(billing.SubscriptionDeleted{}))
}
