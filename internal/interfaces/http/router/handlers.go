package router

import (
	"github.com/gin-gonic/gin"

	"github.com/induservicios/backend/internal/interfaces/http/handler"
)

// Handlers are the store API handlers. Nil handlers are skipped.
type Handlers struct {
	System   *handler.SystemHandler
	Files    *handler.FileHandler
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Category *handler.CategoryHandler
	Product  *handler.ProductHandler
	Quote    *handler.QuoteHandler
	Order    *handler.OrderHandler
	Receipt  *handler.ReceiptHandler
	Lookup   *handler.LookupHandler
	Mail     *handler.MailHandler
	Realtime *handler.RealtimeHandler
	Webhook  *handler.WebhookHandler

	// AuthLimit and LookupLimit guard the credential and registry routes
	AuthLimit   []gin.HandlerFunc
	LookupLimit []gin.HandlerFunc
}

// Mount places each handler on its tiers
func (h Handlers) Mount(t Tiers) {
	if h.System != nil {
		h.System.RegisterRoutes(t.Root, t.Admin)
	}
	if h.Files != nil {
		h.Files.RegisterRoutes(t.Root)
	}
	if h.Auth != nil {
		h.Auth.RegisterRoutes(t.Public.Group("", h.AuthLimit...), t.Authed)
	}
	if h.Users != nil {
		h.Users.RegisterRoutes(t.Admin)
	}
	if h.Category != nil {
		h.Category.RegisterRoutes(t.Public, t.Admin)
	}
	if h.Product != nil {
		h.Product.RegisterRoutes(t.Public, t.Admin)
	}
	if h.Quote != nil {
		h.Quote.RegisterRoutes(t.Optional, t.Authed, t.Admin)
	}
	if h.Order != nil {
		h.Order.RegisterRoutes(t.Optional, t.Authed, t.Admin)
	}
	if h.Receipt != nil {
		h.Receipt.RegisterRoutes(t.Authed, t.Admin)
	}
	if h.Lookup != nil {
		h.Lookup.RegisterRoutes(t.Public.Group("", h.LookupLimit...))
	}
	if h.Mail != nil {
		h.Mail.RegisterRoutes(t.Admin)
	}
	if h.Realtime != nil {
		h.Realtime.RegisterRoutes(t.Public, t.Stream)
	}
	if h.Webhook != nil {
		h.Webhook.RegisterRoutes(t.Public)
	}
}
