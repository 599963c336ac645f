package server

import (
	"github.com/pedalmarket/marketplace-backend/internal/payment"
	"github.com/pedalmarket/marketplace-backend/internal/repository"
	"github.com/pedalmarket/marketplace-backend/internal/service"
	"gorm.io/gorm"
)

// Deps are the external collaborators shared by the API and the worker.
type Deps struct {
	Gateway  payment.Gateway
	Orders   service.OrderNumberer
	AppURL   string
	Currency string
	// PayoutQueue receives payouts after an escrow release; nil leaves payouts to the admin trigger.
	PayoutQueue service.PayoutEnqueuer
}

type Services struct {
	Products  service.ProductService
	Purchases service.PurchaseService
	Checkout  service.CheckoutService
	Webhook   service.WebhookService
	Payouts   service.PayoutService
	Escrow    service.EscrowService
	Connect   service.ConnectService
	Offers    service.OfferService
}

// NewServices wires repositories and services over one database handle.
func NewServices(db *gorm.DB, d Deps) *Services {
	tx := repository.NewTransactor(db)
	products := repository.NewProductRepository(db)
	purchases := repository.NewPurchaseRepository(db)
	payouts := repository.NewPayoutRepository(db)
	users := repository.NewUserRepository(db)
	offers := repository.NewOfferRepository(db)
	vouchers := repository.NewVoucherRepository(db)
	events := repository.NewWebhookEventRepository(db)
	notify := service.NewNotificationService(repository.NewNotificationRepository(db))

	return &Services{
		Products:  service.NewProductService(products),
		Purchases: service.NewPurchaseService(purchases, products),
		Checkout:  service.NewCheckoutService(products, offers, vouchers, d.Gateway, d.AppURL),
		Webhook: service.NewWebhookService(service.WebhookDeps{
			Gateway:   d.Gateway,
			Tx:        tx,
			Events:    events,
			Purchases: purchases,
			Products:  products,
			Users:     users,
			Vouchers:  vouchers,
			Notify:    notify,
			Orders:    d.Orders,
		}),
		Payouts: service.NewPayoutService(tx, purchases, payouts, users, d.Gateway, notify, d.Currency),
		Escrow:  service.NewEscrowService(purchases, notify, d.PayoutQueue),
		Connect: service.NewConnectService(users, d.Gateway, d.AppURL),
		Offers:  service.NewOfferService(tx, offers, products, notify),
	}
}
