package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/meganoshop/megano-server/internal/auth"
	"github.com/meganoshop/megano-server/internal/config"
	"github.com/meganoshop/megano-server/internal/domain"
	"github.com/meganoshop/megano-server/internal/logger"
	"github.com/meganoshop/megano-server/internal/service"
)

// ProvideSessionService provides the session lifecycle service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, log.Logger), nil
}

// ProvideBasketService provides the basket service.
func ProvideBasketService(i do.Injector) (*service.BasketService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBasketService(storeHandle.Store, log.Logger), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Store, log.Logger), nil
}

// ProvideOrderService provides the order service with delivery pricing from
// config.
func ProvideOrderService(i do.Injector) (*service.OrderService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	threshold, err := domain.NewMoney(cfg.Shop.FreeDeliveryThreshold, cfg.Shop.Currency)
	if err != nil {
		return nil, fmt.Errorf("free delivery threshold: %w", err)
	}
	ordinary, err := domain.NewMoney(cfg.Shop.OrdinaryDeliveryCost, cfg.Shop.Currency)
	if err != nil {
		return nil, fmt.Errorf("ordinary delivery cost: %w", err)
	}
	express, err := domain.NewMoney(cfg.Shop.ExpressDeliveryCost, cfg.Shop.Currency)
	if err != nil {
		return nil, fmt.Errorf("express delivery cost: %w", err)
	}

	pricing := service.DeliveryPricing{
		FreeDeliveryThreshold: threshold,
		OrdinaryCost:          ordinary,
		ExpressCost:           express,
	}

	return service.NewOrderService(storeHandle.Store, pricing, log.Logger), nil
}

// ProvideProfileService provides the profile service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, sessionService, log.Logger), nil
}
