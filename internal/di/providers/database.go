package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/meganoshop/megano-server/internal/config"
	"github.com/meganoshop/megano-server/internal/logger"
	"github.com/meganoshop/megano-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite-backed store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Store.DataPath, "megano.db")
	db, err := sqlite.Open(dbPath, cfg.Shop.Currency, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath, "currency", cfg.Shop.Currency)

	return &StoreHandle{Store: db}, nil
}
