// Package settings provides the process-wide settings cache consumed by the
// transfer core: fee configuration and currency precision metadata. Values
// are loaded from the database and refreshed periodically; a stale read
// within the refresh window is acceptable eventual consistency.
package settings

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradeyard/wallet-engine/internal/domain"
	"github.com/tradeyard/wallet-engine/internal/repository"
)

// Provider is the configuration dependency injected into the transfer
// orchestrator. Implementations must be safe for concurrent use.
type Provider interface {
	// TransferFeeBps returns the configured fee in basis points for the
	// given transfer type.
	TransferFeeBps(transferType string) int64
	// CurrencyPrecision returns the decimal precision for a currency within
	// a wallet type.
	CurrencyPrecision(walletType domain.WalletType, currency string) int32
}

type currencyKey struct {
	walletType domain.WalletType
	currency   string
}

// Cache is a periodically refreshed snapshot of the settings and currencies
// tables.
type Cache struct {
	store    *repository.Store
	interval time.Duration

	mu         sync.RWMutex
	values     map[string]string
	precisions map[currencyKey]int32

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCache creates a settings cache refreshing at the given interval.
func NewCache(store *repository.Store, interval time.Duration) *Cache {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Cache{
		store:      store,
		interval:   interval,
		values:     map[string]string{},
		precisions: map[currencyKey]int32{},
		stopCh:     make(chan struct{}),
	}
}

// Refresh reloads the snapshot from the database.
func (c *Cache) Refresh(ctx context.Context) error {
	queries := c.store.Queries()

	settings, err := queries.ListSettings(ctx)
	if err != nil {
		return err
	}
	currencies, err := queries.ListCurrencies(ctx)
	if err != nil {
		return err
	}

	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.Key] = s.Value
	}
	precisions := make(map[currencyKey]int32, len(currencies))
	for _, cur := range currencies {
		precisions[currencyKey{domain.WalletType(cur.Type), strings.ToUpper(cur.Code)}] = cur.Precision
	}

	c.mu.Lock()
	c.values = values
	c.precisions = precisions
	c.mu.Unlock()
	return nil
}

// Run starts the refresh loop in a goroutine and returns a stop function.
func (c *Cache) Run(ctx context.Context) func() {
	go c.loop(ctx)
	return c.Stop
}

// Stop halts the refresh loop.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *Cache) loop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				zap.L().Warn("settings refresh failed", zap.Error(err))
			}
		}
	}
}

// Get returns a raw setting value.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// TransferFeeBps returns the fee for the transfer type. Client transfers may
// carry their own rate; everything else falls back to the generic key.
// Missing or malformed configuration means no fee.
func (c *Cache) TransferFeeBps(transferType string) int64 {
	if transferType == domain.TransferTypeClient {
		if v, ok := c.Get(domain.SettingClientTransferFeeBps); ok {
			return parseBps(v)
		}
	}
	if v, ok := c.Get(domain.SettingTransferFeeBps); ok {
		return parseBps(v)
	}
	return 0
}

// CurrencyPrecision returns the configured precision for the currency, or
// the maximum micros precision when the currency is unknown.
func (c *Cache) CurrencyPrecision(walletType domain.WalletType, currency string) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.precisions[currencyKey{walletType, strings.ToUpper(currency)}]; ok {
		return p
	}
	return domain.MaxPrecision
}

func parseBps(v string) int64 {
	bps, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || bps < 0 {
		return 0
	}
	return bps
}

// Static is a fixed-value Provider for tests and deterministic wiring.
type Static struct {
	FeeBps     map[string]int64
	Precisions map[string]int32 // keyed by currency code
}

func (s Static) TransferFeeBps(transferType string) int64 {
	return s.FeeBps[transferType]
}

func (s Static) CurrencyPrecision(_ domain.WalletType, currency string) int32 {
	if p, ok := s.Precisions[strings.ToUpper(currency)]; ok {
		return p
	}
	return domain.MaxPrecision
}
