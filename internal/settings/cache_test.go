package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradeyard/wallet-engine/internal/domain"
)

func TestParseBps(t *testing.T) {
	assert.Equal(t, int64(0), parseBps(""))
	assert.Equal(t, int64(0), parseBps("not-a-number"))
	assert.Equal(t, int64(0), parseBps("-5"))
	assert.Equal(t, int64(25), parseBps("25"))
	assert.Equal(t, int64(25), parseBps(" 25 "))
}

func TestStaticProvider(t *testing.T) {
	s := Static{
		FeeBps:     map[string]int64{domain.TransferTypeClient: 100},
		Precisions: map[string]int32{"BTC": 6, "NGN": 2},
	}

	assert.Equal(t, int64(100), s.TransferFeeBps(domain.TransferTypeClient))
	assert.Equal(t, int64(0), s.TransferFeeBps(domain.TransferTypeWallet))
	assert.Equal(t, int32(2), s.CurrencyPrecision(domain.WalletTypeFiat, "ngn"))
	assert.Equal(t, int32(domain.MaxPrecision), s.CurrencyPrecision(domain.WalletTypeSpot, "ETH"))
}
