package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeyard/wallet-engine/internal/domain"
)

func TestRequiresExternalSettlement(t *testing.T) {
	assert.True(t, requiresExternalSettlement(domain.TransferTypeWallet, domain.WalletTypeSpot, domain.WalletTypeEco))
	assert.True(t, requiresExternalSettlement(domain.TransferTypeWallet, domain.WalletTypeFiat, domain.WalletTypeEco))

	// Chain-to-chain and outbound moves settle instantly.
	assert.False(t, requiresExternalSettlement(domain.TransferTypeWallet, domain.WalletTypeEco, domain.WalletTypeFutures))
	assert.False(t, requiresExternalSettlement(domain.TransferTypeWallet, domain.WalletTypeSpot, domain.WalletTypeFiat))
	// Client transfers always settle instantly.
	assert.False(t, requiresExternalSettlement(domain.TransferTypeClient, domain.WalletTypeEco, domain.WalletTypeEco))
}

func TestUsesChainLedger(t *testing.T) {
	assert.True(t, usesChainLedger(domain.TransferTypeClient, domain.WalletTypeEco, domain.WalletTypeEco))
	assert.False(t, usesChainLedger(domain.TransferTypeWallet, domain.WalletTypeSpot, domain.WalletTypeEco))
	assert.False(t, usesChainLedger(domain.TransferTypeWallet, domain.WalletTypeEco, domain.WalletTypeFutures))
}

func TestTransferStateTransitions(t *testing.T) {
	assert.True(t, canTransition(domain.TxStatusPending, domain.TxStatusCompleted))
	assert.True(t, canTransition("pending", "completed"))
	assert.False(t, canTransition(domain.TxStatusCompleted, domain.TxStatusPending))
	assert.False(t, canTransition("UNKNOWN", domain.TxStatusCompleted))
}

func TestTransferRequestValidate(t *testing.T) {
	base := TransferRequest{
		UserID:       uuid.New(),
		TransferType: domain.TransferTypeWallet,
		FromType:     domain.WalletTypeSpot,
		ToType:       domain.WalletTypeEco,
		FromCurrency: "USDT",
		Amount:       1_000000,
	}
	base.normalize()
	assert.NoError(t, base.validate())
	assert.Equal(t, "USDT", base.ToCurrency)

	negative := base
	negative.Amount = -5
	assert.Error(t, negative.validate())

	noCurrency := base
	noCurrency.FromCurrency = ""
	noCurrency.ToCurrency = ""
	assert.Error(t, noCurrency.validate())

	selfClient := base
	selfClient.TransferType = domain.TransferTypeClient
	selfClient.FromType = domain.WalletTypeEco
	selfClient.ToType = domain.WalletTypeEco
	self := selfClient.UserID
	selfClient.ClientID = &self
	assert.Error(t, selfClient.validate())

	// Client transfers move funds between chain-backed wallets on both
	// sides; a non-ECO destination would leave the chain books untied.
	clientToFiat := base
	clientToFiat.TransferType = domain.TransferTypeClient
	clientToFiat.FromType = domain.WalletTypeEco
	clientToFiat.ToType = domain.WalletTypeFiat
	other := uuid.New()
	clientToFiat.ClientID = &other
	err := clientToFiat.validate()
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	crossCurrency := base
	crossCurrency.ToCurrency = "BTC"
	err = crossCurrency.validate()
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
