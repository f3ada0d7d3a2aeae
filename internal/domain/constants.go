package domain

// WalletType identifies which balance engine backs a wallet.
type WalletType string

const (
	WalletTypeFiat    WalletType = "FIAT"
	WalletTypeSpot    WalletType = "SPOT"
	WalletTypeEco     WalletType = "ECO"
	WalletTypeFutures WalletType = "FUTURES"
)

// HasChainLedger reports whether the wallet type carries per-chain balances.
// Only ECO wallets are blockchain backed.
func (t WalletType) HasChainLedger() bool {
	return t == WalletTypeEco
}

// Valid reports whether t is one of the known wallet types.
func (t WalletType) Valid() bool {
	switch t {
	case WalletTypeFiat, WalletTypeSpot, WalletTypeEco, WalletTypeFutures:
		return true
	}
	return false
}

const (
	TransferTypeClient = "client"
	TransferTypeWallet = "wallet"

	TxTypeOutgoingTransfer = "OUTGOING_TRANSFER"
	TxTypeIncomingTransfer = "INCOMING_TRANSFER"

	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"

	WalletStatusActive = "ACTIVE"
)

// Settings cache keys consumed by the transfer core.
const (
	SettingTransferFeeBps       = "transfer_fee_bps"
	SettingClientTransferFeeBps = "client_transfer_fee_bps"
)
