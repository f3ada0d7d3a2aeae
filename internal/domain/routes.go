package domain

// transferRoutes is the table of wallet-type pairs that may move funds
// directly. FUTURES is deliberately one-sided: futures margin can only be
// funded from and released to ECO wallets.
var transferRoutes = map[WalletType]map[WalletType]struct{}{
	WalletTypeFiat: {
		WalletTypeSpot: {},
		WalletTypeEco:  {},
	},
	WalletTypeSpot: {
		WalletTypeFiat: {},
		WalletTypeEco:  {},
	},
	WalletTypeEco: {
		WalletTypeFiat:    {},
		WalletTypeSpot:    {},
		WalletTypeFutures: {},
	},
	WalletTypeFutures: {
		WalletTypeEco: {},
	},
}

// RouteAllowed reports whether a same-user transfer between the two wallet
// types is permitted. Same-type transfers to oneself are never allowed.
func RouteAllowed(from, to WalletType) bool {
	if from == to {
		return false
	}
	targets, ok := transferRoutes[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}
