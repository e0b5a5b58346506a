package core

// Operation represents a type of action that can be performed on an exchange.
type Operation int

// Operation constants define all supported exchange operations.
const (
	// OpFetchTime retrieves the venue clock.
	OpFetchTime Operation = iota
	// OpFetchMarkets retrieves the tradable markets of the venue.
	OpFetchMarkets
	// OpFetchCurrencies retrieves the assets listed on the venue.
	OpFetchCurrencies
	// OpFetchOrderBook retrieves the current order book depth.
	OpFetchOrderBook
	// OpFetchTrades retrieves recent public trades for a market.
	OpFetchTrades
	// OpFetchMyTrades retrieves the account's trade history.
	OpFetchMyTrades
	// OpFetchAccounts lists the trading accounts of the credential.
	OpFetchAccounts
	// OpFetchBalance retrieves account balance information.
	OpFetchBalance
	// OpFetchOpenOrders retrieves all open orders.
	OpFetchOpenOrders
	// OpCreateOrder submits a new order to the exchange.
	OpCreateOrder
	// OpCancelOrder cancels an existing order.
	OpCancelOrder
	// OpCreateDepositAddress requests deposit instructions for an asset.
	OpCreateDepositAddress
	// OpWithdraw requests a withdrawal.
	OpWithdraw
	// OpFetchTransactions lists deposits and withdrawals.
	OpFetchTransactions
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	names := [...]string{
		"FETCH_TIME",
		"FETCH_MARKETS",
		"FETCH_CURRENCIES",
		"FETCH_ORDER_BOOK",
		"FETCH_TRADES",
		"FETCH_MY_TRADES",
		"FETCH_ACCOUNTS",
		"FETCH_BALANCE",
		"FETCH_OPEN_ORDERS",
		"CREATE_ORDER",
		"CANCEL_ORDER",
		"CREATE_DEPOSIT_ADDRESS",
		"WITHDRAW",
		"FETCH_TRANSACTIONS",
	}
	if int(o) < 0 || int(o) >= len(names) {
		return "UNKNOWN"
	}
	return names[o]
}

// IsPrivate reports whether the operation needs signed credentials.
func (o Operation) IsPrivate() bool {
	switch o {
	case OpFetchTime, OpFetchMarkets, OpFetchCurrencies, OpFetchOrderBook, OpFetchTrades:
		return false
	default:
		return true
	}
}
