package impact

import "strings"

// Validate performs caller-side input validation before an order reaches
// the engine. It returns a map of field name to message; an empty map
// means the order is acceptable.
func (o Order) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(o.Symbol) == "" {
		errs["symbol"] = "symbol is required"
	}
	if o.Side != Buy && o.Side != Sell {
		errs["side"] = "side must be buy or sell"
	}
	if o.Type != Market && o.Type != Limit {
		errs["orderType"] = "orderType must be market or limit"
	}
	if o.Qty <= 0 {
		errs["quantity"] = "quantity must be a positive number"
	}
	if o.Type == Limit && o.LimitPrice <= 0 {
		errs["price"] = "price must be a positive number for limit orders"
	}
	return errs
}
