package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/avollmer/tastygo/internal/order"
)

// AccountClient scopes order operations to a single account.
type AccountClient struct {
	client        *Client
	accountNumber string
}

// ForAccount returns an order client bound to the given account number.
func (c *Client) ForAccount(accountNumber string) *AccountClient {
	return &AccountClient{client: c, accountNumber: accountNumber}
}

// AccountNumber returns the bound account number.
func (a *AccountClient) AccountNumber() string { return a.accountNumber }

func (a *AccountClient) ordersPath(suffix string) string {
	return "/accounts/" + a.accountNumber + "/orders" + suffix
}

// LiveOrders lists the account's current non-archived orders.
func (a *AccountClient) LiveOrders(ctx context.Context) ([]LiveOrderRecord, error) {
	var resp items[LiveOrderRecord]
	if err := a.client.get(ctx, a.ordersPath("/live"), nil, &resp); err != nil {
		return nil, fmt.Errorf("get live orders: %w", err)
	}
	return resp.Items, nil
}

// DryRun submits the order to the non-committing evaluation endpoint.
// The brokerage's projection (warnings, buying-power effect, fees) is
// returned verbatim; nothing is recomputed locally and no live order is
// created. Safe to call repeatedly and concurrently.
func (a *AccountClient) DryRun(ctx context.Context, o order.Order) (*DryRunResult, error) {
	var result DryRunResult
	if err := a.client.post(ctx, a.ordersPath("/dry-run"), o, &result); err != nil {
		return nil, fmt.Errorf("dry run order: %w", err)
	}
	return &result, nil
}

// PlaceOrder submits the order for live execution.
func (a *AccountClient) PlaceOrder(ctx context.Context, o order.Order) (*PlacedOrder, error) {
	var result PlacedOrder
	if err := a.client.post(ctx, a.ordersPath(""), o, &result); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	return &result, nil
}

// CancelOrder requests cancellation of a live order.
func (a *AccountClient) CancelOrder(ctx context.Context, id OrderID) (*LiveOrderRecord, error) {
	var record LiveOrderRecord
	path := a.ordersPath("/" + strconv.FormatInt(int64(id), 10))
	if err := a.client.del(ctx, path, &record); err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", id, err)
	}
	return &record, nil
}

// ReplaceOrder replaces a live order with a new one (cancel-and-replace).
func (a *AccountClient) ReplaceOrder(ctx context.Context, id OrderID, o order.Order) (*PlacedOrder, error) {
	var result PlacedOrder
	path := a.ordersPath("/" + strconv.FormatInt(int64(id), 10))
	if err := a.client.put(ctx, path, o, &result); err != nil {
		return nil, fmt.Errorf("replace order %d: %w", id, err)
	}
	return &result, nil
}
