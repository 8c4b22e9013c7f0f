package api

import (
	"context"
	"fmt"
)

// Accounts lists the accounts the current session can access.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var resp items[accountItem]
	if err := c.get(ctx, "/customers/me/accounts", nil, &resp); err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}

	accounts := make([]Account, 0, len(resp.Items))
	for _, item := range resp.Items {
		a := item.Account
		if a.AuthorityLevel == "" {
			a.AuthorityLevel = item.AuthorityLevel
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// Balance fetches the current balance snapshot for an account.
func (c *Client) Balance(ctx context.Context, accountNumber string) (*Balance, error) {
	var b Balance
	if err := c.get(ctx, "/accounts/"+accountNumber+"/balances", nil, &b); err != nil {
		return nil, fmt.Errorf("get balance %s: %w", accountNumber, err)
	}
	return &b, nil
}

// Positions lists the open positions in an account.
func (c *Client) Positions(ctx context.Context, accountNumber string) ([]Position, error) {
	var resp items[Position]
	if err := c.get(ctx, "/accounts/"+accountNumber+"/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("get positions %s: %w", accountNumber, err)
	}
	return resp.Items, nil
}
