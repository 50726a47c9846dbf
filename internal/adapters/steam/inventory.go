package steam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

// Inventory lee una página del inventario CS2 de la cuenta.
func (c *Client) Inventory(ctx context.Context, pageSize int) ([]domain.InventoryItem, error) {
	if pageSize <= 0 {
		pageSize = 2000
	}
	u := c.community(fmt.Sprintf("/inventory/%d/%d/%d?l=english&count=%d", c.creds.SteamID, AppID, ContextID, pageSize))

	var resp inventoryResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("steam.Inventory: %w", err)
	}
	if resp.Success != 1 {
		return nil, fmt.Errorf("steam.Inventory: %w: success=%d", domain.ErrBadShape, resp.Success)
	}

	items := mapInventory(resp)
	if len(items) == 0 {
		return nil, fmt.Errorf("steam.Inventory: %w", domain.ErrEmptyInventory)
	}
	slog.Debug("steam: inventory loaded", "items", len(items), "total", resp.TotalCount)
	return items, nil
}
