package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

const orderSequenceTimeout = 90 * time.Second

// OrderResult is the successful outcome of PlaceOrder.
type OrderResult struct {
	OrderID string
	URL     string
	Price   *models.Price
}

type cartConfigItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// requiredConfigEntry is one row of a plan's required-configuration list
// (region, OS template, and similar mandatory item configuration OVH will
// reject checkout without). Fetched once per plan code and cached for the
// life of the OrderDriver.
type requiredConfigEntry struct {
	Label         string   `json:"label"`
	Required      bool     `json:"required"`
	Type          string   `json:"type"`
	AllowedValues []string `json:"allowedValues"`
}

// PlaceOrder runs the cart → assign → add item → configure → validate →
// checkout sequence for one unit of planCode in datacenter. It is not
// idempotent; callers must guarantee at most one in-flight call per task.
func (d *OrderDriver) PlaceOrder(ctx context.Context, account models.Account, planCode, datacenter string, options []string, autoPay bool) (*OrderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, orderSequenceTimeout)
	defer cancel()

	c := d.pool.For(account)

	cartID, err := d.createCart(ctx, c, account.Zone)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	if err := d.assignCart(ctx, c, cartID); err != nil {
		return nil, fmt.Errorf("assign cart: %w", err)
	}

	itemID, err := d.addItem(ctx, c, cartID, planCode, datacenter)
	if err != nil {
		if isNotAvailable(err) {
			return nil, &NotAvailableError{PlanCode: planCode, Datacenter: datacenter}
		}
		return nil, fmt.Errorf("add item: %w", err)
	}

	if err := d.configureItem(ctx, c, cartID, itemID, planCode, datacenter, options); err != nil {
		return nil, fmt.Errorf("configure item: %w", err)
	}

	price, err := d.validateCart(ctx, c, cartID)
	if err != nil {
		return nil, fmt.Errorf("validate cart: %w", err)
	}

	orderID, url, err := d.checkout(ctx, c, cartID, autoPay)
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	result := &OrderResult{OrderID: orderID, URL: url, Price: price}

	if autoPay {
		if err := d.confirmPayment(ctx, c, orderID); err != nil {
			return result, &PaymentFailedError{OrderID: orderID, Reason: err.Error()}
		}
	}

	return result, nil
}

// OrderDriver is the C3 protocol wrapper. Besides the client pool it
// borrows clients from, it caches each plan's required-configuration list
// so repeat purchases of the same plan don't refetch it every attempt.
type OrderDriver struct {
	pool *Pool

	mu             sync.Mutex
	requiredConfig map[string][]requiredConfigEntry
}

func NewOrderDriver(pool *Pool) *OrderDriver {
	return &OrderDriver{pool: pool, requiredConfig: make(map[string][]requiredConfigEntry)}
}

func (d *OrderDriver) createCart(ctx context.Context, c *Client, ovhSubsidiary string) (string, error) {
	req := map[string]any{
		"ovhSubsidiary": ovhSubsidiary,
		"description":   "ovh-fleet automated purchase",
	}
	_, body, err := c.Do(ctx, "POST", "/order/cart", req)
	if err != nil {
		return "", err
	}
	var resp struct {
		CartID string `json:"cartId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode cart response: %w", err)
	}
	return resp.CartID, nil
}

func (d *OrderDriver) assignCart(ctx context.Context, c *Client, cartID string) error {
	_, _, err := c.Do(ctx, "POST", fmt.Sprintf("/order/cart/%s/assign", cartID), nil)
	return err
}

func (d *OrderDriver) addItem(ctx context.Context, c *Client, cartID, planCode, datacenter string) (string, error) {
	req := map[string]any{
		"planCode":     planCode,
		"pricingMode":  "default",
		"quantity":     1,
		"duration":     "P1M",
		"configuration": []cartConfigItem{
			{Label: "dedicated_datacenter", Value: datacenter},
		},
	}
	path := fmt.Sprintf("/order/cart/%s/%s", cartID, itemEndpoint(planCode))
	_, body, err := c.Do(ctx, "POST", path, req)
	if err != nil {
		return "", err
	}
	var resp struct {
		ItemID int `json:"itemId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode add-item response: %w", err)
	}
	return fmt.Sprintf("%d", resp.ItemID), nil
}

// itemEndpoint picks the cart sub-resource by plan family. Eco-range plans
// (planCode prefixed "eco") use /eco; everything else is a baremetal server.
func itemEndpoint(planCode string) string {
	if strings.HasPrefix(strings.ToLower(planCode), "eco") {
		return "eco"
	}
	return "baremetalServers"
}

// configureItem applies the plan's required configuration (region, OS
// template, and any other entry OVH marks mandatory) ahead of the task's
// chosen hardware options, matching the order the cart API expects:
// required configuration first, then optional add-ons.
func (d *OrderDriver) configureItem(ctx context.Context, c *Client, cartID, itemID, planCode, datacenter string, options []string) error {
	required, err := d.requiredConfiguration(ctx, c, cartID, itemID, planCode)
	if err != nil {
		return fmt.Errorf("fetch required configuration: %w", err)
	}

	path := fmt.Sprintf("/order/cart/%s/item/%s/configuration", cartID, itemID)
	for _, entry := range required {
		if !entry.Required || len(entry.AllowedValues) == 0 {
			continue
		}
		value := entry.AllowedValues[0]
		if strings.EqualFold(entry.Label, "region") || strings.EqualFold(entry.Label, "dedicated_datacenter") {
			value = datacenter
		}
		req := cartConfigItem{Label: entry.Label, Value: value}
		if _, _, err := c.Do(ctx, "POST", path, req); err != nil {
			return err
		}
	}

	for _, opt := range options {
		req := cartConfigItem{Label: "option", Value: opt}
		if _, _, err := c.Do(ctx, "POST", path, req); err != nil {
			return err
		}
	}
	return nil
}

// requiredConfiguration fetches a plan's required-configuration list once
// and caches it by plan code; every subsequent purchase of the same plan
// reuses the cached entries instead of refetching per attempt.
func (d *OrderDriver) requiredConfiguration(ctx context.Context, c *Client, cartID, itemID, planCode string) ([]requiredConfigEntry, error) {
	d.mu.Lock()
	if cached, ok := d.requiredConfig[planCode]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	path := fmt.Sprintf("/order/cart/%s/item/%s/requiredConfiguration", cartID, itemID)
	_, body, err := c.Do(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	var entries []requiredConfigEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode required configuration: %w", err)
	}

	d.mu.Lock()
	d.requiredConfig[planCode] = entries
	d.mu.Unlock()
	return entries, nil
}

func (d *OrderDriver) validateCart(ctx context.Context, c *Client, cartID string) (*models.Price, error) {
	_, body, err := c.Do(ctx, "GET", fmt.Sprintf("/order/cart/%s/checkout", cartID), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Prices struct {
			WithTax struct {
				Value float64 `json:"value"`
			} `json:"withTax"`
			WithoutTax struct {
				Value float64 `json:"value"`
			} `json:"withoutTax"`
			Tax struct {
				Value float64 `json:"value"`
			} `json:"tax"`
		} `json:"prices"`
		CurrencyCode string `json:"currencyCode"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode checkout preview: %w", err)
	}
	return &models.Price{
		WithTax:      resp.Prices.WithTax.Value,
		WithoutTax:   resp.Prices.WithoutTax.Value,
		Tax:          resp.Prices.Tax.Value,
		CurrencyCode: resp.CurrencyCode,
	}, nil
}

func (d *OrderDriver) checkout(ctx context.Context, c *Client, cartID string, autoPay bool) (orderID, url string, err error) {
	req := map[string]any{
		"autoPayWithPreferredPaymentMethod": autoPay,
		"waiveRetractationPeriod":           true,
	}
	_, body, err := c.Do(ctx, "POST", fmt.Sprintf("/order/cart/%s/checkout", cartID), req)
	if err != nil {
		return "", "", err
	}
	var resp struct {
		OrderID int    `json:"orderId"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("decode checkout response: %w", err)
	}
	return fmt.Sprintf("%d", resp.OrderID), resp.URL, nil
}

// confirmPayment checks the order's debt status after checkout. Used only
// when autoPay was requested; a non-debited order surfaces as
// PaymentFailedError while the order itself still stands.
func (d *OrderDriver) confirmPayment(ctx context.Context, c *Client, orderID string) error {
	_, body, err := c.Do(ctx, "GET", fmt.Sprintf("/me/order/%s/status", orderID), nil)
	if err != nil {
		return err
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode order status: %w", err)
	}
	if resp.Status != "delivered" && resp.Status != "checked" {
		return fmt.Errorf("order status %q indicates payment not settled", resp.Status)
	}
	return nil
}

func isNotAvailable(err error) bool {
	var apiErr *APIError
	switch e := err.(type) {
	case *ConflictError:
		apiErr = e.APIError
	case *APIError:
		apiErr = e
	default:
		return false
	}
	return apiErr != nil && apiErr.Status == 409
}
