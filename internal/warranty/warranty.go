// Package warranty queries the GIHO management registry for a customer's
// product coverage.
package warranty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Status is the coverage verdict stored on a ticket.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
	StatusUnknown Status = "UNKNOWN"
)

// Label is the customer-facing Vietnamese wording.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "✅ Còn bảo hành"
	case StatusExpired:
		return "⚠️ Hết bảo hành"
	default:
		return "❓ Chưa xác định"
	}
}

// Product is one registered product and its coverage.
type Product struct {
	Name           string `json:"productName"`
	WarrantyMonths int    `json:"warrantyMonths"`
	ExpireDate     string `json:"expireDate"`
	DaysLeft       int    `json:"daysLeft"`
}

// Result is the folded outcome of a registry lookup.
type Result struct {
	Status   Status    `json:"status"`
	Products []Product `json:"products,omitempty"`
}

// Checker looks up warranty coverage. Implementations never fail: any
// problem is reported as StatusUnknown.
type Checker interface {
	Check(ctx context.Context, phone string) Result
}

// maxExpiredProducts caps the products reported for expired coverage.
const maxExpiredProducts = 3

// Client calls the registry over HTTP.
type Client struct {
	url    string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a registry client.
func NewClient(url, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type registryRequest struct {
	Phone string `json:"phone"`
}

type registryProduct struct {
	ProductName    string `json:"productName"`
	WarrantyMonths int    `json:"warrantyMonths"`
	ExpireDate     string `json:"expireDate"`
	DaysLeft       int    `json:"daysLeft"`
	IsValid        bool   `json:"isValid"`
}

type registryResponse struct {
	Warranty   string            `json:"warranty"`
	Warranties []registryProduct `json:"warranties"`
}

// Check queries the registry for phone.
func (c *Client) Check(ctx context.Context, phone string) Result {
	resp, err := c.fetch(ctx, phone)
	if err != nil {
		c.logger.Warn("warranty lookup failed", "error", err)
		return Result{Status: StatusUnknown}
	}
	return fold(resp)
}

func (c *Client) fetch(ctx context.Context, phone string) (*registryResponse, error) {
	if c.url == "" {
		return nil, fmt.Errorf("registry url not configured")
	}
	body, err := json.Marshal(registryRequest{Phone: phone})
	if err != nil {
		return nil, fmt.Errorf("marshalling registry request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("registry returned status %d: %s", resp.StatusCode, snippet)
	}

	var out registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding registry response: %w", err)
	}
	return &out, nil
}

// fold maps a registry response onto a Result.
func fold(resp *registryResponse) Result {
	switch {
	case resp.Warranty == string(StatusActive) && resp.Warranties != nil:
		products := []Product{}
		for _, w := range resp.Warranties {
			if !w.IsValid {
				continue
			}
			products = append(products, Product{
				Name:           w.ProductName,
				WarrantyMonths: w.WarrantyMonths,
				ExpireDate:     w.ExpireDate,
				DaysLeft:       w.DaysLeft,
			})
		}
		return Result{Status: StatusActive, Products: products}

	case resp.Warranty == string(StatusExpired) && resp.Warranties != nil:
		list := resp.Warranties
		if len(list) > maxExpiredProducts {
			list = list[:maxExpiredProducts]
		}
		products := make([]Product, 0, len(list))
		for _, w := range list {
			products = append(products, Product{
				Name:           w.ProductName,
				WarrantyMonths: w.WarrantyMonths,
				ExpireDate:     w.ExpireDate,
			})
		}
		return Result{Status: StatusExpired, Products: products}

	default:
		return Result{Status: StatusUnknown}
	}
}
