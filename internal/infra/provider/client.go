// Package provider is the HTTP client for the financial data aggregator.
// Calls run through a bulkhead, a circuit breaker and retries; every
// failure reaches callers as *domain.ErrDataProvider.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("infra/provider")

const dateLayout = "2006-01-02"

// Config holds the aggregator endpoint and credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PageSize     int
}

// Client implements port.FinancialDataProvider.
type Client struct {
	httpClient *http.Client
	cfg        Config
	guard      *resilience.Guard
	logger     *zap.Logger

	mu     sync.Mutex
	apiKey string
}

// NewClient creates a provider client. guard protects every HTTP call.
func NewClient(httpClient *http.Client, cfg Config, guard *resilience.Guard, logger *zap.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	return &Client{httpClient: httpClient, cfg: cfg, guard: guard, logger: logger}
}

// GetAvailableAutomaticInstitutions lists the institutions users can connect.
func (c *Client) GetAvailableAutomaticInstitutions(ctx context.Context) ([]domain.Institution, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.GetAvailableAutomaticInstitutions")
	defer span.End()

	var page connectorsPage
	if err := c.get(ctx, "institutions", "/connectors", url.Values{"countries": {"BR"}}, &page); err != nil {
		return nil, err
	}

	out := make([]domain.Institution, 0, len(page.Results))
	for _, conn := range page.Results {
		out = append(out, conn.toDomain())
	}
	return out, nil
}

// GetAccountsByItemID lists the accounts behind one connected item.
func (c *Client) GetAccountsByItemID(ctx context.Context, itemID string) ([]domain.ProviderAccount, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.GetAccountsByItemID")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID))

	var page accountsPage
	if err := c.get(ctx, "accounts", "/accounts", url.Values{"itemId": {itemID}}, &page); err != nil {
		return nil, err
	}

	out := make([]domain.ProviderAccount, 0, len(page.Results))
	for _, a := range page.Results {
		acc, err := a.toDomain()
		if err != nil {
			return nil, &domain.ErrDataProvider{Operation: "accounts", Err: err}
		}
		out = append(out, acc)
	}
	return out, nil
}

// GetTransactionsByProviderAccountID pages through the account's
// transactions until the provider returns an empty page.
func (c *Client) GetTransactionsByProviderAccountID(ctx context.Context, filter domain.ProviderTransactionFilter) ([]domain.ProviderTransaction, error) {
	ctx, span := tracer.Start(ctx, "ProviderClient.GetTransactionsByProviderAccountID")
	defer span.End()
	span.SetAttributes(attribute.String("provider_account.id", filter.ProviderAccountID))

	query := url.Values{
		"accountId": {filter.ProviderAccountID},
		"pageSize":  {strconv.Itoa(c.cfg.PageSize)},
	}
	if filter.From != nil {
		query.Set("from", filter.From.UTC().Format(dateLayout))
	}
	if filter.To != nil {
		query.Set("to", filter.To.UTC().Format(dateLayout))
	}

	var (
		out     []domain.ProviderTransaction
		skipped int
	)
	for pageNo := 1; ; pageNo++ {
		query.Set("page", strconv.Itoa(pageNo))

		var page transactionsPage
		if err := c.get(ctx, "transactions", "/transactions", query, &page); err != nil {
			return nil, err
		}
		if len(page.Results) == 0 {
			break
		}
		for _, t := range page.Results {
			tx, err := t.toDomain(filter.ProviderAccountID)
			if err != nil {
				// One malformed amount must not block the rest of the account.
				c.logger.Warn("skipping provider transaction",
					zap.String("provider_account_id", filter.ProviderAccountID),
					zap.String("provider_id", t.ID),
					zap.Error(err),
				)
				skipped++
				continue
			}
			out = append(out, tx)
		}
	}

	span.SetAttributes(attribute.Int("transactions.count", len(out)), attribute.Int("transactions.skipped", skipped))
	return out, nil
}

// get performs an authenticated GET and decodes the JSON body into dst.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, dst any) error {
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		err := c.getOnce(ctx, path, query, dst)
		if errors.Is(err, errUnauthorized) {
			// The API key expired; fetch a new one and try once more.
			c.resetAPIKey()
			err = c.getOnce(ctx, path, query, dst)
			if errors.Is(err, errUnauthorized) {
				// A fresh key was rejected too: backing off will not help.
				err = resilience.Permanent(err)
			}
		}
		return err
	})
	if err != nil {
		c.logger.Warn("provider call failed",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Error(err),
		)
		return &domain.ErrDataProvider{Operation: operation, Err: err}
	}
	return nil
}

var errUnauthorized = errors.New("provider rejected credentials")

func (c *Client) getOnce(ctx context.Context, path string, query url.Values, dst any) error {
	apiKey, err := c.key(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resilience.Permanent(fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

func (c *Client) key(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.apiKey != "" {
		return c.apiKey, nil
	}

	body, err := json.Marshal(authRequest{ClientID: c.cfg.ClientID, ClientSecret: c.cfg.ClientSecret})
	if err != nil {
		return "", resilience.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		if errors.Is(err, errUnauthorized) {
			// Bad client credentials: a fresh key would not help.
			return "", resilience.Permanent(fmt.Errorf("authenticate: %v", err))
		}
		return "", err
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", resilience.Permanent(fmt.Errorf("decode auth: %w", err))
	}
	if auth.APIKey == "" {
		return "", resilience.Permanent(errors.New("provider returned an empty api key"))
	}
	c.apiKey = auth.APIKey
	return c.apiKey, nil
}

func (c *Client) resetAPIKey() {
	c.mu.Lock()
	c.apiKey = ""
	c.mu.Unlock()
}

// checkStatus maps HTTP statuses: 401/403 → errUnauthorized, other 4xx are
// permanent, 5xx and 429 are retried.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("provider returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %v", errUnauthorized, err)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return err
	default:
		return resilience.Permanent(err)
	}
}
