// Package directory holds the HTTP clients for the master-data services
// this engine collaborates with. Patient, professional and service
// records live elsewhere; we only hold their ids and ask over the wire.
// Every call carries a short deadline and callers are expected to
// degrade to documented defaults when the collaborator is unreachable.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/apperror"
)

const defaultTimeout = 2 * time.Second

// Catalog answers service questions (durations, names).
type Catalog interface {
	GetServiceDuration(ctx context.Context, serviceID int64) (int, error)
	GetServiceName(ctx context.Context, serviceID int64) (string, error)
}

type CatalogClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewCatalogClient(baseURL string, timeout time.Duration, log zerolog.Logger) *CatalogClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CatalogClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "catalog_client").Logger(),
	}
}

type serviceResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (c *CatalogClient) getService(ctx context.Context, serviceID int64) (*serviceResponse, error) {
	url := fmt.Sprintf("%s/services/%d", c.baseURL, serviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Dependency("catalog_unreachable", "service catalog is unreachable").Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFound("service_not_found", "service %d not found in catalog", serviceID)
	case resp.StatusCode != http.StatusOK:
		return nil, apperror.Dependency("catalog_error", "service catalog answered %d", resp.StatusCode)
	}

	var body serviceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Dependency("catalog_bad_response", "could not decode catalog response").Wrap(err)
	}
	return &body, nil
}

func (c *CatalogClient) GetServiceDuration(ctx context.Context, serviceID int64) (int, error) {
	svc, err := c.getService(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	return svc.DurationMinutes, nil
}

func (c *CatalogClient) GetServiceName(ctx context.Context, serviceID int64) (string, error) {
	svc, err := c.getService(ctx, serviceID)
	if err != nil {
		return "", err
	}
	return svc.Name, nil
}
