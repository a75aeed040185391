package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/apperror"
)

// Professionals resolves professional ids held by the staff service.
type Professionals interface {
	GetNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

type ProfessionalsClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewProfessionalsClient(baseURL string, timeout time.Duration, log zerolog.Logger) *ProfessionalsClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ProfessionalsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "professionals_client").Logger(),
	}
}

func (c *ProfessionalsClient) GetNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	payload, err := json.Marshal(map[string][]int64{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("encode names request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/professionals/names", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build names request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Dependency("professionals_unreachable", "professionals service is unreachable").Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Dependency("professionals_error", "professionals service answered %d", resp.StatusCode)
	}

	var body struct {
		Names map[int64]string `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Dependency("professionals_bad_response", "could not decode names response").Wrap(err)
	}

	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if n, ok := body.Names[id]; ok && n != "" {
			names[id] = n
		} else {
			names[id] = UnknownName
		}
	}
	return names, nil
}
