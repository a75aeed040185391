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

// UnknownName is the documented fallback when enrichment fails.
const UnknownName = "unknown"

// Patients looks up patient records held by the patients service.
type Patients interface {
	// GetUnblockDate returns when the patient's no-show counter was last
	// reset, or nil when it never was.
	GetUnblockDate(ctx context.Context, patientID int64) (*time.Time, error)
	// GetNames resolves patient ids to display names in one batch call.
	// Missing ids fall back to UnknownName.
	GetNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

type PatientsClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewPatientsClient(baseURL string, timeout time.Duration, log zerolog.Logger) *PatientsClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PatientsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "patients_client").Logger(),
	}
}

func (c *PatientsClient) GetUnblockDate(ctx context.Context, patientID int64) (*time.Time, error) {
	url := fmt.Sprintf("%s/patients/%d", c.baseURL, patientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build patients request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Dependency("patients_unreachable", "patients service is unreachable").Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.NotFound("patient_not_found", "patient %d not found", patientID)
	case resp.StatusCode != http.StatusOK:
		return nil, apperror.Dependency("patients_error", "patients service answered %d", resp.StatusCode)
	}

	var body struct {
		ID          int64      `json:"id"`
		UnblockDate *time.Time `json:"unblock_date"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Dependency("patients_bad_response", "could not decode patients response").Wrap(err)
	}
	return body.UnblockDate, nil
}

func (c *PatientsClient) GetNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	payload, err := json.Marshal(map[string][]int64{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("encode names request: %w", err)
	}

	url := c.baseURL + "/patients/names"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build names request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Dependency("patients_unreachable", "patients service is unreachable").Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Dependency("patients_error", "patients service answered %d", resp.StatusCode)
	}

	var body struct {
		Names map[int64]string `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperror.Dependency("patients_bad_response", "could not decode names response").Wrap(err)
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
