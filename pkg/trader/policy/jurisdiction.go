package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// RestrictedStates lists US states whose gaming regulators have issued
// cease-and-desist orders against sports-outcome event contracts. Live
// order entry from these jurisdictions stays disabled; the markets are
// still visible and the paper ledger still works.
var RestrictedStates = map[string]string{
	"AZ": "Arizona",
	"MD": "Maryland",
	"MT": "Montana",
	"NV": "Nevada",
	"NJ": "New Jersey",
	"OH": "Ohio",
}

// geoAPIURL is a free IP geolocation service (45 requests/minute, no
// key required).
const geoAPIURL = "http://ip-api.com/json/"

// JurisdictionChecker resolves the operator's public IP to a location
// and screens it against RestrictedStates before live order entry.
type JurisdictionChecker struct {
	httpClient *http.Client
	baseURL    string

	mu          sync.Mutex
	cached      *JurisdictionCheck
	cacheExpiry time.Time
	cacheTTL    time.Duration
}

// JurisdictionCheck is the outcome of one location screen.
type JurisdictionCheck struct {
	Allowed     bool      `json:"allowed"`
	IP          string    `json:"ip"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code"`
	Region      string    `json:"region"`
	RegionName  string    `json:"region_name"`
	Reason      string    `json:"reason,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// NewJurisdictionChecker creates a checker with a short result cache.
func NewJurisdictionChecker() *JurisdictionChecker {
	return &JurisdictionChecker{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    geoAPIURL,
		cacheTTL:   5 * time.Minute,
	}
}

// Check resolves the current jurisdiction, reusing a cached result
// while it is fresh. Lookup failures return an error; callers must
// treat an unverifiable location as not cleared for live entry.
func (j *JurisdictionChecker) Check(ctx context.Context) (*JurisdictionCheck, error) {
	j.mu.Lock()
	if j.cached != nil && time.Now().Before(j.cacheExpiry) {
		cached := *j.cached
		j.mu.Unlock()
		return &cached, nil
	}
	j.mu.Unlock()

	check, err := j.lookup(ctx)
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	j.cached = check
	j.cacheExpiry = time.Now().Add(j.cacheTTL)
	j.mu.Unlock()

	result := *check
	return &result, nil
}

// CheckAllowed returns nil when live order entry is permitted from the
// current location.
func (j *JurisdictionChecker) CheckAllowed(ctx context.Context) error {
	check, err := j.Check(ctx)
	if err != nil {
		return fmt.Errorf("resolve jurisdiction: %w", err)
	}
	if !check.Allowed {
		return errors.New(check.Reason)
	}
	return nil
}

// IsRestrictedState reports whether a US state code is on the
// restricted list.
func IsRestrictedState(code string) bool {
	_, restricted := RestrictedStates[code]
	return restricted
}

func (j *JurisdictionChecker) lookup(ctx context.Context) (*JurisdictionCheck, error) {
	url := j.baseURL + "?fields=status,message,country,countryCode,region,regionName,query"

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Status      string `json:"status"`
		Message     string `json:"message,omitempty"`
		Country     string `json:"country"`
		CountryCode string `json:"countryCode"`
		Region      string `json:"region"`
		RegionName  string `json:"regionName"`
		Query       string `json:"query"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("geo lookup failed: %s", result.Message)
	}

	check := &JurisdictionCheck{
		Allowed:     true,
		IP:          result.Query,
		Country:     result.Country,
		CountryCode: result.CountryCode,
		Region:      result.Region,
		RegionName:  result.RegionName,
		CheckedAt:   time.Now().UTC(),
	}
	if result.CountryCode == "US" {
		if name, restricted := RestrictedStates[result.Region]; restricted {
			check.Allowed = false
			check.Reason = fmt.Sprintf("sports event contracts are restricted in %s", name)
		}
	}
	return check, nil
}
