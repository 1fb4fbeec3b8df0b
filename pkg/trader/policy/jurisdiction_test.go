package policy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func geoServer(t *testing.T, countryCode, region, regionName string, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		if !strings.Contains(r.URL.RawQuery, "fields=") {
			t.Errorf("lookup did not request a field list: %s", r.URL.RawQuery)
		}
		fmt.Fprintf(w, `{"status":"success","country":"United States","countryCode":%q,"region":%q,"regionName":%q,"query":"203.0.113.9"}`,
			countryCode, region, regionName)
	}))
}

func testChecker(url string) *JurisdictionChecker {
	checker := NewJurisdictionChecker()
	checker.baseURL = url
	return checker
}

func TestJurisdictionCheck_Allowed(t *testing.T) {
	calls := 0
	srv := geoServer(t, "US", "NY", "New York", &calls)
	defer srv.Close()

	checker := testChecker(srv.URL)
	check, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !check.Allowed || check.Reason != "" {
		t.Errorf("check = %+v, want allowed with no reason", check)
	}
	if check.IP != "203.0.113.9" || check.Region != "NY" {
		t.Errorf("check = %+v, want the resolved IP and region", check)
	}
	if check.CheckedAt.IsZero() {
		t.Error("CheckedAt not stamped")
	}

	if err := checker.CheckAllowed(context.Background()); err != nil {
		t.Errorf("CheckAllowed = %v, want nil", err)
	}
}

func TestJurisdictionCheck_RestrictedState(t *testing.T) {
	calls := 0
	srv := geoServer(t, "US", "NV", "Nevada", &calls)
	defer srv.Close()

	checker := testChecker(srv.URL)
	check, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if check.Allowed {
		t.Fatal("Nevada should not be cleared for live entry")
	}
	if !strings.Contains(check.Reason, "Nevada") {
		t.Errorf("Reason = %q, want the state named", check.Reason)
	}

	err = checker.CheckAllowed(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Nevada") {
		t.Errorf("CheckAllowed = %v, want the restriction reason", err)
	}
}

func TestJurisdictionCheck_OutsideUS(t *testing.T) {
	calls := 0
	// A state-code collision outside the US must not trigger the screen.
	srv := geoServer(t, "CA", "NV", "Nevada?", &calls)
	defer srv.Close()

	check, err := testChecker(srv.URL).Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !check.Allowed {
		t.Error("restricted-state screen applied outside the US")
	}
}

func TestJurisdictionCheck_CachesResult(t *testing.T) {
	calls := 0
	srv := geoServer(t, "US", "NY", "New York", &calls)
	defer srv.Close()

	checker := testChecker(srv.URL)
	for i := 0; i < 3; i++ {
		if _, err := checker.Check(context.Background()); err != nil {
			t.Fatalf("Check %d failed: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("lookup hit the service %d times, want 1 (cached)", calls)
	}

	// An expired cache refreshes.
	checker.cacheExpiry = time.Now().Add(-time.Minute)
	if _, err := checker.Check(context.Background()); err != nil {
		t.Fatalf("Check after expiry failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("lookup hit the service %d times after expiry, want 2", calls)
	}
}

func TestJurisdictionCheck_LookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"fail","message":"quota exceeded"}`)
	}))
	defer srv.Close()

	checker := testChecker(srv.URL)
	if _, err := checker.Check(context.Background()); err == nil {
		t.Error("failed lookup should return an error, not a cleared check")
	}
	if err := checker.CheckAllowed(context.Background()); err == nil {
		t.Error("CheckAllowed must not clear an unverifiable location")
	}
}

func TestIsRestrictedState(t *testing.T) {
	if !IsRestrictedState("NV") {
		t.Error("NV should be restricted")
	}
	if IsRestrictedState("NY") {
		t.Error("NY should not be restricted")
	}
}
