// internal/api/api_integration_test.go
package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "mandir-fund/internal"
	"mandir-fund/internal/domain"
)

const testAdminToken = "integration-admin-token"

// testApp is the global application instance for testing. It stays nil unless
// INTEGRATION_DB=1, in which case a PostgreSQL test database is required.
var testApp *app.Application

// testServer is the httptest server.
var testServer *httptest.Server

// TestMain is the special entry point for Go tests, executed once before all tests.
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_DB") == "1" {
		setupEnvVars()

		testApp = app.NewApplication()
		if err := testApp.Initialize(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize test application: %v\n", err)
			os.Exit(1)
		}
		testServer = httptest.NewServer(testApp.HTTPHandler)
	}

	code := m.Run()

	if testApp != nil {
		testApp.LiveService.CloseWatchers()
		testServer.Close()
		if err := testApp.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown test application: %v\n", err)
			os.Exit(1)
		}
	}
	os.Exit(code)
}

// setupEnvVars sets defaults for the variables the application needs, keeping
// anything already provided by the CI system.
func setupEnvVars() {
	defaults := map[string]string{
		"APP_ENV":               "test",
		"LOG_LEVEL":             "warn",
		"DB_HOST":               "localhost",
		"DB_PORT":               "5432",
		"DB_USER":               "user",
		"DB_PASSWORD":           "password",
		"DB_NAME":               "mandirdb_test",
		"DB_SSLMODE":            "disable",
		"DB_AUTO_MIGRATE":       "true",
		"UPI_PAYEE_ADDRESS":     "mandirtrust@sbi",
		"ADMIN_TOKEN":           testAdminToken,
		"RATE_LIMIT_PER_MINUTE": "1000",
	}
	for k, v := range defaults {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if testApp == nil {
		t.Skip("set INTEGRATION_DB=1 to run against PostgreSQL")
	}
}

// clearDatabase truncates all tables and reloads the live projections, since
// TRUNCATE does not fire the row-level change trigger.
func clearDatabase(t *testing.T) {
	_, err := testApp.DB.Exec("TRUNCATE TABLE payment_intents, donations CASCADE;")
	require.NoError(t, err)
	require.NoError(t, testApp.LiveService.Reload(context.Background()))
}

// makeRequest sends an HTTP request to the test server and returns the body.
func makeRequest(t *testing.T, method, path, body string, admin bool) (*http.Response, string) {
	req, err := http.NewRequest(method, testServer.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

// donate walks an intake to AwaitingPayment and returns the snapshot.
func donate(t *testing.T, amountBody, detailsBody string) domain.IntakeSnapshot {
	t.Helper()
	resp, body := makeRequest(t, http.MethodPost, "/api/intakes", "", false)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	var snap domain.IntakeSnapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))

	resp, body = makeRequest(t, http.MethodPut, "/api/intakes/"+snap.ID+"/amount", amountBody, false)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = makeRequest(t, http.MethodPost, "/api/intakes/"+snap.ID+"/details", detailsBody, false)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.NoError(t, json.Unmarshal([]byte(body), &snap))
	require.Equal(t, domain.IntakeStateAwaitingPayment, snap.State)
	return snap
}

func pendingReference(t *testing.T, intentID string) string {
	t.Helper()
	intent, err := testApp.PaymentIntentRepository.GetPaymentIntentByID(context.Background(), testApp.DB, intentID)
	require.NoError(t, err)
	return intent.Reference
}

func confirm(t *testing.T, reference string) {
	t.Helper()
	resp, body := makeRequest(t, http.MethodPost, "/api/admin/payments/"+reference+"/confirm", `{"bank_reference":"UTR-`+reference+`"}`, true)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
}

func TestDonationFlowIntegration(t *testing.T) {
	requireIntegration(t)
	clearDatabase(t)

	snap := donate(t, `{"preset":1000,"custom":"2500"}`, `{"name":"Rama","phone":"9876543210"}`)
	assert.True(t, strings.HasPrefix(snap.RedirectURL, "upi://pay?pa=mandirtrust@sbi&"))
	assert.Contains(t, snap.RedirectURL, "&am=2500&cu=INR&")

	t.Run("AbandonedPaymentWritesNoDonation", func(t *testing.T) {
		resp, body := makeRequest(t, http.MethodGet, "/api/donations/stats", "", false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `"total_amount":0`)
	})

	reference := pendingReference(t, snap.IntentID)
	confirm(t, reference)

	t.Run("ConfirmTwiceConflicts", func(t *testing.T) {
		resp, _ := makeRequest(t, http.MethodPost, "/api/admin/payments/"+reference+"/confirm", `{"bank_reference":"again"}`, true)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("IntakeBecomesConfirmed", func(t *testing.T) {
		resp, body := makeRequest(t, http.MethodGet, "/api/intakes/"+snap.ID, "", false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var current domain.IntakeSnapshot
		require.NoError(t, json.Unmarshal([]byte(body), &current))
		assert.Equal(t, domain.IntakeStateConfirmed, current.State)
		assert.NotEmpty(t, current.DonationID)
	})

	t.Run("LiveProjectionsFollowNotifications", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			return testApp.LiveService.Stats().TotalAmount == 2500
		}, 5*time.Second, 50*time.Millisecond)

		recent := testApp.LiveService.Recent(0)
		require.Len(t, recent, 1)
		assert.Equal(t, "Rama", recent[0].DonorName)
		assert.Equal(t, "Rama", testApp.LiveService.Gratitude().DonorName)
	})
}

func TestAnonymousDonationIntegration(t *testing.T) {
	requireIntegration(t)
	clearDatabase(t)

	snap := donate(t, `{"preset":500}`, `{"name":"Sita","message":"Jai Hanuman","is_anonymous":true}`)
	confirm(t, pendingReference(t, snap.IntentID))

	require.Eventually(t, func() bool {
		return testApp.LiveService.Stats().TotalDonors == 1
	}, 5*time.Second, 50*time.Millisecond)

	rows, err := testApp.DB.QueryContext(context.Background(), "SELECT donor_name FROM donations")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		assert.Equal(t, domain.AnonymousDonorName, name, "the true name is never stored")
	}
	require.NoError(t, rows.Err())

	top := testApp.LiveService.TopDonors()
	require.Len(t, top, 1)
	assert.Equal(t, domain.AnonymousDonorName, top[0].Key)
	assert.Empty(t, testApp.LiveService.Gratitude().DonorName, "anonymous donors are not thanked by name")
}

func TestDetailsValidationIntegration(t *testing.T) {
	requireIntegration(t)
	clearDatabase(t)

	resp, body := makeRequest(t, http.MethodPost, "/api/intakes", "", false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var snap domain.IntakeSnapshot
	require.NoError(t, json.Unmarshal([]byte(body), &snap))

	resp, _ = makeRequest(t, http.MethodPut, "/api/intakes/"+snap.ID+"/amount", `{}`, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = makeRequest(t, http.MethodPost, "/api/intakes/"+snap.ID+"/details", `{"name":"Rama","email":"a@b"}`, false)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `"email"`)

	var count int
	require.NoError(t, testApp.DB.Get(&count, "SELECT COUNT(*) FROM payment_intents"))
	assert.Zero(t, count, "no intent is written for invalid details")
}
