// internal/api/router_test.go
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mandir-fund/internal/aggregate"
	"mandir-fund/internal/api/handler"
	"mandir-fund/internal/domain"
	"mandir-fund/internal/service"
	"mandir-fund/internal/util"
)

const adminToken = "test-admin-token"

// MockIntakeService is a mock implementation of service.IntakeService.
type MockIntakeService struct {
	mock.Mock
}

func (m *MockIntakeService) Start(ctx context.Context) (domain.IntakeSnapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.IntakeSnapshot), args.Error(1)
}

func (m *MockIntakeService) Get(ctx context.Context, id string) (domain.IntakeSnapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.IntakeSnapshot), args.Error(1)
}

func (m *MockIntakeService) SetAmount(ctx context.Context, id string, sel service.AmountSelection) (domain.IntakeSnapshot, error) {
	args := m.Called(ctx, id, sel)
	return args.Get(0).(domain.IntakeSnapshot), args.Error(1)
}

func (m *MockIntakeService) Back(ctx context.Context, id string) (domain.IntakeSnapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.IntakeSnapshot), args.Error(1)
}

func (m *MockIntakeService) SubmitDetails(ctx context.Context, id string, details domain.DonorDetails) (domain.IntakeSnapshot, error) {
	args := m.Called(ctx, id, details)
	return args.Get(0).(domain.IntakeSnapshot), args.Error(1)
}

// MockDonationService is a mock implementation of service.DonationService.
type MockDonationService struct {
	mock.Mock
}

func (m *MockDonationService) RecordDonation(ctx context.Context, details domain.DonorDetails, amount int64) (*domain.Donation, error) {
	args := m.Called(ctx, details, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donation), args.Error(1)
}

func (m *MockDonationService) ConfirmPayment(ctx context.Context, reference, bankReference string) (*domain.PaymentIntent, *domain.Donation, error) {
	args := m.Called(ctx, reference, bankReference)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Get(1).(*domain.Donation), args.Error(2)
}

func (m *MockDonationService) CancelPayment(ctx context.Context, reference string) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}

func (m *MockDonationService) ListPaymentIntents(ctx context.Context, status domain.PaymentIntentStatus, limit, offset int) ([]domain.PaymentIntent, int64, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]domain.PaymentIntent), args.Get(1).(int64), args.Error(2)
}

// fakeLiveService serves fixed projections and hands out a controllable watch channel.
type fakeLiveService struct {
	snapshot service.LiveSnapshot
	events   chan service.LiveEvent
}

func (f *fakeLiveService) Reload(context.Context) error { return nil }
func (f *fakeLiveService) HandleChange(domain.ChangeEvent) {}
func (f *fakeLiveService) Stats() service.StatsView { return f.snapshot.Stats }
func (f *fakeLiveService) TopDonors() []aggregate.DonorTotal { return f.snapshot.TopDonors }
func (f *fakeLiveService) Gratitude() service.Gratitude { return f.snapshot.Gratitude }
func (f *fakeLiveService) Snapshot() service.LiveSnapshot { return f.snapshot }
func (f *fakeLiveService) Watch() (<-chan service.LiveEvent, func()) { return f.events, func() {} }
func (f *fakeLiveService) CloseWatchers() {}
func (f *fakeLiveService) Recent(limit int) []domain.Donation {
	if limit > 0 && limit < len(f.snapshot.Recent) {
		return f.snapshot.Recent[:limit]
	}
	return f.snapshot.Recent
}

type routerFixture struct {
	server    http.Handler
	intake    *MockIntakeService
	donations *MockDonationService
	live      *fakeLiveService
}

func newRouterFixture() routerFixture {
	logger := zerolog.Nop()
	f := routerFixture{
		intake:    new(MockIntakeService),
		donations: new(MockDonationService),
		live: &fakeLiveService{
			snapshot: service.LiveSnapshot{
				Stats: service.StatsView{Stats: aggregate.Stats{TotalAmount: 1600, TotalDonors: 3}, FormattedTotal: "₹1,600"},
				TopDonors: []aggregate.DonorTotal{
					{Key: "Rama", Amount: 1500, Donations: 2},
					{Key: domain.AnonymousDonorName, Amount: 100, Donations: 1, IsAnonymous: true},
				},
				Recent: []domain.Donation{
					{ID: "c", DonorName: "Chitra", Amount: 300},
					{ID: "b", DonorName: "Bharat", Amount: 200},
				},
				Gratitude: service.Gratitude{DonorName: "Chitra", Amount: 300, Message: service.GratitudeMessage("Chitra", 300)},
			},
			events: make(chan service.LiveEvent, 4),
		},
	}
	f.server = NewRouter(Handlers{
		Intake:    handler.NewIntakeHandler(f.intake, &logger),
		Donations: handler.NewDonationHandler(f.live, &logger),
		Admin:     handler.NewAdminHandler(f.donations, &logger),
	}, RouterConfig{AdminToken: adminToken, RateLimitPerMinute: 100}, &logger)
	return f
}

func (f routerFixture) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newRouterFixture()
	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIntakeRoutes(t *testing.T) {
	t.Run("Start", func(t *testing.T) {
		f := newRouterFixture()
		f.intake.On("Start", mock.Anything).Return(domain.IntakeSnapshot{ID: "in-1", State: domain.IntakeStateAmountSelection, Amount: 1000}, nil).Once()

		rec := f.do(http.MethodPost, "/api/intakes", "")

		assert.Equal(t, http.StatusCreated, rec.Code)
		snap := decodeBody[domain.IntakeSnapshot](t, rec)
		assert.Equal(t, "in-1", snap.ID)
		f.intake.AssertExpectations(t)
	})

	t.Run("SetAmount", func(t *testing.T) {
		f := newRouterFixture()
		f.intake.On("SetAmount", mock.Anything, "in-1", mock.MatchedBy(func(sel service.AmountSelection) bool {
			return sel.Preset != nil && *sel.Preset == 1000 && sel.Custom != nil && *sel.Custom == "2500"
		})).Return(domain.IntakeSnapshot{ID: "in-1", State: domain.IntakeStateDetailEntry, Amount: 2500}, nil).Once()

		rec := f.do(http.MethodPut, "/api/intakes/in-1/amount", `{"preset":1000,"custom":"2500"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(2500), decodeBody[domain.IntakeSnapshot](t, rec).Amount)
		f.intake.AssertExpectations(t)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		f := newRouterFixture()
		rec := f.do(http.MethodPut, "/api/intakes/in-1/amount", `{"preset":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.intake.AssertNotCalled(t, "SetAmount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ValidationErrorsAreFieldScoped", func(t *testing.T) {
		f := newRouterFixture()
		ve := util.NewValidationError()
		ve.Add("email", "Please enter a valid email address")
		f.intake.On("SubmitDetails", mock.Anything, "in-1", domain.DonorDetails{Name: "Rama", Email: "a@b"}).
			Return(domain.IntakeSnapshot{}, ve).Once()

		rec := f.do(http.MethodPost, "/api/intakes/in-1/details", `{"name":"Rama","email":"a@b"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody[handler.ErrorResponse](t, rec)
		assert.Equal(t, "Please enter a valid email address", body.Fields["email"])
	})

	t.Run("SubmitReturnsRedirect", func(t *testing.T) {
		f := newRouterFixture()
		f.intake.On("SubmitDetails", mock.Anything, "in-1", domain.DonorDetails{Name: "Sita", IsAnonymous: true}).
			Return(domain.IntakeSnapshot{ID: "in-1", State: domain.IntakeStateAwaitingPayment, RedirectURL: "upi://pay?pa=x@y"}, nil).Once()

		rec := f.do(http.MethodPost, "/api/intakes/in-1/details", `{"name":"Sita","is_anonymous":true}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "upi://pay?pa=x@y", decodeBody[domain.IntakeSnapshot](t, rec).RedirectURL)
	})

	t.Run("ErrorMapping", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{util.ErrNotFound, http.StatusNotFound},
			{util.ErrInvalidState, http.StatusConflict},
			{util.ErrInvalidInput, http.StatusBadRequest},
			{errors.New("pq: connection refused"), http.StatusInternalServerError},
		}
		for _, tc := range tests {
			f := newRouterFixture()
			f.intake.On("Back", mock.Anything, "in-1").Return(domain.IntakeSnapshot{}, tc.err).Once()

			rec := f.do(http.MethodPost, "/api/intakes/in-1/back", "")
			assert.Equal(t, tc.want, rec.Code, tc.err.Error())
			assert.NotContains(t, rec.Body.String(), "pq:", "internal errors are not leaked")
		}
	})
}

func TestPublicViews(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(http.MethodGet, "/api/donations/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_amount":1600,"total_donors":3,"formatted_total":"₹1,600"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/donations/top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	top := decodeBody[[]aggregate.DonorTotal](t, rec)
	require.Len(t, top, 2)
	assert.Equal(t, "Rama", top[0].Key)

	rec = f.do(http.MethodGet, "/api/donations/recent?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]domain.Donation](t, rec), 1)

	rec = f.do(http.MethodGet, "/api/donations/recent?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/api/live/gratitude", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody[service.Gratitude](t, rec).Message, "Thank you, Chitra!")
}

func TestLiveStream(t *testing.T) {
	f := newRouterFixture()
	server := httptest.NewServer(f.server)
	defer server.Close()

	f.live.events <- service.LiveEvent{Type: service.LiveEventStats, Data: f.live.snapshot.Stats}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/live/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: stats\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"total_amount":1600`)
}

func TestAdminRoutes(t *testing.T) {
	auth := []string{"Authorization", "Bearer " + adminToken}

	t.Run("RequiresToken", func(t *testing.T) {
		f := newRouterFixture()
		rec := f.do(http.MethodGet, "/api/admin/payments", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ListPayments", func(t *testing.T) {
		f := newRouterFixture()
		page := []domain.PaymentIntent{{ID: "p1", Reference: "HM-AAAAAAAAAA", Status: domain.PaymentIntentStatusPending}}
		f.donations.On("ListPaymentIntents", mock.Anything, domain.PaymentIntentStatusPending, 10, 5).Return(page, int64(6), nil).Once()

		rec := f.do(http.MethodGet, "/api/admin/payments?status=pending&limit=10&offset=5", "", auth...)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data       []domain.PaymentIntent `json:"data"`
			TotalCount int64                  `json:"total_count"`
			HasMore    bool                   `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Data, 1)
		assert.Equal(t, int64(6), body.TotalCount)
		assert.False(t, body.HasMore)
		f.donations.AssertExpectations(t)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		f := newRouterFixture()
		rec := f.do(http.MethodGet, "/api/admin/payments?status=refunded", "", auth...)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Confirm", func(t *testing.T) {
		f := newRouterFixture()
		intent := &domain.PaymentIntent{Reference: "HM-AAAAAAAAAA", Status: domain.PaymentIntentStatusConfirmed}
		donation := &domain.Donation{ID: "d1", DonorName: "Rama", Amount: 501}
		f.donations.On("ConfirmPayment", mock.Anything, "HM-AAAAAAAAAA", "UTR123").Return(intent, donation, nil).Once()

		rec := f.do(http.MethodPost, "/api/admin/payments/HM-AAAAAAAAAA/confirm", `{"bank_reference":"UTR123"}`, auth...)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"d1"`)
		f.donations.AssertExpectations(t)
	})

	t.Run("ConfirmTwiceConflicts", func(t *testing.T) {
		f := newRouterFixture()
		f.donations.On("ConfirmPayment", mock.Anything, "HM-AAAAAAAAAA", "UTR123").Return(nil, nil, util.ErrInvalidState).Once()

		rec := f.do(http.MethodPost, "/api/admin/payments/HM-AAAAAAAAAA/confirm", `{"bank_reference":"UTR123"}`, auth...)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("RecordDonation", func(t *testing.T) {
		f := newRouterFixture()
		f.donations.On("RecordDonation", mock.Anything, domain.DonorDetails{Name: "Lakshman"}, int64(1100)).
			Return(&domain.Donation{ID: "d2", DonorName: "Lakshman", Amount: 1100}, nil).Once()

		rec := f.do(http.MethodPost, "/api/admin/donations", `{"name":"Lakshman","amount":1100}`, auth...)

		assert.Equal(t, http.StatusCreated, rec.Code)
		f.donations.AssertExpectations(t)
	})
}
