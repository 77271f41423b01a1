package api

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"meal-admin/auth"
	"meal-admin/models"
	"meal-admin/realtime"
	"meal-admin/services"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-jwt-secret-that-is-long-enough-for-hs256"
	adminID     = "11111111-1111-1111-1111-111111111111"
	orderID     = "22222222-2222-2222-2222-222222222222"
	partnerID   = "33333333-3333-3333-3333-333333333333"
	missingID   = "44444444-4444-4444-4444-444444444444"
	partnerMail = "partner@example.com"
)

type fakeStore struct {
	admins    map[string]bool
	orders    []models.Order
	payments  []models.Payment
	meals     []models.Meal
	partner   *models.Partner
	err       error
	listCalls atomic.Int32
	created   []models.MealInput
	statuses  map[string]string
	settled   time.Time
	failures  map[string]int
	lastFail  map[string]time.Time
	cooldown  map[string]int
	clock     time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		admins:   map[string]bool{adminID: true},
		statuses: map[string]string{},
		failures: map[string]int{},
		lastFail: map[string]time.Time{},
		clock:    time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
		cooldown: map[string]int{},
		orders: []models.Order{
			{ID: orderID, OrderNumber: "ORD-1001", TotalAmount: 420.5, Status: "pending", PaymentStatus: "completed",
				Customer: models.PersonName{FirstName: "Abebe", LastName: "Kebede"}, Items: []models.OrderItem{},
				DeliveryAddress: models.DeliveryAddress{"city": "Addis Ababa", "zone": "Bole"},
				CreatedAt:       time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)},
			{ID: "o2", OrderNumber: "ORD-2002", TotalAmount: 100, Items: []models.OrderItem{}},
		},
	}
}

func (f *fakeStore) DashboardStats(ctx context.Context, days int) (*models.DashboardStats, error) {
	return &models.DashboardStats{TotalOrders: int64(len(f.orders)), Revenue: make([]models.RevenuePoint, days)}, f.err
}

func (f *fakeStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	f.listCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Order(nil), f.orders...), nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !services.ValidStatus(status) {
		return fmt.Errorf("%w: %q", services.ErrInvalidStatus, status)
	}
	f.statuses[id] = status
	return nil
}

func (f *fakeStore) ListMeals(ctx context.Context) ([]models.Meal, error) { return f.meals, f.err }
func (f *fakeStore) GetMeal(ctx context.Context, id string) (*models.Meal, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) CreateMeal(ctx context.Context, in models.MealInput) (string, error) {
	if _, err := services.ValidateMealInput(in); err != nil {
		return "", err
	}
	f.created = append(f.created, in)
	return "55555555-5555-5555-5555-555555555555", nil
}

func (f *fakeStore) UpdateMeal(ctx context.Context, id string, in models.MealInput) error {
	_, err := services.ValidateMealInput(in)
	return err
}

func (f *fakeStore) DeleteMeal(ctx context.Context, id string) error { return f.err }
func (f *fakeStore) ListCategories(ctx context.Context) ([]models.MealCategory, error) {
	return []models.MealCategory{{ID: "c1", Name: "Lunch"}}, f.err
}
func (f *fakeStore) ListPayments(ctx context.Context) ([]models.Payment, error) {
	return f.payments, f.err
}
func (f *fakeStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakeStore) ListReferrals(ctx context.Context) ([]models.Referral, error) {
	return []models.Referral{}, f.err
}
func (f *fakeStore) ExpireOldReferrals(ctx context.Context) error { return f.err }
func (f *fakeStore) ListPartners(ctx context.Context) ([]models.Partner, error) {
	return []models.Partner{}, f.err
}
func (f *fakeStore) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	return f.partner, f.err
}
func (f *fakeStore) CommissionMetrics(ctx context.Context, id string, r services.DateRange) (models.CommissionMetrics, error) {
	return models.CommissionMetrics{TotalPayments: 3, PendingCommission: 12.5}, f.err
}
func (f *fakeStore) ReferralMetrics(ctx context.Context, id string, r services.DateRange) (models.ReferralMetrics, error) {
	return models.ReferralMetrics{TotalReferrals: 9}, f.err
}
func (f *fakeStore) CommissionLedger(ctx context.Context, id string, r services.DateRange, limit, offset int) ([]models.LedgerEntry, error) {
	return []models.LedgerEntry{}, f.err
}
func (f *fakeStore) GenerateMonthlySettlement(ctx context.Context, id string, month time.Time) (string, error) {
	f.settled = month
	return "SET-2024-05", f.err
}
func (f *fakeStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	return []models.Profile{{FirstName: "Meron", LastName: "Alemu"}, {FirstName: "Dawit"}}, f.err
}
func (f *fakeStore) PromoteUserToAdmin(ctx context.Context, id, role string) (bool, error) {
	return id != missingID, f.err
}
func (f *fakeStore) IsActiveAdmin(ctx context.Context, id string) (bool, error) {
	return f.admins[id], nil
}
func (f *fakeStore) AuthThrottleWait(ctx context.Context, key string) (int, error) {
	return f.cooldown[key], nil
}
func (f *fakeStore) RecordAuthFailure(ctx context.Context, key string) error {
	var last *time.Time
	if t, ok := f.lastFail[key]; ok {
		last = &t
	}
	f.failures[key] = services.NextAuthFailCount(f.failures[key], last, f.clock)
	f.lastFail[key] = f.clock
	f.cooldown[key] = services.AuthCooldownSeconds(f.failures[key])
	return nil
}
func (f *fakeStore) GetActivePartnerByEmail(ctx context.Context, email string) (*models.Partner, error) {
	if f.partner == nil || f.partner.ContactEmail != email {
		return nil, services.ErrPartnerNotFound
	}
	return f.partner, nil
}
func (f *fakeStore) PartnerDashboard(ctx context.Context, p models.Partner) (*models.PartnerDashboard, error) {
	return &models.PartnerDashboard{Partner: p, RecentReferrals: []models.Referral{}, Commissions: []models.PartnerCommission{}}, f.err
}

type fakeUploader struct{ got []byte }

func (u *fakeUploader) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, string, error) {
	u.got, _ = io.ReadAll(body)
	return "k.png", "http://cdn/meal-images/k.png", nil
}

func token(t *testing.T, sub, email string) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(testSecret)}, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)
	raw, err := jwt.Signed(signer).
		Claims(jwt.Claims{Subject: sub, Expiry: jwt.NewNumericDate(time.Now().Add(time.Hour))}).
		Claims(map[string]any{"email": email}).
		Serialize()
	require.NoError(t, err)
	return raw
}

func newTestServer(store *fakeStore, hub *realtime.Hub, images ImageUploader) *Server {
	s := NewServer(store, auth.NewVerifier(testSecret, time.Minute), hub, images, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path, tok string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(t, newTestServer(newFakeStore(), nil, nil), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(newFakeStore(), nil, nil)
	do(t, s, http.MethodGet, "/healthz", "", nil)
	w := do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "meal_admin_http_request_duration_seconds")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(newFakeStore(), nil, nil)

	w := do(t, s, http.MethodGet, "/api/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required","redirect":"/login"}`, w.Body.String())
	require.NotEmpty(t, w.Result().Cookies())
	assert.Equal(t, auth.CookieName, w.Result().Cookies()[0].Name)

	w = do(t, s, http.MethodGet, "/api/admin/orders", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodGet, "/api/admin/orders", token(t, "99999999-9999-9999-9999-999999999999", ""), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/login"`)
}

func TestInvalidTokenCooldown(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, nil, nil)

	w := do(t, s, http.MethodGet, "/api/admin/orders", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, store.failures["192.0.2.1"])

	w = do(t, s, http.MethodGet, "/api/admin/orders", "forged", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "try again in 2 seconds")

	// missing tokens and valid tokens are not throttled
	w = do(t, s, http.MethodGet, "/api/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(t, s, http.MethodGet, "/api/admin/orders", token(t, adminID, ""), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.failures["192.0.2.1"])

	// a later failure within the window keeps counting
	store.cooldown["192.0.2.1"] = 0
	store.clock = store.clock.Add(5 * time.Minute)
	w = do(t, s, http.MethodGet, "/api/admin/orders", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 2, store.failures["192.0.2.1"])
	assert.Equal(t, 4, store.cooldown["192.0.2.1"])

	// past the window the count starts over
	store.cooldown["192.0.2.1"] = 0
	store.clock = store.clock.Add(services.AuthFailureWindow + time.Minute)
	w = do(t, s, http.MethodGet, "/api/admin/orders", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, store.failures["192.0.2.1"])
	assert.Equal(t, 2, store.cooldown["192.0.2.1"])
}

func TestCookieToken(t *testing.T) {
	s := newTestServer(newFakeStore(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/categories", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token(t, adminID, "")})
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListOrders(t *testing.T) {
	s := newTestServer(newFakeStore(), nil, nil)
	tok := token(t, adminID, "")

	w := do(t, s, http.MethodGet, "/api/admin/orders?q=ord-2", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "ORD-2002", orders[0].OrderNumber)
	assert.NotNil(t, orders[0].Items)
}

func TestListOrdersBackendError(t *testing.T) {
	store := newFakeStore()
	store.err = fmt.Errorf("connection refused")
	w := do(t, newTestServer(store, nil, nil), http.MethodGet, "/api/admin/orders", token(t, adminID, ""), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch orders"}`, w.Body.String())
}

func TestGetOrder(t *testing.T) {
	s := newTestServer(newFakeStore(), nil, nil)
	tok := token(t, adminID, "")

	w := do(t, s, http.MethodGet, "/api/admin/orders/"+orderID, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"address_lines":[{"label":"City","value":"Addis Ababa"},{"label":"Zone","value":"Bole"}]`)
	assert.Contains(t, w.Body.String(), `"order_number":"ORD-1001"`)

	w = do(t, s, http.MethodGet, "/api/admin/orders/"+missingID, tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/admin/orders/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, nil, nil)
	tok := token(t, adminID, "")

	w := do(t, s, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", tok, strings.NewReader(`{"status":"delivered"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "delivered", store.statuses[orderID])

	w = do(t, s, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", tok, strings.NewReader(`{"status":"teleported"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid order status")

	w = do(t, s, http.MethodPatch, "/api/admin/orders/"+orderID+"/status", tok, strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportOrders(t *testing.T) {
	s := newTestServer(newFakeStore(), nil, nil)
	tok := token(t, adminID, "")

	w := do(t, s, http.MethodGet, "/api/admin/orders/export.csv?q=1001", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv;charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="orders_2024-05-20.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t,
		"order_number,customer_name,total_amount,status,payment_status,created_at\n"+
			"ORD-1001,Abebe Kebede,420.5,pending,completed,2024-05-02 10:00:00",
		w.Body.String())

	w = do(t, s, http.MethodGet, "/api/admin/orders/export.csv?q=nothing-matches", tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestExportPaymentsEmpty(t *testing.T) {
	w := do(t, newTestServer(newFakeStore(), nil, nil), http.MethodGet, "/api/admin/payments/export.csv", token(t, adminID, ""), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCreateMeal(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, nil, nil)
	tok := token(t, adminID, "")

	w := do(t, s, http.MethodPost, "/api/admin/meals", tok, strings.NewReader(`{"name":"Shiro","base_price":"180","dietary_tags":"vegan, fasting"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, "Shiro", store.created[0].Name)

	w = do(t, s, http.MethodPost, "/api/admin/meals", tok, strings.NewReader(`{"name":"","base_price":"180"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")

	w = do(t, s, http.MethodPut, "/api/admin/meals/"+orderID, tok, strings.NewReader(`{"name":"x","base_price":"-3"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImage(t *testing.T) {
	tok := token(t, adminID, "")
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("image", "shiro.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, mw.Close())

	up := &fakeUploader{}
	s := newTestServer(newFakeStore(), nil, up)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/meals/images", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"key":"k.png","url":"http://cdn/meal-images/k.png"}`, w.Body.String())
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), up.got)

	w = do(t, newTestServer(newFakeStore(), nil, nil), http.MethodPost, "/api/admin/meals/images", tok, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPartnerMetricsAndSettlement(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store, nil, nil)
	tok := token(t, adminID, "")

	w := do(t, s, http.MethodGet, "/api/admin/partners/"+partnerID+"/metrics", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"from":"2024-04-21"`)
	assert.Contains(t, w.Body.String(), `"to":"2024-05-20"`)
	assert.Contains(t, w.Body.String(), `"total_referrals":9`)

	w = do(t, s, http.MethodGet, "/api/admin/partners/"+partnerID+"/metrics?from=2024-05-10&to=2024-05-01", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/admin/partners/"+partnerID+"/ledger?limit=0", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/admin/partners/"+partnerID+"/settlements", tok, strings.NewReader(`{"month":"2024-05"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "SET-2024-05")
	assert.Equal(t, time.May, store.settled.Month())

	w = do(t, s, http.MethodPost, "/api/admin/partners/"+partnerID+"/settlements", tok, strings.NewReader(`{"month":"May"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsers(t *testing.T) {
	s := newTestServer(newFakeStore(), nil, nil)
	tok := token(t, adminID, "")

	w := do(t, s, http.MethodGet, "/api/admin/users?q=meron", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profiles []models.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profiles))
	assert.Len(t, profiles, 1)

	w = do(t, s, http.MethodPost, "/api/admin/users/"+orderID+"/promote", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, http.MethodPost, "/api/admin/users/"+missingID+"/promote", tok, strings.NewReader(`{"role":"super_admin"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPartnerDashboard(t *testing.T) {
	store := newFakeStore()
	store.partner = &models.Partner{ID: partnerID, Name: "Addis Gym", ContactEmail: partnerMail, Status: "active"}
	s := newTestServer(store, nil, nil)

	w := do(t, s, http.MethodGet, "/api/partner/dashboard", token(t, "u-partner", partnerMail), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Addis Gym"`)

	w = do(t, s, http.MethodGet, "/api/partner/dashboard", token(t, "u-other", "someone@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Partner account not found","redirect":"/login"}`, w.Body.String())
}

func TestStreamUnavailableWithoutHub(t *testing.T) {
	w := do(t, newTestServer(newFakeStore(), nil, nil), http.MethodGet, "/api/admin/stream/orders", token(t, adminID, ""), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamUnknownScreen(t *testing.T) {
	w := do(t, newTestServer(newFakeStore(), realtime.NewHub(4), nil), http.MethodGet, "/api/admin/stream/kitchen", token(t, adminID, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func readEvent(t *testing.T, r *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestStreamSendsSnapshotPerChange(t *testing.T) {
	store := newFakeStore()
	hub := realtime.NewHub(4)
	srv := httptest.NewServer(newTestServer(store, hub, nil).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/admin/stream/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, adminID, ""))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	br := bufio.NewReader(resp.Body)
	name, data := readEvent(t, br)
	assert.Equal(t, "snapshot", name)
	assert.Contains(t, data, "ORD-1001")

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(realtime.Event{Table: "meals", Kind: realtime.Insert})
	hub.Publish(realtime.Event{Table: "orders", Kind: realtime.Update, ID: orderID})

	name, _ = readEvent(t, br)
	assert.Equal(t, "snapshot", name)
	assert.Equal(t, int32(2), store.listCalls.Load())

	cancel()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
