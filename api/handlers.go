package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meal-admin/csvexport"
	"meal-admin/models"
	"meal-admin/services"

	"github.com/go-chi/chi/v5"
)

const defaultMetricsDays = 30

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", services.DefaultRevenueDays)
	if err != nil || days < 1 || days > 366 {
		badRequest(w, "days must be between 1 and 366")
		return
	}
	stats, err := s.store.DashboardStats(r.Context(), days)
	if err != nil {
		fail(w, r, err, "Failed to fetch stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Orders

func (s *Server) filteredOrders(r *http.Request) ([]models.Order, error) {
	orders, err := s.store.ListOrders(r.Context())
	if err != nil {
		return nil, err
	}
	return services.FilterOrders(orders, r.URL.Query().Get("q")), nil
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.filteredOrders(r)
	if err != nil {
		fail(w, r, err, "Failed to fetch orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.filteredOrders(r)
	if err != nil {
		fail(w, r, err, "Failed to fetch orders")
		return
	}
	s.writeCSV(w, "orders", services.OrderExportRows(orders), services.OrderExportFields)
}

// orderDetail adds the labelled address lines to an order.
type orderDetail struct {
	*models.Order
	AddressLines []models.AddressLine `json:"address_lines"`
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	o, err := s.store.GetOrder(r.Context(), id)
	if err != nil {
		fail(w, r, err, "Failed to fetch order")
		return
	}
	writeJSON(w, http.StatusOK, orderDetail{Order: o, AddressLines: o.DeliveryAddress.Lines()})
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := s.store.UpdateOrderStatus(r.Context(), id, body.Status); err != nil {
		fail(w, r, err, "Failed to update order status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order status updated"})
}

// Meals

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := s.store.ListMeals(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to fetch meals")
		return
	}
	writeJSON(w, http.StatusOK, services.FilterMeals(meals, r.URL.Query().Get("q")))
}

func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	m, err := s.store.GetMeal(r.Context(), id)
	if err != nil {
		fail(w, r, err, "Failed to fetch meal")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreateMeal(w http.ResponseWriter, r *http.Request) {
	var in models.MealInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid body")
		return
	}
	id, err := s.store.CreateMeal(r.Context(), in)
	if err != nil {
		fail(w, r, err, "Failed to save meal")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "message": "Meal created successfully"})
}

func (s *Server) handleUpdateMeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	var in models.MealInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if err := s.store.UpdateMeal(r.Context(), id, in); err != nil {
		fail(w, r, err, "Failed to save meal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "Meal updated successfully"})
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	if err := s.store.DeleteMeal(r.Context(), id); err != nil {
		fail(w, r, err, "Failed to delete meal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Meal deleted successfully"})
}

const maxUploadBody = 6 << 20

// handleUploadImage takes a multipart "image" file and returns its public URL.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "image storage is not configured"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image file is required")
		return
	}
	defer file.Close()

	key, url, err := s.images.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		fail(w, r, err, "Failed to upload image")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": url})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to fetch categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Payments

func (s *Server) filteredPayments(r *http.Request) ([]models.Payment, error) {
	payments, err := s.store.ListPayments(r.Context())
	if err != nil {
		return nil, err
	}
	return services.FilterPayments(payments, r.URL.Query().Get("q")), nil
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.filteredPayments(r)
	if err != nil {
		fail(w, r, err, "Failed to fetch payments")
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleExportPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.filteredPayments(r)
	if err != nil {
		fail(w, r, err, "Failed to fetch payments")
		return
	}
	s.writeCSV(w, "payments", services.PaymentExportRows(payments), services.PaymentExportFields)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	p, err := s.store.GetPayment(r.Context(), id)
	if err != nil {
		fail(w, r, err, "Failed to fetch payment")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// writeCSV sends records as a dated attachment, or 204 when there are none.
func (s *Server) writeCSV(w http.ResponseWriter, base string, records []csvexport.Record, fields []string) {
	data, ok := csvexport.Encode(records, fields)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", csvexport.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvexport.Filename(base, s.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Referrals

func (s *Server) handleListReferrals(w http.ResponseWriter, r *http.Request) {
	referrals, err := s.store.ListReferrals(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to fetch referrals")
		return
	}
	writeJSON(w, http.StatusOK, services.FilterReferrals(referrals, r.URL.Query().Get("q")))
}

func (s *Server) handleExpireReferrals(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ExpireOldReferrals(r.Context()); err != nil {
		fail(w, r, err, "Failed to expire referrals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expired referrals updated"})
}

// Partners

func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := s.store.ListPartners(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to fetch partners")
		return
	}
	writeJSON(w, http.StatusOK, services.FilterPartners(partners, r.URL.Query().Get("q")))
}

func (s *Server) handleGetPartner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	p, err := s.store.GetPartner(r.Context(), id)
	if err != nil {
		fail(w, r, err, "Failed to fetch partner")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type partnerMetrics struct {
	From        string                   `json:"from"`
	To          string                   `json:"to"`
	Commissions models.CommissionMetrics `json:"commissions"`
	Referrals   models.ReferralMetrics   `json:"referrals"`
}

func (s *Server) handlePartnerMetrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	rng, err := s.dateRange(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	cm, err := s.store.CommissionMetrics(r.Context(), id, rng)
	if err != nil {
		fail(w, r, err, "Failed to fetch commission metrics")
		return
	}
	rm, err := s.store.ReferralMetrics(r.Context(), id, rng)
	if err != nil {
		fail(w, r, err, "Failed to fetch referral metrics")
		return
	}
	writeJSON(w, http.StatusOK, partnerMetrics{
		From:        rng.Start.Format(dateLayout),
		To:          rng.End.Format(dateLayout),
		Commissions: cm,
		Referrals:   rm,
	})
}

func (s *Server) handlePartnerLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	rng, err := s.dateRange(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit, err := intParam(r, "limit", services.DefaultLedgerLimit)
	if err != nil || limit < 1 || limit > 500 {
		badRequest(w, "limit must be between 1 and 500")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		badRequest(w, "offset must be >= 0")
		return
	}
	entries, err := s.store.CommissionLedger(r.Context(), id, rng, limit, offset)
	if err != nil {
		fail(w, r, err, "Failed to fetch commission ledger")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGenerateSettlement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	var body struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	month, err := time.Parse("2006-01", body.Month)
	if err != nil {
		badRequest(w, "month must look like 2024-05")
		return
	}
	ref, err := s.store.GenerateMonthlySettlement(r.Context(), id, month)
	if err != nil {
		fail(w, r, err, "Failed to generate settlement")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"settlement_reference": ref, "month": body.Month})
}

// Users

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		fail(w, r, err, "Failed to fetch users")
		return
	}
	writeJSON(w, http.StatusOK, services.FilterProfiles(profiles, r.URL.Query().Get("q")))
}

func (s *Server) handlePromoteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid body")
			return
		}
	}
	ok, err := s.store.PromoteUserToAdmin(r.Context(), id, body.Role)
	if err != nil {
		fail(w, r, err, "Failed to promote user")
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody{Error: "User could not be promoted"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User promoted to admin"})
}

// Partner portal

func (s *Server) handlePartnerDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.PartnerDashboard(r.Context(), partnerFromContext(r.Context()))
	if err != nil {
		fail(w, r, err, "Failed to fetch partner data")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// params

const dateLayout = "2006-01-02"

func intParam(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// dateRange reads from/to (YYYY-MM-DD). Missing bounds default to the last
// thirty days.
func (s *Server) dateRange(r *http.Request) (services.DateRange, error) {
	rng := services.LastDays(s.now(), defaultMetricsDays)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return rng, errors.New("from must be a date like 2024-05-01")
		}
		rng.Start = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return rng, errors.New("to must be a date like 2024-05-31")
		}
		rng.End = t
	}
	if rng.End.Before(rng.Start) {
		return rng, errors.New("to must not be before from")
	}
	return rng, nil
}
