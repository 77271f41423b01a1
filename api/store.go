package api

import (
	"context"
	"io"
	"time"

	"meal-admin/models"
	"meal-admin/services"
)

// Store is the backend the handlers read and write through.
type Store interface {
	DashboardStats(ctx context.Context, days int) (*models.DashboardStats, error)

	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error

	ListMeals(ctx context.Context) ([]models.Meal, error)
	GetMeal(ctx context.Context, id string) (*models.Meal, error)
	CreateMeal(ctx context.Context, in models.MealInput) (string, error)
	UpdateMeal(ctx context.Context, id string, in models.MealInput) error
	DeleteMeal(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]models.MealCategory, error)

	ListPayments(ctx context.Context) ([]models.Payment, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)

	ListReferrals(ctx context.Context) ([]models.Referral, error)
	ExpireOldReferrals(ctx context.Context) error

	ListPartners(ctx context.Context) ([]models.Partner, error)
	GetPartner(ctx context.Context, id string) (*models.Partner, error)
	CommissionMetrics(ctx context.Context, partnerID string, r services.DateRange) (models.CommissionMetrics, error)
	ReferralMetrics(ctx context.Context, partnerID string, r services.DateRange) (models.ReferralMetrics, error)
	CommissionLedger(ctx context.Context, partnerID string, r services.DateRange, limit, offset int) ([]models.LedgerEntry, error)
	GenerateMonthlySettlement(ctx context.Context, partnerID string, month time.Time) (string, error)

	ListProfiles(ctx context.Context) ([]models.Profile, error)
	PromoteUserToAdmin(ctx context.Context, userID, role string) (bool, error)
	IsActiveAdmin(ctx context.Context, userID string) (bool, error)

	AuthThrottleWait(ctx context.Context, clientKey string) (int, error)
	RecordAuthFailure(ctx context.Context, clientKey string) error

	GetActivePartnerByEmail(ctx context.Context, email string) (*models.Partner, error)
	PartnerDashboard(ctx context.Context, p models.Partner) (*models.PartnerDashboard, error)
}

// ImageUploader stores meal images and returns their public URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (key, url string, err error)
}

// DBStore is the Store backed by the services package and its pool.
type DBStore struct{}

func (DBStore) DashboardStats(ctx context.Context, days int) (*models.DashboardStats, error) {
	return services.DashboardStats(ctx, days)
}

func (DBStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	return services.ListOrders(ctx)
}

func (DBStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return services.GetOrder(ctx, id)
}

func (DBStore) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return services.UpdateOrderStatus(ctx, id, status)
}

func (DBStore) ListMeals(ctx context.Context) ([]models.Meal, error) {
	return services.ListMeals(ctx)
}

func (DBStore) GetMeal(ctx context.Context, id string) (*models.Meal, error) {
	return services.GetMeal(ctx, id)
}

func (DBStore) CreateMeal(ctx context.Context, in models.MealInput) (string, error) {
	return services.CreateMeal(ctx, in)
}

func (DBStore) UpdateMeal(ctx context.Context, id string, in models.MealInput) error {
	return services.UpdateMeal(ctx, id, in)
}

func (DBStore) DeleteMeal(ctx context.Context, id string) error {
	return services.DeleteMeal(ctx, id)
}

func (DBStore) ListCategories(ctx context.Context) ([]models.MealCategory, error) {
	return services.ListCategories(ctx)
}

func (DBStore) ListPayments(ctx context.Context) ([]models.Payment, error) {
	return services.ListPayments(ctx)
}

func (DBStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return services.GetPayment(ctx, id)
}

func (DBStore) ListReferrals(ctx context.Context) ([]models.Referral, error) {
	return services.ListReferrals(ctx)
}

func (DBStore) ExpireOldReferrals(ctx context.Context) error {
	return services.ExpireOldReferrals(ctx)
}

func (DBStore) ListPartners(ctx context.Context) ([]models.Partner, error) {
	return services.ListPartners(ctx)
}

func (DBStore) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	return services.GetPartner(ctx, id)
}

func (DBStore) CommissionMetrics(ctx context.Context, partnerID string, r services.DateRange) (models.CommissionMetrics, error) {
	return services.CommissionMetrics(ctx, partnerID, r)
}

func (DBStore) ReferralMetrics(ctx context.Context, partnerID string, r services.DateRange) (models.ReferralMetrics, error) {
	return services.ReferralMetrics(ctx, partnerID, r)
}

func (DBStore) CommissionLedger(ctx context.Context, partnerID string, r services.DateRange, limit, offset int) ([]models.LedgerEntry, error) {
	return services.CommissionLedger(ctx, partnerID, r, limit, offset)
}

func (DBStore) GenerateMonthlySettlement(ctx context.Context, partnerID string, month time.Time) (string, error) {
	return services.GenerateMonthlySettlement(ctx, partnerID, month)
}

func (DBStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	return services.ListProfiles(ctx)
}

func (DBStore) PromoteUserToAdmin(ctx context.Context, userID, role string) (bool, error) {
	return services.PromoteUserToAdmin(ctx, userID, role)
}

func (DBStore) IsActiveAdmin(ctx context.Context, userID string) (bool, error) {
	return services.IsActiveAdmin(ctx, userID)
}

func (DBStore) AuthThrottleWait(ctx context.Context, clientKey string) (int, error) {
	return services.AuthThrottleWaitSeconds(ctx, clientKey)
}

func (DBStore) RecordAuthFailure(ctx context.Context, clientKey string) error {
	return services.RecordAuthFailure(ctx, clientKey)
}

func (DBStore) GetActivePartnerByEmail(ctx context.Context, email string) (*models.Partner, error) {
	return services.GetActivePartnerByEmail(ctx, email)
}

func (DBStore) PartnerDashboard(ctx context.Context, p models.Partner) (*models.PartnerDashboard, error) {
	return services.PartnerDashboard(ctx, p)
}
