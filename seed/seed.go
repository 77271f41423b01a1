// Package seed fills a development database with plausible demo data.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"meal-admin/db"
	"meal-admin/models"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("pkg", "seed").Logger()

type Options struct {
	Customers int
	Meals     int
	Orders    int
	Partners  int
	Seed      int64
}

var DefaultOptions = Options{Customers: 40, Meals: 24, Orders: 120, Partners: 3, Seed: 42}

var (
	categoryNames = []string{"Breakfast", "Lunch", "Dinner", "Fasting"}
	dishes        = []string{
		"Shiro", "Doro Wat", "Tibs", "Misir Wat", "Kitfo", "Gomen", "Firfir",
		"Beyaynetu", "Atkilt Wat", "Key Wat", "Alicha", "Dulet", "Chechebsa",
		"Ful", "Pasta Bolognese", "Grilled Chicken", "Vegetable Rice", "Lentil Soup",
	}
	dietaryTags  = []string{"vegan", "vegetarian", "fasting", "spicy", "gluten-free", "high-protein"}
	timeSlots    = []string{"lunch", "dinner"}
	methods      = []string{"telebirr", "cbe_birr", "chapa", "cash"}
	paymentState = []string{models.PaymentStatusCompleted, models.PaymentStatusCompleted, models.PaymentStatusPending, models.PaymentStatusFailed}
)

type Category struct {
	ID        string
	Name      string
	SortOrder int
}

type Meal struct {
	ID          string
	Name        string
	Description string
	Price       float64
	CategoryID  string
	Tags        []string
	Ingredients []string
	MealType    string
	PrepMinutes int
}

type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Phone     string
	PartnerID *string
	CreatedAt time.Time
}

type Partner struct {
	ID    string
	Name  string
	Code  string
	Email string
	Rate  float64
}

type Referral struct {
	ID        string
	PartnerID string
	Token     string
	Status    string
	UserID    *string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type PlanItem struct {
	ID         string
	MealID     *string
	Half1      *string
	Half2      *string
	IsHalfHalf bool
	Quantity   int
	UnitPrice  float64
	MealType   string
}

type Order struct {
	ID         string
	Number     string
	UserID     string
	PlanID     string
	Items      []PlanItem
	Subtotal   float64
	Fee        float64
	Total      float64
	Status     string
	Method     string
	Address    map[string]any
	Delivery   time.Time
	Slot       string
	CreatedAt  time.Time
	Payment    Payment
	Commission *Commission
}

type Payment struct {
	ID         string
	Status     string
	ReferralID *string
	Processed  *time.Time
}

type Commission struct {
	ID        string
	PartnerID string
	Rate      float64
	Amount    float64
}

// Dataset is a generated set of rows, ready to insert.
type Dataset struct {
	Categories []Category
	Meals      []Meal
	Partners   []Partner
	Profiles   []Profile
	Referrals  []Referral
	Orders     []Order
}

// Rows is the number of inserts Insert performs for d.
func (d Dataset) Rows() int {
	n := len(d.Categories) + len(d.Meals) + len(d.Partners) + len(d.Profiles) + len(d.Referrals)
	for _, o := range d.Orders {
		n += 3 + len(o.Items)
		if o.Commission != nil {
			n++
		}
	}
	return n
}

// Generate builds a dataset ending at now. The same options give the same
// names, prices and statuses; ids are random.
func Generate(opts Options, now time.Time) Dataset {
	fake := faker.NewWithSeed(rand.NewSource(opts.Seed))
	var d Dataset

	for i, name := range categoryNames {
		d.Categories = append(d.Categories, Category{ID: uuid.NewString(), Name: name, SortOrder: i})
	}

	for i := 0; i < opts.Meals; i++ {
		name := dishes[i%len(dishes)]
		if i >= len(dishes) {
			name = fmt.Sprintf("%s %s", fake.Lorem().Word(), name)
		}
		d.Meals = append(d.Meals, Meal{
			ID:          uuid.NewString(),
			Name:        name,
			Description: fake.Lorem().Sentence(8),
			Price:       float64(fake.IntBetween(90, 450)),
			CategoryID:  d.Categories[i%len(d.Categories)].ID,
			Tags:        []string{fake.RandomStringElement(dietaryTags)},
			Ingredients: []string{fake.Lorem().Word(), fake.Lorem().Word()},
			MealType:    fake.RandomStringElement(timeSlots),
			PrepMinutes: fake.IntBetween(10, 60),
		})
	}

	for i := 0; i < opts.Partners; i++ {
		company := fake.Company().Name()
		d.Partners = append(d.Partners, Partner{
			ID:    uuid.NewString(),
			Name:  company,
			Code:  fmt.Sprintf("PART%03d", i+1),
			Email: fmt.Sprintf("partner%d@%s", i+1, fake.Internet().Domain()),
			Rate:  0.05 + float64(i)*0.01,
		})
	}

	start := now.AddDate(0, -2, 0)
	for i := 0; i < opts.Customers; i++ {
		p := Profile{
			ID:        uuid.NewString(),
			FirstName: fake.Person().FirstName(),
			LastName:  fake.Person().LastName(),
			Phone:     fake.Phone().Number(),
			CreatedAt: fake.Time().TimeBetween(start, now),
		}
		if len(d.Partners) > 0 && i%3 == 0 {
			partner := d.Partners[i%len(d.Partners)]
			p.PartnerID = &partner.ID
			uid := p.ID
			d.Referrals = append(d.Referrals, Referral{
				ID:        uuid.NewString(),
				PartnerID: partner.ID,
				Token:     cuid.New(),
				Status:    models.ReferralStatusConverted,
				UserID:    &uid,
				CreatedAt: p.CreatedAt,
				ExpiresAt: p.CreatedAt.AddDate(0, 0, 30),
			})
		}
		d.Profiles = append(d.Profiles, p)
	}
	for _, partner := range d.Partners {
		created := fake.Time().TimeBetween(start, now)
		d.Referrals = append(d.Referrals, Referral{
			ID:        uuid.NewString(),
			PartnerID: partner.ID,
			Token:     cuid.New(),
			Status:    models.ReferralStatusPending,
			CreatedAt: created,
			ExpiresAt: created.AddDate(0, 0, 30),
		})
	}

	referralOf := map[string]Referral{}
	for _, r := range d.Referrals {
		if r.UserID != nil {
			referralOf[*r.UserID] = r
		}
	}
	rateOf := map[string]float64{}
	for _, p := range d.Partners {
		rateOf[p.ID] = p.Rate
	}

	if len(d.Profiles) == 0 || len(d.Meals) < 2 {
		return d
	}
	for i := 0; i < opts.Orders; i++ {
		customer := d.Profiles[fake.IntBetween(0, len(d.Profiles)-1)]
		created := fake.Time().TimeBetween(customer.CreatedAt, now)
		o := Order{
			ID:        uuid.NewString(),
			Number:    fmt.Sprintf("ORD-%s-%04d", created.Format("20060102"), i+1),
			UserID:    customer.ID,
			PlanID:    uuid.NewString(),
			Status:    fake.RandomStringElement(models.OrderStatuses),
			Method:    fake.RandomStringElement(methods),
			Fee:       50,
			Delivery:  created.AddDate(0, 0, 1),
			Slot:      fake.RandomStringElement(timeSlots),
			CreatedAt: created,
			Address: map[string]any{
				"city":   fake.Address().City(),
				"street": fake.Address().StreetName(),
				"floor":  fake.IntBetween(0, 12),
			},
		}
		for n := fake.IntBetween(1, 3); n > 0; n-- {
			o.Items = append(o.Items, planItem(fake, d.Meals))
		}
		for _, it := range o.Items {
			o.Subtotal += it.UnitPrice * float64(it.Quantity)
		}
		o.Total = o.Subtotal + o.Fee

		o.Payment = Payment{ID: uuid.NewString(), Status: fake.RandomStringElement(paymentState)}
		if o.Payment.Status == models.PaymentStatusCompleted {
			t := created.Add(time.Duration(fake.IntBetween(1, 30)) * time.Minute)
			o.Payment.Processed = &t
		}
		if r, ok := referralOf[customer.ID]; ok {
			rid := r.ID
			o.Payment.ReferralID = &rid
			if o.Payment.Status == models.PaymentStatusCompleted {
				rate := rateOf[r.PartnerID]
				o.Commission = &Commission{ID: uuid.NewString(), PartnerID: r.PartnerID, Rate: rate, Amount: round2(o.Total * rate)}
			}
		}
		d.Orders = append(d.Orders, o)
	}
	return d
}

func planItem(fake faker.Faker, meals []Meal) PlanItem {
	it := PlanItem{ID: uuid.NewString(), Quantity: fake.IntBetween(1, 2), MealType: fake.RandomStringElement(timeSlots)}
	if len(meals) > 1 && fake.IntBetween(0, 3) == 0 {
		i := fake.IntBetween(0, len(meals)-1)
		j := fake.IntBetween(0, len(meals)-2)
		if j >= i {
			j++
		}
		a, b := meals[i], meals[j]
		it.Half1, it.Half2 = &a.ID, &b.ID
		it.IsHalfHalf = true
		it.UnitPrice = round2((a.Price + b.Price) / 2)
		return it
	}
	m := meals[fake.IntBetween(0, len(meals)-1)]
	it.MealID = &m.ID
	it.UnitPrice = m.Price
	return it
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// Insert writes d in one transaction. step is called after every row.
func Insert(ctx context.Context, d Dataset, step func()) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	exec := func(what, sql string, args ...any) error {
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert %s: %w", what, err)
		}
		step()
		return nil
	}

	for _, c := range d.Categories {
		if err := exec("category", `INSERT INTO meal_categories (id, name, sort_order) VALUES ($1, $2, $3)`,
			c.ID, c.Name, c.SortOrder); err != nil {
			return err
		}
	}
	for _, m := range d.Meals {
		if err := exec("meal", `
			INSERT INTO meals (id, name, description, base_price, category_id, is_available, dietary_tags, ingredients, meal_type, preparation_time)
			VALUES ($1, $2, $3, $4, $5, true, $6, $7, $8, $9)`,
			m.ID, m.Name, m.Description, m.Price, m.CategoryID, m.Tags, m.Ingredients, m.MealType, m.PrepMinutes); err != nil {
			return err
		}
	}
	for _, p := range d.Partners {
		if err := exec("partner", `
			INSERT INTO partners (id, name, partner_code, contact_email, commission_rate, status)
			VALUES ($1, $2, $3, $4, $5, 'active')`,
			p.ID, p.Name, p.Code, p.Email, p.Rate); err != nil {
			return err
		}
	}
	for _, p := range d.Profiles {
		if err := exec("profile", `
			INSERT INTO profiles (id, first_name, last_name, phone_number, role, referral_partner_id, created_at)
			VALUES ($1, $2, $3, $4, 'customer', $5, $6)`,
			p.ID, p.FirstName, p.LastName, p.Phone, p.PartnerID, p.CreatedAt); err != nil {
			return err
		}
	}
	for _, r := range d.Referrals {
		if err := exec("referral", `
			INSERT INTO referrals (id, partner_id, referral_token, status, user_id, converted_at, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, CASE WHEN $5::uuid IS NULL THEN NULL ELSE $6::timestamptz END, $7, $6)`,
			r.ID, r.PartnerID, r.Token, r.Status, r.UserID, r.CreatedAt, r.ExpiresAt); err != nil {
			return err
		}
	}
	for _, o := range d.Orders {
		if err := insertOrder(exec, o); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Info().Int("orders", len(d.Orders)).Int("meals", len(d.Meals)).Int("customers", len(d.Profiles)).Msg("demo data inserted")
	return nil
}

func insertOrder(exec func(what, sql string, args ...any) error, o Order) error {
	if err := exec("meal plan", `
		INSERT INTO meal_plans (id, user_id, status, total_amount, week_start_date, created_at)
		VALUES ($1, $2, 'active', $3, $4::date, $5)`,
		o.PlanID, o.UserID, o.Subtotal, o.Delivery, o.CreatedAt); err != nil {
		return err
	}
	for _, it := range o.Items {
		if err := exec("meal plan item", `
			INSERT INTO meal_plan_items (id, meal_plan_id, meal_id, half_meal_1_id, half_meal_2_id, is_half_half, quantity, unit_price, meal_type, delivery_date, delivery_time_slot)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11)`,
			it.ID, o.PlanID, it.MealID, it.Half1, it.Half2, it.IsHalfHalf, it.Quantity, it.UnitPrice, it.MealType, o.Delivery, o.Slot); err != nil {
			return err
		}
	}
	if err := exec("order", `
		INSERT INTO orders (id, order_number, user_id, subtotal, delivery_fee, total_amount, status, payment_status, payment_method, delivery_address, delivery_date, delivery_time_slot, meal_plan_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::date, $12, $13, $14)`,
		o.ID, o.Number, o.UserID, o.Subtotal, o.Fee, o.Total, o.Status, o.Payment.Status, o.Method,
		o.Address, o.Delivery, o.Slot, o.PlanID, o.CreatedAt); err != nil {
		return err
	}
	if err := exec("payment", `
		INSERT INTO payments (id, order_id, amount, payment_method, status, commission_eligible, referral_id, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.Payment.ID, o.ID, o.Total, o.Method, o.Payment.Status, o.Payment.ReferralID != nil,
		o.Payment.ReferralID, o.Payment.Processed, o.CreatedAt); err != nil {
		return err
	}
	if c := o.Commission; c != nil {
		if err := exec("commission", `
			INSERT INTO partner_commissions (id, partner_id, payment_id, referral_id, user_id, payment_amount, commission_rate, commission_amount, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9)`,
			c.ID, c.PartnerID, o.Payment.ID, o.Payment.ReferralID, o.UserID, o.Total, c.Rate, c.Amount, o.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}
