package models

import "time"

type Profile struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	PhoneNumber       string    `json:"phone_number"`
	Role              string    `json:"role"`
	ReferralPartnerID *string   `json:"referral_partner_id"`
	CreatedAt         time.Time `json:"created_at"`
}

func (p Profile) Name() PersonName {
	return PersonName{FirstName: p.FirstName, LastName: p.LastName}
}

type AdminUser struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}
