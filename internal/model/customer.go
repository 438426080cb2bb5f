package model

import (
	"fmt"
	"strings"
	"time"
)

// Customer is either a registered user or a transient record created for a guest checkout.
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Guest     bool      `json:"guest" db:"guest"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Address is a shipping address owned by a customer. At most one address per
// customer is primary.
type Address struct {
	ID         int64     `json:"id" db:"id"`
	CustomerID int64     `json:"customerId" db:"customer_id"`
	Street     string    `json:"street" db:"street"`
	Number     string    `json:"number" db:"number"`
	Unit       string    `json:"unit,omitempty" db:"unit"`
	Commune    string    `json:"commune" db:"commune"`
	Region     string    `json:"region" db:"region"`
	PostalCode string    `json:"postalCode,omitempty" db:"postal_code"`
	IsPrimary  bool      `json:"isPrimary" db:"is_primary"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// AddressInput carries raw address fields from a checkout request.
type AddressInput struct {
	Street     string `json:"street" validate:"required,max=200"`
	Number     string `json:"number" validate:"required,max=20"`
	Unit       string `json:"unit" validate:"max=50"`
	Commune    string `json:"commune" validate:"required,max=100"`
	Region     string `json:"region" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	IsPrimary  bool   `json:"isPrimary"`
}

// NormalizeField trims, collapses inner whitespace and case-folds an address field.
func NormalizeField(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Normalized returns a copy with every matching field normalized.
func (in AddressInput) Normalized() AddressInput {
	return AddressInput{
		Street:     NormalizeField(in.Street),
		Number:     NormalizeField(in.Number),
		Unit:       NormalizeField(in.Unit),
		Commune:    NormalizeField(in.Commune),
		Region:     NormalizeField(in.Region),
		PostalCode: strings.TrimSpace(in.PostalCode),
		IsPrimary:  in.IsPrimary,
	}
}

// Trimmed returns a copy with surrounding whitespace removed. It is the form
// an address is stored and displayed in, case preserved.
func (in AddressInput) Trimmed() AddressInput {
	return AddressInput{
		Street:     strings.TrimSpace(in.Street),
		Number:     strings.TrimSpace(in.Number),
		Unit:       strings.TrimSpace(in.Unit),
		Commune:    strings.TrimSpace(in.Commune),
		Region:     strings.TrimSpace(in.Region),
		PostalCode: strings.TrimSpace(in.PostalCode),
		IsPrimary:  in.IsPrimary,
	}
}

// MissingFields lists required fields that are blank after trimming.
func (in AddressInput) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(in.Street) == "" {
		missing = append(missing, "address.street")
	}
	if strings.TrimSpace(in.Number) == "" {
		missing = append(missing, "address.number")
	}
	if strings.TrimSpace(in.Commune) == "" {
		missing = append(missing, "address.commune")
	}
	if strings.TrimSpace(in.Region) == "" {
		missing = append(missing, "address.region")
	}
	return missing
}

// Snapshot renders the address as the denormalized text stored on an order.
func (a *Address) Snapshot() string {
	line := fmt.Sprintf("%s %s", a.Street, a.Number)
	if a.Unit != "" {
		line += ", " + a.Unit
	}
	line += fmt.Sprintf(", %s, %s", a.Commune, a.Region)
	if a.PostalCode != "" {
		line += " " + a.PostalCode
	}
	return line
}

// GuestInput identifies a guest buyer.
type GuestInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"max=30"`
}
