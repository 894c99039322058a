package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Admin struct {
	ID           uuid.UUID          `json:"id"`
	Username     string             `json:"username"`
	PasswordHash string             `json:"password_hash"`
	Role         string             `json:"role"`
	IsActive     bool               `json:"is_active"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type Order struct {
	ID              string             `json:"id"`
	Items           []byte             `json:"items"`
	Total           pgtype.Numeric     `json:"total"`
	Status          string             `json:"status"`
	CustomerName    string             `json:"customer_name"`
	TableNumber     pgtype.Text        `json:"table_number"`
	PaymentStatus   string             `json:"payment_status"`
	PaymentMethod   pgtype.Text        `json:"payment_method"`
	StripeSessionID pgtype.Text        `json:"stripe_session_id"`
	Version         int64              `json:"version"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
	UpdatedAt       pgtype.Timestamptz `json:"updated_at"`
}
