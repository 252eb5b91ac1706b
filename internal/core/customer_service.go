package core

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, providerCode, name, email, address string) (*Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListCustomers(ctx context.Context, providerCode string) ([]Customer, error)
}

type customerService struct {
	pool *pgxpool.Pool
}

func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

func (s *customerService) CreateCustomer(ctx context.Context, providerCode, name, email, address string) (*Customer, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}

	providerID, err := resolveProviderID(ctx, s.pool, providerCode)
	if err != nil {
		return nil, err
	}

	c := &Customer{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		Name:       name,
		Email:      email,
		Address:    address,
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, provider_id, name, email, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, c.ID, c.ProviderID, c.Name, c.Email, c.Address).Scan(&c.CreatedAt)
	if err != nil {
		return nil, storagef("insert customer", err)
	}
	return c, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, `
		SELECT id, provider_id, name, COALESCE(email, ''), COALESCE(address, ''), created_at
		FROM customers
		WHERE id = $1
	`, customerID).Scan(&c.ID, &c.ProviderID, &c.Name, &c.Email, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "customer", Ref: customerID}
		}
		return nil, storagef("fetch customer", err)
	}
	return &c, nil
}

func (s *customerService) ListCustomers(ctx context.Context, providerCode string) ([]Customer, error) {
	providerID, err := resolveProviderID(ctx, s.pool, providerCode)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, provider_id, name, COALESCE(email, ''), COALESCE(address, ''), created_at
		FROM customers
		WHERE provider_id = $1
		ORDER BY name, id
	`, providerID)
	if err != nil {
		return nil, storagef("query customers", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.ProviderID, &c.Name, &c.Email, &c.Address, &c.CreatedAt); err != nil {
			return nil, storagef("scan customer", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storagef("iterate customers", err)
	}
	return customers, nil
}
