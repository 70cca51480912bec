// Package service holds the CRUD services around the order core: customers,
// accounts, products and the stock catalog, plus the RabbitMQ publisher.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
)

// CustomerInput is the body of a create request.
type CustomerInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CustomerPatch updates the fields that are set.
type CustomerPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// CustomerService manages customers.
type CustomerService struct {
	store store.Store
	log   *zap.Logger
}

func NewCustomerService(st store.Store, log *zap.Logger) *CustomerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CustomerService{store: st, log: log.Named("customers")}
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (model.Customer, error) {
	c := model.Customer{
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
	if err := validateCustomer(c); err != nil {
		return model.Customer{}, err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.CreateCustomer(ctx, &c)
	})
	if err != nil {
		return model.Customer{}, translate(err, "customer", "email "+c.Email+" is already registered")
	}
	s.log.Info("customer created", zap.Uint64("customer_id", c.ID))
	return c, nil
}

func (s *CustomerService) Get(ctx context.Context, id uint64) (model.Customer, error) {
	var c model.Customer
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		c, err = tx.GetCustomer(ctx, id)
		return err
	})
	if err != nil {
		return model.Customer{}, translate(err, "customer", "")
	}
	return c, nil
}

func (s *CustomerService) List(ctx context.Context) ([]model.Customer, error) {
	var out []model.Customer
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListCustomers(ctx)
		return err
	})
	if err != nil {
		return nil, apperror.Persistence("list customers", err)
	}
	return out, nil
}

// Update applies the set fields of p to customer id.
func (s *CustomerService) Update(ctx context.Context, id uint64, p CustomerPatch) (model.Customer, error) {
	var c model.Customer
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if c, err = tx.GetCustomer(ctx, id); err != nil {
			return err
		}
		if p.Name != nil {
			c.Name = strings.TrimSpace(*p.Name)
		}
		if p.Email != nil {
			c.Email = normalizeEmail(*p.Email)
		}
		if p.Phone != nil {
			c.Phone = strings.TrimSpace(*p.Phone)
		}
		if err := validateCustomer(c); err != nil {
			return err
		}
		return tx.UpdateCustomer(ctx, c)
	})
	if err != nil {
		return model.Customer{}, translate(err, "customer", "email "+c.Email+" is already registered")
	}
	return c, nil
}

// Delete removes a customer and its account. A customer that still has
// orders cannot be deleted.
func (s *CustomerService) Delete(ctx context.Context, id uint64) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteCustomer(ctx, id)
	})
	if err != nil {
		return translate(err, "customer", "customer still has orders")
	}
	s.log.Info("customer deleted", zap.Uint64("customer_id", id))
	return nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func validateCustomer(c model.Customer) error {
	if c.Name == "" {
		return apperror.InvalidRequest("name is required")
	}
	if c.Email == "" {
		return apperror.InvalidRequest("email is required")
	}
	if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
		return apperror.InvalidRequest("email %q is not valid", c.Email)
	}
	return nil
}

// translate maps store sentinels to service errors. what names the entity
// for not-found messages; conflict is the message used for store.ErrConflict.
func translate(err error, what, conflict string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperror.NotFound("%s not found", what)
	case errors.Is(err, store.ErrConflict):
		return apperror.Conflict("%s", conflict)
	}
	return apperror.Persistence(what, err)
}
