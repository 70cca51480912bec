package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-orders/internal/apperror"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/store"
	"github.com/iliyamo/storefront-orders/internal/utils"
)

// AccountInput creates the login of an existing customer.
type AccountInput struct {
	CustomerID uint64 `json:"customer_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// AccountUpdate always carries a new password; Username is optional.
type AccountUpdate struct {
	Username *string `json:"username"`
	Password string  `json:"password"`
}

// AccountService manages customer accounts. Passwords are stored as bcrypt
// hashes and never returned.
type AccountService struct {
	store store.Store
	cost  int
	log   *zap.Logger
}

func NewAccountService(st store.Store, bcryptCost int, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{store: st, cost: bcryptCost, log: log.Named("accounts")}
}

func (s *AccountService) Create(ctx context.Context, in AccountInput) (model.Account, error) {
	if in.CustomerID == 0 {
		return model.Account{}, apperror.InvalidRequest("customer_id is required")
	}
	username := strings.TrimSpace(in.Username)
	if err := checkUsername(username); err != nil {
		return model.Account{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return model.Account{}, err
	}
	a := model.Account{CustomerID: in.CustomerID, Username: username, PasswordHash: hash}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCustomer(ctx, a.CustomerID); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, a)
	})
	if err != nil {
		return model.Account{}, translate(err, "customer", "customer already has an account or username is taken")
	}
	s.log.Info("account created", zap.Uint64("customer_id", a.CustomerID))
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, customerID uint64) (model.Account, error) {
	var a model.Account
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		a, err = tx.GetAccount(ctx, customerID)
		return err
	})
	if err != nil {
		return model.Account{}, translate(err, "account", "")
	}
	return a, nil
}

// Update re-hashes the password and, when set, changes the username.
func (s *AccountService) Update(ctx context.Context, customerID uint64, in AccountUpdate) (model.Account, error) {
	var username string
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if err := checkUsername(username); err != nil {
			return model.Account{}, err
		}
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return model.Account{}, err
	}

	var a model.Account
	err = s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		if a, err = tx.GetAccount(ctx, customerID); err != nil {
			return err
		}
		if in.Username != nil {
			a.Username = username
		}
		a.PasswordHash = hash
		return tx.UpdateAccount(ctx, a)
	})
	if err != nil {
		return model.Account{}, translate(err, "account", "username is taken")
	}
	return a, nil
}

func (s *AccountService) Delete(ctx context.Context, customerID uint64) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteAccount(ctx, customerID)
	})
	if err != nil {
		return translate(err, "account", "")
	}
	return nil
}

func (s *AccountService) hash(password string) (string, error) {
	hash, err := utils.HashPassword(password, s.cost)
	if errors.Is(err, utils.ErrPasswordLength) {
		return "", apperror.InvalidRequest("password must be at least %d characters and at most 72 bytes", model.MinPasswordLen)
	}
	if err != nil {
		return "", apperror.Persistence("hash password", err)
	}
	return hash, nil
}

func checkUsername(u string) error {
	if utf8.RuneCountInString(u) < model.MinUsernameLen {
		return apperror.InvalidRequest("username must be at least %d characters", model.MinUsernameLen)
	}
	return nil
}
