package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/google/uuid"
)

const minPasswordLen = 6

type Service struct {
	store  Store
	hasher Hasher
	log    *slog.Logger
	now    func() time.Time
}

func NewService(log *slog.Logger, store Store, hasher Hasher) *Service {
	return &Service{store: store, hasher: hasher, log: log, now: time.Now}
}

// RegisterCustomer creates a CUSTOMER user and its customer record in one
// transaction. It needs no principal.
func (s *Service) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) (Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Customer{}, err
	}
	switch {
	case in.Name == "":
		return Customer{}, apperr.Validation("name is required")
	case in.Phone == "":
		return Customer{}, apperr.Validation("phone is required")
	case in.Address == "":
		return Customer{}, apperr.Validation("address is required")
	}
	u, err := s.newUser(in.Name, email, in.Password, auth.RoleCustomer)
	if err != nil {
		return Customer{}, err
	}
	c := Customer{
		ID:      uuid.NewString(),
		UserID:  u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Phone:   in.Phone,
		Address: in.Address,
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := ensureEmailFree(ctx, tx, email, ""); err != nil {
			return err
		}
		if err := tx.InsertUser(ctx, u); err != nil {
			return err
		}
		return tx.InsertCustomer(ctx, c)
	})
	if err != nil {
		return Customer{}, apperr.Passthrough(err, "register customer")
	}
	s.log.Info("customer registered", slog.String("customer_id", c.ID), slog.String("user_id", u.ID))
	return c, nil
}

func (s *Service) CreateEmployee(ctx context.Context, p auth.Principal, in EmployeeInput) (Employee, error) {
	if err := auth.Authorize(p, auth.OpAccountWriteOther, nil); err != nil {
		return Employee{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Position = strings.TrimSpace(in.Position)
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Employee{}, err
	}
	if in.Name == "" {
		return Employee{}, apperr.Validation("name is required")
	}
	if in.Position == "" {
		return Employee{}, apperr.Validation("position is required")
	}
	if in.Commission != nil && in.Commission.IsNegative() {
		return Employee{}, apperr.Validation("commission cannot be negative")
	}
	u, err := s.newUser(in.Name, email, in.Password, auth.RoleEmployee)
	if err != nil {
		return Employee{}, err
	}
	e := Employee{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Position:   in.Position,
		Commission: in.Commission,
	}

	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := ensureEmailFree(ctx, tx, email, ""); err != nil {
			return err
		}
		if err := tx.InsertUser(ctx, u); err != nil {
			return err
		}
		return tx.InsertEmployee(ctx, e)
	})
	if err != nil {
		return Employee{}, apperr.Passthrough(err, "create employee")
	}
	s.log.Info("employee created", slog.String("employee_id", e.ID), slog.String("by", p.UserID))
	return e, nil
}

// UpdateUser edits name, email or password. Users edit themselves; editing
// anyone else takes ACCOUNT_WRITE_OTHER. Roles never change here.
func (s *Service) UpdateUser(ctx context.Context, p auth.Principal, userID string, patch UserPatch) (User, error) {
	if !auth.CanPerform(p, auth.OpAccountWriteSelf, &auth.Resource{OwnerUserID: userID}) {
		if err := auth.Authorize(p, auth.OpAccountWriteOther, &auth.Resource{OwnerUserID: userID}); err != nil {
			return User{}, err
		}
	}

	var out User
	err := s.store.InTx(ctx, func(tx Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apperr.Validation("name is required")
			}
			u.Name = name
		}
		if patch.Email != nil {
			email, err := normalizeEmail(*patch.Email)
			if err != nil {
				return err
			}
			if err := ensureEmailFree(ctx, tx, email, u.ID); err != nil {
				return err
			}
			u.Email = email
		}
		if patch.Password != nil {
			hash, err := s.hashPassword(*patch.Password)
			if err != nil {
				return err
			}
			u.PasswordHash = hash
		}
		u.UpdatedAt = s.now().UTC()
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return User{}, apperr.Passthrough(err, "update user")
	}
	return out, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, p auth.Principal, employeeID string, patch EmployeePatch) (Employee, error) {
	if err := auth.Authorize(p, auth.OpAccountWriteOther, nil); err != nil {
		return Employee{}, err
	}
	var out Employee
	err := s.store.InTx(ctx, func(tx Tx) error {
		e, err := tx.LockEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if patch.Position != nil {
			pos := strings.TrimSpace(*patch.Position)
			if pos == "" {
				return apperr.Validation("position is required")
			}
			e.Position = pos
		}
		if patch.Commission != nil {
			if patch.Commission.IsNegative() {
				return apperr.Validation("commission cannot be negative")
			}
			c := *patch.Commission
			e.Commission = &c
		}
		if err := tx.UpdateEmployee(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, apperr.Passthrough(err, "update employee")
}

func (s *Service) DeleteEmployee(ctx context.Context, p auth.Principal, employeeID string) error {
	if err := auth.Authorize(p, auth.OpAccountWriteOther, nil); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.LockEmployee(ctx, employeeID); err != nil {
			return err
		}
		return tx.DeleteEmployee(ctx, employeeID)
	})
	if err != nil {
		return apperr.Passthrough(err, "delete employee")
	}
	s.log.Info("employee deleted", slog.String("employee_id", employeeID), slog.String("by", p.UserID))
	return nil
}

// DeleteCustomer removes a customer and its user. Customers placed orders
// are kept forever, so a customer with orders cannot be deleted.
func (s *Service) DeleteCustomer(ctx context.Context, p auth.Principal, customerID string) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.LockCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		res := &auth.Resource{OwnerUserID: c.UserID, CustomerID: c.ID}
		if !auth.CanPerform(p, auth.OpAccountWriteSelf, res) {
			if err := auth.Authorize(p, auth.OpAccountWriteOther, res); err != nil {
				return err
			}
		}
		has, err := tx.CustomerHasOrders(ctx, c.ID)
		if err != nil {
			return err
		}
		if has {
			return apperr.Conflict("customer %s has orders and cannot be deleted", c.ID)
		}
		return tx.DeleteCustomer(ctx, c.ID)
	})
	if err != nil {
		return apperr.Passthrough(err, "delete customer")
	}
	s.log.Info("customer deleted", slog.String("customer_id", customerID), slog.String("by", p.UserID))
	return nil
}

func (s *Service) ListUsers(ctx context.Context, p auth.Principal) ([]User, error) {
	if err := auth.Authorize(p, auth.OpAccountReadAll, nil); err != nil {
		return nil, err
	}
	out, err := s.store.ListUsers(ctx)
	return out, apperr.Passthrough(err, "list users")
}

func (s *Service) ListCustomers(ctx context.Context, p auth.Principal) ([]Customer, error) {
	if err := auth.Authorize(p, auth.OpAccountReadAll, nil); err != nil {
		return nil, err
	}
	out, err := s.store.ListCustomers(ctx)
	return out, apperr.Passthrough(err, "list customers")
}

func (s *Service) ListEmployees(ctx context.Context, p auth.Principal) ([]Employee, error) {
	if err := auth.Authorize(p, auth.OpAccountReadAll, nil); err != nil {
		return nil, err
	}
	out, err := s.store.ListEmployees(ctx)
	return out, apperr.Passthrough(err, "list employees")
}

var errBadCredentials = apperr.Unauthorized("invalid credentials")

// Authenticate checks email and password and resolves the caller's
// principal. Unknown email and wrong password fail the same way.
func (s *Service) Authenticate(ctx context.Context, email, password string) (auth.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return auth.Principal{}, errBadCredentials
	}
	if err != nil {
		return auth.Principal{}, apperr.Passthrough(err, "authenticate")
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if !errors.Is(err, errMismatch) {
			s.log.Warn("password compare failed", slog.String("user_id", u.ID), slog.Any("err", err))
		}
		return auth.Principal{}, errBadCredentials
	}
	p, err := s.store.Principal(ctx, u.ID)
	if err != nil {
		return auth.Principal{}, apperr.Passthrough(err, "authenticate")
	}
	return p, nil
}

func (s *Service) Profile(ctx context.Context, p auth.Principal) (Profile, error) {
	if p.UserID == "" {
		return Profile{}, apperr.Unauthorized("not authenticated")
	}
	u, err := s.store.GetUser(ctx, p.UserID)
	if err != nil {
		return Profile{}, apperr.Passthrough(err, "profile")
	}
	return Profile{User: u, CustomerID: p.CustomerID, EmployeeID: p.EmployeeID}, nil
}

// Principal loads the current role and linked ids of userID. A deleted user
// is NOT_FOUND.
func (s *Service) Principal(ctx context.Context, userID string) (auth.Principal, error) {
	p, err := s.store.Principal(ctx, userID)
	if err != nil {
		return auth.Principal{}, apperr.Passthrough(err, "load principal")
	}
	return p, nil
}

// EnsureAdmin creates the bootstrap administrator unless a user with that
// email already exists. An empty email disables bootstrapping.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	existing, err := s.store.UserByEmail(ctx, email)
	if err == nil {
		if existing.Role != auth.RoleAdmin {
			s.log.Warn("bootstrap admin email belongs to a non-admin user", slog.String("user_id", existing.ID))
		}
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return apperr.Passthrough(err, "ensure admin")
	}
	if strings.TrimSpace(name) == "" {
		name = "admin"
	}
	u, err := s.newUser(name, email, password, auth.RoleAdmin)
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(tx Tx) error {
		if err := ensureEmailFree(ctx, tx, email, ""); err != nil {
			return err
		}
		return tx.InsertUser(ctx, u)
	})
	if err != nil {
		return apperr.Passthrough(err, "ensure admin")
	}
	s.log.Info("bootstrap admin created", slog.String("user_id", u.ID))
	return nil
}

func (s *Service) newUser(name, email, password string, role auth.Role) (User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	return User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", apperr.Validation("password must have at least %d characters", minPasswordLen)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", apperr.Internal(err, "hash password")
	}
	return hash, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("invalid email %q", email)
	}
	return email, nil
}

func ensureEmailFree(ctx context.Context, tx Tx, email, exceptUserID string) error {
	taken, err := tx.EmailTaken(ctx, email, exceptUserID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("email %s is already registered", email)
	}
	return nil
}
