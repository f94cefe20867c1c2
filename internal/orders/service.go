package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/ariefcatur/restaurant-orders/internal/auth"
	"github.com/shopspring/decimal"
)

type Service struct {
	store Store
	log   *slog.Logger
	loc   *time.Location
	now   func() time.Time
}

// NewService returns an order service. loc decides month boundaries for
// MonthlyTotal; nil means UTC.
func NewService(log *slog.Logger, store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, log: log, loc: loc, now: time.Now}
}

// WithClock replaces the service clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create prices the requested items against the catalog and persists the
// order with its line items in one transaction. Customers always order for
// themselves.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (Order, error) {
	customerID := in.CustomerID
	employeeID := in.EmployeeID
	if p.IsCustomer() {
		customerID = p.CustomerID
	} else if employeeID == "" {
		employeeID = p.EmployeeID
	}
	if err := auth.Authorize(p, auth.OpOrderCreate, &auth.Resource{CustomerID: customerID}); err != nil {
		return Order{}, err
	}
	if customerID == "" {
		return Order{}, apperr.Validation("customer is required")
	}
	if len(in.Items) == 0 {
		return Order{}, apperr.Validation("order must contain at least one item")
	}

	var created Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		ok, err := tx.CustomerExists(ctx, customerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation("customer not found: %s", customerID)
		}
		if employeeID != "" {
			ok, err := tx.EmployeeExists(ctx, employeeID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation("employee not found: %s", employeeID)
			}
		}

		products, err := tx.ProductSnapshots(ctx, productIDs(in.Items))
		if err != nil {
			return err
		}
		o, err := NewOrder(customerID, employeeID, s.now(), in.Items, products)
		if err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return err
		}
		for _, li := range o.Items {
			if err := tx.InsertLineItem(ctx, li); err != nil {
				return err
			}
		}
		created = o
		return nil
	})
	if err != nil {
		return Order{}, apperr.Passthrough(err, "create order")
	}

	s.log.Info("order created",
		slog.String("order_id", created.ID),
		slog.Int64("number", created.Number),
		slog.String("customer_id", created.CustomerID),
		slog.String("total", created.Total.StringFixed(2)))
	return created, nil
}

// Finalize moves a PENDING order to FINALIZED.
func (s *Service) Finalize(ctx context.Context, p auth.Principal, orderID string) (Order, error) {
	if err := auth.Authorize(p, auth.OpOrderTransition, nil); err != nil {
		return Order{}, err
	}
	return s.transition(ctx, orderID, StatusFinalized)
}

// Cancel moves a PENDING order to CANCELED. Only staff may cancel.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, orderID string) (Order, error) {
	if err := auth.Authorize(p, auth.OpOrderTransition, nil); err != nil {
		return Order{}, err
	}
	return s.transition(ctx, orderID, StatusCanceled)
}

// transition reads the order under lock, checks legality and writes the new
// status in the same transaction, so concurrent attempts see each other.
func (s *Service) transition(ctx context.Context, orderID string, to Status) (Order, error) {
	var out Order
	var from Status
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := checkTransition(o.ID, o.Status, to); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, o.ID, to); err != nil {
			return err
		}
		from = o.Status
		o.Status = to
		out = o
		return nil
	})
	if err != nil {
		return Order{}, apperr.Passthrough(err, "transition order")
	}
	s.log.Info("order status changed",
		slog.String("order_id", out.ID),
		slog.String("from", string(from)),
		slog.String("to", string(to)))
	return out, nil
}

func (s *Service) ListAll(ctx context.Context, p auth.Principal) ([]Order, error) {
	if err := auth.Authorize(p, auth.OpOrderReadAll, nil); err != nil {
		return nil, err
	}
	out, err := s.store.List(ctx, Filter{})
	return out, apperr.Passthrough(err, "list orders")
}

// ListForPrincipal returns every order to staff and only the caller's own
// orders to a customer.
func (s *Service) ListForPrincipal(ctx context.Context, p auth.Principal) ([]Order, error) {
	if auth.CanPerform(p, auth.OpOrderReadAll, nil) {
		return s.ListAll(ctx, p)
	}
	if err := auth.Authorize(p, auth.OpOrderReadOwn, &auth.Resource{CustomerID: p.CustomerID}); err != nil {
		return nil, err
	}
	out, err := s.store.List(ctx, Filter{CustomerID: p.CustomerID})
	return out, apperr.Passthrough(err, "list orders")
}

// Get returns one order with its items. A customer asking for someone
// else's order gets NOT_FOUND.
func (s *Service) Get(ctx context.Context, p auth.Principal, orderID string) (Order, error) {
	if !p.IsStaff() && !p.IsCustomer() {
		return Order{}, auth.Authorize(p, auth.OpOrderReadOwn, nil)
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Order{}, apperr.Passthrough(err, "get order")
	}
	if auth.CanPerform(p, auth.OpOrderReadAll, nil) ||
		auth.CanPerform(p, auth.OpOrderReadOwn, &auth.Resource{CustomerID: o.CustomerID}) {
		return o, nil
	}
	return Order{}, apperr.NotFound("order %s not found", orderID)
}

type MonthlyTotal struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Total decimal.Decimal `json:"total"`
}

// MonthlyTotal sums every order placed in the calendar month containing the
// service clock's current time.
func (s *Service) MonthlyTotal(ctx context.Context, p auth.Principal) (MonthlyTotal, error) {
	if err := auth.Authorize(p, auth.OpOrderReadAll, nil); err != nil {
		return MonthlyTotal{}, err
	}
	from, to := MonthWindow(s.now(), s.loc)
	total, err := s.store.SumTotal(ctx, from, to)
	if err != nil {
		return MonthlyTotal{}, apperr.Passthrough(err, "monthly total")
	}
	return MonthlyTotal{From: from, To: to, Total: total}, nil
}

// MonthWindow returns [first day of month 00:00, first day of next month
// 00:00) for t in loc.
func MonthWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}
