package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/lib/mytime"
	"github.com/MarcGrol/dobmilano/lib/myuuid"
)

const (
	orderNumberPrefix = "DOB-"
	sequenceName      = "orders"
)

// CommitFunc runs inside the transaction that flips an order to paid.
type CommitFunc func(c context.Context, order Order) error

type Repository struct {
	orderStore    mystore.Store[Order]
	sequenceStore mystore.Store[orderSequence]
	nower         mytime.Nower
	uuider        myuuid.UUIDer
	logger        mylog.Logger
}

func NewRepository(c context.Context, nower mytime.Nower, uuider myuuid.UUIDer) (*Repository, func(), error) {
	orderStore, orderCleanup, err := mystore.New[Order](c)
	if err != nil {
		return nil, nil, err
	}
	sequenceStore, sequenceCleanup, err := mystore.New[orderSequence](c)
	if err != nil {
		orderCleanup()
		return nil, nil, err
	}

	return newRepository(orderStore, sequenceStore, nower, uuider), func() {
		sequenceCleanup()
		orderCleanup()
	}, nil
}

// NewInMemoryRepository is used for tests and local runs.
func NewInMemoryRepository(c context.Context, nower mytime.Nower, uuider myuuid.UUIDer) *Repository {
	orderStore, _, _ := mystore.NewInMemoryStore[Order](c)
	sequenceStore, _, _ := mystore.NewInMemoryStore[orderSequence](c)
	return newRepository(orderStore, sequenceStore, nower, uuider)
}

func newRepository(orderStore mystore.Store[Order], sequenceStore mystore.Store[orderSequence], nower mytime.Nower, uuider myuuid.UUIDer) *Repository {
	return &Repository{
		orderStore:    orderStore,
		sequenceStore: sequenceStore,
		nower:         nower,
		uuider:        uuider,
		logger:        mylog.New("orders"),
	}
}

func key(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}

// Create stores a new pending order, assigning its id and order number.
func (r *Repository) Create(c context.Context, order Order) (Order, error) {
	now := r.nower.Now()
	orderNumber := orderNumberPrefix + strings.ToUpper(strings.ReplaceAll(r.uuider.Create(), "-", "")[:8])

	err := r.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		orderID, err := r.nextID(c)
		if err != nil {
			return err
		}

		order.ID = orderID
		order.OrderNumber = orderNumber
		order.Status = StatusPending
		order.PaymentStatus = PaymentStatusPending
		order.InventoryCommitted = false
		order.CreatedAt = now
		order.LastModified = now

		err = r.orderStore.Put(c, key(order.ID), order)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing order %d: %s", order.ID, err))
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	r.logger.Log(c, order.OrderNumber, mylog.SeverityInfo, "Created order %d (%s)", order.ID, order.OrderNumber)

	return order, nil
}

func (r *Repository) nextID(c context.Context) (int64, error) {
	next := int64(0)
	err := r.sequenceStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		seq, _, err := r.sequenceStore.Get(c, sequenceName)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching order sequence: %s", err))
		}
		seq.Name = sequenceName
		seq.Last++
		next = seq.Last

		err = r.sequenceStore.Put(c, sequenceName, seq)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing order sequence: %s", err))
		}
		return nil
	})
	return next, err
}

func (r *Repository) Get(c context.Context, orderID int64) (Order, bool, error) {
	order, found, err := r.orderStore.Get(c, key(orderID))
	if err != nil {
		return Order{}, false, myerrors.NewInternalError(fmt.Errorf("error fetching order %d: %s", orderID, err))
	}
	return order, found, nil
}

func (r *Repository) AttachPaymentReference(c context.Context, orderID int64, reference string) (Order, error) {
	return r.update(c, orderID, func(order *Order) {
		order.PaymentReference = reference
	})
}

func (r *Repository) MarkFailed(c context.Context, orderID int64, reason string) (Order, error) {
	return r.update(c, orderID, func(order *Order) {
		if order.IsPaid() {
			return
		}
		order.Status = StatusFailed
		order.PaymentStatus = PaymentStatusFailed
		order.FailureReason = reason
	})
}

func (r *Repository) update(c context.Context, orderID int64, modify func(order *Order)) (Order, error) {
	now := r.nower.Now()
	var order Order
	err := r.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var found bool
		var err error
		order, found, err = r.Get(c, orderID)
		if err != nil {
			return err
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("Order not found."))
		}

		modify(&order)
		order.LastModified = now

		err = r.orderStore.Put(c, key(orderID), order)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing order %d: %s", orderID, err))
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// MarkPaidOnce flips an order to paid and runs commit, both in one transaction.
// The order is re-read inside the transaction, so of two concurrent callers only
// one sees it unpaid and runs commit. changed is false when it was already paid.
func (r *Repository) MarkPaidOnce(c context.Context, orderID int64, reference string, paymentStatus PaymentStatus, commit CommitFunc) (order Order, changed bool, err error) {
	now := r.nower.Now()
	err = r.orderStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		changed = false

		var found bool
		order, found, err = r.Get(c, orderID)
		if err != nil {
			return err
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("Order not found."))
		}
		if order.PaymentReference != reference {
			return myerrors.NewConflictError(fmt.Errorf("Payment reference mismatch"))
		}

		if order.IsPaid() {
			if paymentStatus == PaymentStatusPaid && order.PaymentStatus == PaymentStatusProcessing {
				// settled after an earlier "processing" confirmation
				order.PaymentStatus = PaymentStatusPaid
				order.LastModified = now
				return r.put(c, order)
			}
			return nil
		}

		err = commit(c, order)
		if err != nil {
			return err
		}

		order.Status = StatusPaid
		order.PaymentStatus = paymentStatus
		order.InventoryCommitted = true
		order.FailureReason = ""
		order.LastModified = now
		changed = true

		return r.put(c, order)
	})
	if err != nil {
		return Order{}, false, err
	}

	if changed {
		r.logger.Log(c, order.OrderNumber, mylog.SeverityInfo, "Order %d paid (%s), inventory committed", order.ID, order.PaymentStatus)
	}

	return order, changed, nil
}

func (r *Repository) put(c context.Context, order Order) error {
	err := r.orderStore.Put(c, key(order.ID), order)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing order %d: %s", order.ID, err))
	}
	return nil
}
