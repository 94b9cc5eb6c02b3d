package cart

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mylog"
	"github.com/MarcGrol/dobmilano/lib/mypublisher"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/lib/mytime"
)

var cartUIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Store struct {
	carts     mystore.Store[Cart]
	publisher mypublisher.Publisher
	nower     mytime.Nower
	logger    mylog.Logger

	sync.Mutex
	watchers map[string]map[chan []CartItem]struct{}
}

func NewStore(carts mystore.Store[Cart], publisher mypublisher.Publisher, nower mytime.Nower) *Store {
	return &Store{
		carts:     carts,
		publisher: publisher,
		nower:     nower,
		logger:    mylog.New("cart"),
		watchers:  map[string]map[chan []CartItem]struct{}{},
	}
}

func validateUID(cartUID string) error {
	if !cartUIDPattern.MatchString(cartUID) {
		return myerrors.NewInvalidInputError(fmt.Errorf("Invalid cart id."))
	}
	return nil
}

func (s *Store) Read(c context.Context, cartUID string) ([]CartItem, error) {
	err := validateUID(cartUID)
	if err != nil {
		return nil, err
	}
	cart, found, err := s.carts.Get(c, cartUID)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching cart %s: %s", cartUID, err))
	}
	if !found || cart.Items == nil {
		return []CartItem{}, nil
	}
	return cart.Items, nil
}

// Write replaces the whole snapshot.
func (s *Store) Write(c context.Context, cartUID string, items []CartItem) ([]CartItem, error) {
	return s.mutate(c, cartUID, func(current []CartItem) ([]CartItem, error) {
		return items, nil
	})
}

// AddItem adds item, or raises the quantity of the line with the same id.
func (s *Store) AddItem(c context.Context, cartUID string, item CartItem) ([]CartItem, error) {
	if item.ID == "" || item.Quantity < 1 {
		return nil, myerrors.NewInvalidInputError(fmt.Errorf("Invalid cart item."))
	}
	return s.mutate(c, cartUID, func(current []CartItem) ([]CartItem, error) {
		for i := range current {
			if current[i].ID == item.ID {
				current[i].Quantity += item.Quantity
				return current, nil
			}
		}
		return append(current, item), nil
	})
}

// UpdateQuantity sets the quantity of a line; zero removes it.
func (s *Store) UpdateQuantity(c context.Context, cartUID string, itemID string, quantity int) ([]CartItem, error) {
	if quantity < 0 {
		return nil, myerrors.NewInvalidInputError(fmt.Errorf("Invalid quantity."))
	}
	if quantity == 0 {
		return s.RemoveItem(c, cartUID, itemID)
	}
	return s.mutate(c, cartUID, func(current []CartItem) ([]CartItem, error) {
		for i := range current {
			if current[i].ID == itemID {
				current[i].Quantity = quantity
				return current, nil
			}
		}
		return nil, myerrors.NewNotFoundError(fmt.Errorf("Item not in cart."))
	})
}

func (s *Store) RemoveItem(c context.Context, cartUID string, itemID string) ([]CartItem, error) {
	return s.mutate(c, cartUID, func(current []CartItem) ([]CartItem, error) {
		result := []CartItem{}
		for _, item := range current {
			if item.ID != itemID {
				result = append(result, item)
			}
		}
		return result, nil
	})
}

func (s *Store) Clear(c context.Context, cartUID string) error {
	_, err := s.mutate(c, cartUID, func(current []CartItem) ([]CartItem, error) {
		return []CartItem{}, nil
	})
	return err
}

func (s *Store) mutate(c context.Context, cartUID string, modify func(current []CartItem) ([]CartItem, error)) ([]CartItem, error) {
	err := validateUID(cartUID)
	if err != nil {
		return nil, err
	}

	now := s.nower.Now()
	var cart Cart
	err = s.carts.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		existing, _, err := s.carts.Get(c, cartUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching cart %s: %s", cartUID, err))
		}

		current := make([]CartItem, len(existing.Items))
		copy(current, existing.Items)

		items, err := modify(current)
		if err != nil {
			return err
		}

		cart = Cart{UID: cartUID, Items: items, UpdatedAt: now}
		err = s.carts.Put(c, cartUID, cart)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing cart %s: %s", cartUID, err))
		}

		err = s.publisher.Publish(c, TopicName, CartUpdated{
			CartUID:   cartUID,
			ItemCount: cart.ItemCount(),
			UpdatedAt: now,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Log(c, cartUID, mylog.SeverityDebug, "Cart %s now holds %d items", cartUID, cart.ItemCount())
	s.notify(cartUID, cart.Items)

	return cart.Items, nil
}

// Watch returns a channel that receives every new snapshot of the cart.
// A slow reader only gets the latest snapshot. Call stop when done.
func (s *Store) Watch(cartUID string) (updates <-chan []CartItem, stop func()) {
	ch := make(chan []CartItem, 1)

	s.Lock()
	if s.watchers[cartUID] == nil {
		s.watchers[cartUID] = map[chan []CartItem]struct{}{}
	}
	s.watchers[cartUID][ch] = struct{}{}
	s.Unlock()

	return ch, func() {
		s.Lock()
		defer s.Unlock()
		delete(s.watchers[cartUID], ch)
		if len(s.watchers[cartUID]) == 0 {
			delete(s.watchers, cartUID)
		}
	}
}

func (s *Store) notify(cartUID string, items []CartItem) {
	s.Lock()
	defer s.Unlock()

	for ch := range s.watchers[cartUID] {
		select {
		case <-ch:
		default:
		}
		ch <- items
	}
}
