package mystore

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"sync"
	"time"
)

type inMemoryTxKey struct{}

// inMemoryTxLock serializes in-memory transactions across all stores, like a single database would.
var inMemoryTxLock sync.Mutex

// inMemoryTx is shared by every in-memory store that takes part in it. A store
// snapshots its items when it joins, so a failing transaction restores all of them.
type inMemoryTx struct {
	rollbacks map[any]func()
}

func inMemoryTxFromContext(c context.Context) *inMemoryTx {
	tx, _ := c.Value(inMemoryTxKey{}).(*inMemoryTx)
	return tx
}

func (tx *inMemoryTx) rollback() {
	for _, restore := range tx.rollbacks {
		restore()
	}
}

type InMemoryStore[T any] struct {
	sync.Mutex
	Items map[string]T
}

func NewInMemoryStore[T any](c context.Context) (*InMemoryStore[T], func(), error) {
	return &InMemoryStore[T]{
		Items: make(map[string]T),
	}, func() {}, nil
}

func (s *InMemoryStore[T]) join(tx *inMemoryTx) {
	if _, joined := tx.rollbacks[s]; joined {
		return
	}

	s.Lock()
	snapshot := maps.Clone(s.Items)
	s.Unlock()
	if snapshot == nil {
		snapshot = map[string]T{}
	}

	tx.rollbacks[s] = func() {
		s.Lock()
		defer s.Unlock()
		s.Items = snapshot
	}
}

func (s *InMemoryStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if tx := inMemoryTxFromContext(c); tx != nil {
		s.join(tx)
		return f(c)
	}

	// Start transaction
	inMemoryTxLock.Lock()
	defer inMemoryTxLock.Unlock()

	tx := &inMemoryTx{rollbacks: map[any]func(){}}
	s.join(tx)

	err := f(context.WithValue(c, inMemoryTxKey{}, tx))
	if err != nil {
		tx.rollback()
		return err
	}

	return nil
}

func (s *InMemoryStore[T]) Put(c context.Context, uid string, value T) error {
	if tx := inMemoryTxFromContext(c); tx != nil {
		s.join(tx)
	}

	s.Lock()
	defer s.Unlock()

	s.Items[uid] = value

	return nil
}

func (s *InMemoryStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	s.Lock()
	defer s.Unlock()

	result, exists := s.Items[uid]

	return result, exists, nil
}

func (s *InMemoryStore[T]) List(c context.Context) ([]T, error) {
	s.Lock()
	defer s.Unlock()

	result := make([]T, 0, len(s.Items))
	for _, v := range s.Items {
		result = append(result, v)
	}

	return result, nil
}

// Query supports equality filters and ordering on exported fields.
func (s *InMemoryStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	result := []T{}
	for _, item := range all {
		match, err := matches(item, filters)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, item)
		}
	}

	if orderByField != "" {
		sort.SliceStable(result, func(i, j int) bool {
			return less(fieldValue(result[i], orderByField), fieldValue(result[j], orderByField))
		})
	}

	return result, nil
}

func matches(item any, filters []Filter) (bool, error) {
	for _, f := range filters {
		value := fieldValue(item, f.Field)
		if !value.IsValid() {
			return false, fmt.Errorf("unknown field %s", f.Field)
		}
		equal := reflect.DeepEqual(value.Interface(), f.Value)
		switch f.Compare {
		case "=":
			if !equal {
				return false, nil
			}
		case "!=":
			if equal {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported comparison %s", f.Compare)
		}
	}
	return true, nil
}

func fieldValue(item any, name string) reflect.Value {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return v.FieldByName(name)
}

func less(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	if ta, ok := a.Interface().(time.Time); ok {
		return ta.Before(b.Interface().(time.Time))
	}
	switch a.Kind() {
	case reflect.String:
		return a.String() < b.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	default:
		return false
	}
}
