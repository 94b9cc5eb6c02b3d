package mystore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type Person struct {
	UID     string
	Name    string
	Age     int
	Created time.Time
}

var (
	person = Person{UID: "123", Name: "Marc", Age: 42}
)

func TestStore(t *testing.T) {
	c := context.TODO()
	ps, cleanup, err := NewInMemoryStore[Person](c)
	assert.NoError(t, err)
	defer cleanup()

	t.Run("Get not found", func(t *testing.T) {
		_, found, err := ps.Get(c, person.UID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Put", func(t *testing.T) {
		err = ps.Put(c, person.UID, person)
		assert.NoError(t, err)
	})

	t.Run("Get found", func(t *testing.T) {
		p, found, err := ps.Get(c, person.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, Person{UID: "123", Name: "Marc", Age: 42}, p)
	})

	t.Run("List", func(t *testing.T) {
		all, err := ps.List(c)
		assert.NoError(t, err)
		assert.Equal(t, []Person{person}, all)
	})
}

func TestQuery(t *testing.T) {
	c := context.TODO()
	ps, _, _ := NewInMemoryStore[Person](c)
	_ = ps.Put(c, "1", Person{UID: "1", Name: "Eva", Age: 30, Created: time.Unix(300, 0)})
	_ = ps.Put(c, "2", Person{UID: "2", Name: "Pien", Age: 42, Created: time.Unix(100, 0)})
	_ = ps.Put(c, "3", Person{UID: "3", Name: "Marc", Age: 42, Created: time.Unix(200, 0)})

	t.Run("Equality filter ordered by time", func(t *testing.T) {
		found, err := ps.Query(c, []Filter{{Field: "Age", Compare: "=", Value: 42}}, "Created")
		assert.NoError(t, err)
		assert.Len(t, found, 2)
		assert.Equal(t, "2", found[0].UID)
		assert.Equal(t, "3", found[1].UID)
	})

	t.Run("Inequality filter", func(t *testing.T) {
		found, err := ps.Query(c, []Filter{{Field: "Age", Compare: "!=", Value: 42}}, "")
		assert.NoError(t, err)
		assert.Len(t, found, 1)
		assert.Equal(t, "Eva", found[0].Name)
	})

	t.Run("Unknown field", func(t *testing.T) {
		_, err := ps.Query(c, []Filter{{Field: "Shoe", Compare: "=", Value: 42}}, "")
		assert.Error(t, err)
	})
}

func TestTransaction(t *testing.T) {
	c := context.TODO()

	t.Run("Rollback on error", func(t *testing.T) {
		ps, _, _ := NewInMemoryStore[Person](c)
		_ = ps.Put(c, person.UID, person)

		err := ps.RunInTransaction(c, func(c context.Context) error {
			_ = ps.Put(c, person.UID, Person{UID: "123", Name: "Changed"})
			_ = ps.Put(c, "456", Person{UID: "456"})
			return fmt.Errorf("abort")
		})
		assert.Error(t, err)

		p, _, _ := ps.Get(c, person.UID)
		assert.Equal(t, "Marc", p.Name)
		_, found, _ := ps.Get(c, "456")
		assert.False(t, found)
	})

	t.Run("Nested stores lock independently", func(t *testing.T) {
		people, _, _ := NewInMemoryStore[Person](c)
		counters, _, _ := NewInMemoryStore[int](c)

		err := people.RunInTransaction(c, func(c context.Context) error {
			return counters.RunInTransaction(c, func(c context.Context) error {
				_ = people.Put(c, "1", Person{UID: "1"})
				return counters.Put(c, "1", 1)
			})
		})
		assert.NoError(t, err)

		_, found, _ := people.Get(c, "1")
		assert.True(t, found)
		n, _, _ := counters.Get(c, "1")
		assert.Equal(t, 1, n)
	})

	t.Run("Rollback spans stores", func(t *testing.T) {
		people, _, _ := NewInMemoryStore[Person](c)
		counters, _, _ := NewInMemoryStore[int](c)
		_ = counters.Put(c, "stock", 3)

		err := people.RunInTransaction(c, func(c context.Context) error {
			_ = people.Put(c, "1", Person{UID: "1"})
			err := counters.RunInTransaction(c, func(c context.Context) error {
				return counters.Put(c, "stock", 1)
			})
			if err != nil {
				return err
			}
			return fmt.Errorf("abort after nested commit")
		})
		assert.Error(t, err)

		_, found, _ := people.Get(c, "1")
		assert.False(t, found)
		n, _, _ := counters.Get(c, "stock")
		assert.Equal(t, 3, n)
	})

	t.Run("Plain put inside foreign transaction is rolled back", func(t *testing.T) {
		people, _, _ := NewInMemoryStore[Person](c)
		counters, _, _ := NewInMemoryStore[int](c)

		err := people.RunInTransaction(c, func(c context.Context) error {
			_ = counters.Put(c, "n", 7)
			return fmt.Errorf("abort")
		})
		assert.Error(t, err)

		_, found, _ := counters.Get(c, "n")
		assert.False(t, found)
	})

	t.Run("Read-modify-write is serialized", func(t *testing.T) {
		counters, _, _ := NewInMemoryStore[int](c)

		wg := sync.WaitGroup{}
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = counters.RunInTransaction(c, func(c context.Context) error {
					n, _, _ := counters.Get(c, "n")
					return counters.Put(c, "n", n+1)
				})
			}()
		}
		wg.Wait()

		n, _, _ := counters.Get(c, "n")
		assert.Equal(t, 50, n)
	})
}
