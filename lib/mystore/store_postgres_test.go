package mystore

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postgresCounter struct {
	Last int64
}

// Runs against a real database only: TEST_DATABASE_URL=postgres://... go test ./lib/mystore
func TestPostgresConcurrentFirstCreate(t *testing.T) {
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	// given
	c := context.Background()
	store, cleanup, err := newPostgresStore[postgresCounter](c, databaseURL)
	require.NoError(t, err)
	defer cleanup()
	_, err = store.pool.Exec(c, `DELETE FROM documents WHERE kind = $1`, store.kind)
	require.NoError(t, err)

	// when
	const workers = 10
	values := make(chan int64, workers)
	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.RunInTransaction(c, func(c context.Context) error {
				counter, _, err := store.Get(c, "sequence")
				if err != nil {
					return err
				}
				counter.Last++
				values <- counter.Last
				return store.Put(c, "sequence", counter)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(values)

	// then
	seen := map[int64]bool{}
	for v := range values {
		assert.False(t, seen[v], "value %d handed out twice", v)
		seen[v] = true
	}
	counter, found, err := store.Get(c, "sequence")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(workers), counter.Last)
}
