package mypublisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/dobmilano/lib/myevents"
	"github.com/MarcGrol/dobmilano/lib/mypubsub"
	"github.com/MarcGrol/dobmilano/lib/myqueue"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/lib/mytime"
)

type orderCreated struct {
	OrderID int64
}

func (e orderCreated) GetEventTypeName() string { return "order.created" }
func (e orderCreated) GetAggregateName() string { return "order-1" }

func setup(t *testing.T, ctrl *gomock.Controller) (*TransactionalPublisher, *mystore.InMemoryStore[myevents.EventEnvelope], *mypubsub.Fake, *myqueue.Fake) {
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	outbox, _, err := mystore.NewInMemoryStore[myevents.EventEnvelope](context.TODO())
	require.NoError(t, err)
	pubsub := mypubsub.NewFake()
	queue := myqueue.NewFake()

	return NewWithStore(outbox, pubsub, queue, nower), outbox, pubsub, queue
}

func TestPublish(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := context.TODO()

	t.Run("Stores envelope and enqueues trigger", func(t *testing.T) {
		// given
		sut, outbox, pubsub, queue := setup(t, ctrl)

		// when
		err := sut.Publish(c, "orders", orderCreated{OrderID: 1})

		// then
		require.NoError(t, err)
		require.Len(t, outbox.Items, 1)
		require.Len(t, queue.Tasks, 1)
		assert.Empty(t, pubsub.Published)
		for uid, envelope := range outbox.Items {
			assert.Equal(t, "/pubsub/orders/"+uid, queue.Tasks[0].WebhookURLPath)
			assert.Equal(t, "order.created", envelope.EventTypeName)
			assert.Equal(t, "order-1", envelope.AggregateUID)
			assert.Equal(t, `{"OrderID":1}`, envelope.EventPayload)
			assert.Equal(t, mytime.ExampleTime, envelope.CreatedAt)
			assert.False(t, envelope.Published)
		}
	})

	t.Run("Same event twice yields one envelope", func(t *testing.T) {
		// given
		sut, outbox, _, queue := setup(t, ctrl)

		// when
		require.NoError(t, sut.Publish(c, "orders", orderCreated{OrderID: 1}))
		require.NoError(t, sut.Publish(c, "orders", orderCreated{OrderID: 1}))

		// then
		assert.Len(t, outbox.Items, 1)
		assert.Len(t, queue.Tasks, 1)
	})
}

func TestFlush(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := context.TODO()

	t.Run("Publishes pending envelopes once", func(t *testing.T) {
		// given
		sut, outbox, pubsub, _ := setup(t, ctrl)
		require.NoError(t, sut.Publish(c, "orders", orderCreated{OrderID: 1}))
		require.NoError(t, sut.Publish(c, "orders", orderCreated{OrderID: 2}))

		// when
		count, err := sut.Flush(c)
		require.NoError(t, err)
		again, err := sut.Flush(c)
		require.NoError(t, err)

		// then
		assert.Equal(t, 2, count)
		assert.Equal(t, 0, again)
		assert.Len(t, pubsub.Published["orders"], 2)
		for _, envelope := range outbox.Items {
			assert.True(t, envelope.Published)
		}

		published := myevents.EventEnvelope{}
		require.NoError(t, json.Unmarshal([]byte(pubsub.Published["orders"][0]), &published))
		assert.Equal(t, "order.created", published.EventTypeName)
	})

	t.Run("Trigger endpoint", func(t *testing.T) {
		// given
		sut, _, pubsub, queue := setup(t, ctrl)
		require.NoError(t, sut.Publish(c, "orders", orderCreated{OrderID: 3}))
		router := mux.NewRouter()
		sut.RegisterEndpoints(c, router)

		// when
		request, err := http.NewRequest(http.MethodPut, queue.Tasks[0].WebhookURLPath, nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		assert.JSONEq(t, `{"ok":true,"message":"Published 1 events"}`, response.Body.String())
		assert.Len(t, pubsub.Published["orders"], 1)
	})
}
