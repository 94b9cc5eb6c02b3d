package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/dobmilano/lib/myerrors"
	"github.com/MarcGrol/dobmilano/lib/mypublisher"
	"github.com/MarcGrol/dobmilano/lib/mystore"
	"github.com/MarcGrol/dobmilano/lib/mytime"
)

func setupStore(t *testing.T, ctrl *gomock.Controller) (context.Context, *Store, *mypublisher.MockPublisher) {
	c := context.TODO()
	carts, _, err := mystore.NewInMemoryStore[Cart](c)
	require.NoError(t, err)
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	publisher := mypublisher.NewMockPublisher(ctrl)

	return c, NewStore(carts, publisher, nower), publisher
}

func TestStore(t *testing.T) {
	t.Run("Add merges quantity by id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, sut, publisher := setupStore(t, ctrl)
		publisher.EXPECT().Publish(gomock.Any(), TopicName, CartUpdated{CartUID: "abc", ItemCount: 1, UpdatedAt: mytime.ExampleTime}).Return(nil)
		publisher.EXPECT().Publish(gomock.Any(), TopicName, CartUpdated{CartUID: "abc", ItemCount: 3, UpdatedAt: mytime.ExampleTime}).Return(nil)

		_, err := sut.AddItem(c, "abc", CartItem{ID: "10", Title: "Siero viso", Quantity: 1})
		require.NoError(t, err)
		items, err := sut.AddItem(c, "abc", CartItem{ID: "10", Title: "Siero viso", Quantity: 2})
		require.NoError(t, err)

		assert.Equal(t, []CartItem{{ID: "10", Title: "Siero viso", Quantity: 3}}, items)
	})

	t.Run("Update, remove and clear", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, sut, publisher := setupStore(t, ctrl)
		publisher.EXPECT().Publish(gomock.Any(), TopicName, gomock.Any()).Return(nil).AnyTimes()

		_, err := sut.Write(c, "abc", []CartItem{{ID: "10", Quantity: 1}, {ID: "1:service:default", Quantity: 1}})
		require.NoError(t, err)

		items, err := sut.UpdateQuantity(c, "abc", "10", 4)
		require.NoError(t, err)
		assert.Equal(t, 4, items[0].Quantity)

		items, err = sut.UpdateQuantity(c, "abc", "10", 0)
		require.NoError(t, err)
		assert.Equal(t, []CartItem{{ID: "1:service:default", Quantity: 1}}, items)

		_, err = sut.UpdateQuantity(c, "abc", "missing", 2)
		assert.Equal(t, 404, myerrors.GetHTTPStatus(err))

		items, err = sut.RemoveItem(c, "abc", "1:service:default")
		require.NoError(t, err)
		assert.Empty(t, items)

		require.NoError(t, sut.Clear(c, "abc"))
		items, err = sut.Read(c, "abc")
		require.NoError(t, err)
		assert.Equal(t, []CartItem{}, items)
	})

	t.Run("Invalid input", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, sut, _ := setupStore(t, ctrl)

		_, err := sut.Read(c, "../etc")
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
		_, err = sut.AddItem(c, "abc", CartItem{ID: "10", Quantity: 0})
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
		_, err = sut.UpdateQuantity(c, "abc", "10", -1)
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
	})

	t.Run("Failed publish rolls back", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, sut, publisher := setupStore(t, ctrl)
		publisher.EXPECT().Publish(gomock.Any(), TopicName, gomock.Any()).Return(assert.AnError)

		_, err := sut.AddItem(c, "abc", CartItem{ID: "10", Quantity: 1})
		assert.Equal(t, 500, myerrors.GetHTTPStatus(err))

		items, err := sut.Read(c, "abc")
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestWatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	c, sut, publisher := setupStore(t, ctrl)
	publisher.EXPECT().Publish(gomock.Any(), TopicName, gomock.Any()).Return(nil).AnyTimes()

	updates, stop := sut.Watch("abc")

	_, err := sut.AddItem(c, "abc", CartItem{ID: "10", Quantity: 1})
	require.NoError(t, err)
	_, err = sut.AddItem(c, "abc", CartItem{ID: "11", Quantity: 1})
	require.NoError(t, err)

	select {
	case items := <-updates:
		assert.Len(t, items, 2, "slow reader gets the latest snapshot")
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}

	_, err = sut.AddItem(c, "other", CartItem{ID: "10", Quantity: 1})
	require.NoError(t, err)
	select {
	case <-updates:
		t.Fatal("update of another cart received")
	default:
	}

	stop()
	assert.Empty(t, sut.watchers)
}
