package cart

import "time"

const (
	TopicName       = "cart"
	cartUpdatedName = TopicName + ".updated"
)

type CartUpdated struct {
	CartUID   string
	ItemCount int
	UpdatedAt time.Time
}

func (e CartUpdated) GetEventTypeName() string {
	return cartUpdatedName
}

func (e CartUpdated) GetAggregateName() string {
	return e.CartUID
}
