package checkoutevents

const (
	TopicName        = "orders"
	orderCreatedName = "order.created"
	orderPaidName    = "order.paid"
)

type OrderCreated struct {
	OrderID     int64
	OrderNumber string
	Locale      string
	TotalCents  int64
	Currency    string
	Email       string
	ItemCount   int
}

func (e OrderCreated) GetEventTypeName() string {
	return orderCreatedName
}

func (e OrderCreated) GetAggregateName() string {
	return e.OrderNumber
}

type OrderPaid struct {
	OrderID          int64
	OrderNumber      string
	PaymentReference string
	PaymentStatus    string
	TotalCents       int64
	Currency         string
}

func (e OrderPaid) GetEventTypeName() string {
	return orderPaidName
}

func (e OrderPaid) GetAggregateName() string {
	return e.OrderNumber
}
