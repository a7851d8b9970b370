package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
)

// Partition key = order code, supaya semua event 1 order maintain urutan.
func PartitionKey(orderCode string) []byte { return []byte(orderCode) }
