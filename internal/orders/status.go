package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusRejected   Status = "REJECTED"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// StockEffect: apa yang terjadi pada stok saat sebuah edge dijalankan.
type StockEffect int

const (
	EffectNone StockEffect = iota
	// EffectReserve: cek & kurangi stok per line di dalam transaksi yang
	// sama. Reservasi terjadi tepat sekali, di edge PENDING->PROCESSING.
	EffectReserve
)

// Tabel transisi strict. Edge di luar tabel ditolak.
// REJECTED dari PROCESSING tidak mengembalikan stok.
var transitions = map[Status]map[Status]StockEffect{
	StatusPending: {
		StatusProcessing: EffectReserve,
		StatusRejected:   EffectNone,
	},
	StatusProcessing: {
		StatusCompleted: EffectNone,
		StatusRejected:  EffectNone,
	},
}

func TransitionEffect(from, to Status) (StockEffect, bool) {
	eff, ok := transitions[from][to]
	return eff, ok
}

func CanTransition(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}
