package memorystore

// Level is one price level of the order book.
type Level struct {
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

// RawTick is a market update as delivered by the feed, before validation.
// UpdateTime is the exchange wall-clock time "HH:MM:SS".
type RawTick struct {
	InstrumentID string   `json:"instrument_id"`
	UpdateTime   string   `json:"update_time"`
	LastPrice    float64  `json:"last_price"`
	Volume       int64    `json:"volume"`
	Bids         [2]Level `json:"bids"` // best first
	Asks         [2]Level `json:"asks"` // best first
}

// Tick is an accepted market update. Seconds is the normalized time-of-day
// (seconds since midnight, end-of-session ticks moved back one second).
type Tick struct {
	InstrumentID string   `json:"instrument_id"`
	Seconds      int32    `json:"seconds"`
	LastPrice    float64  `json:"last_price"`
	Volume       int64    `json:"volume"`
	Bids         [2]Level `json:"bids"`
	Asks         [2]Level `json:"asks"`
}

// Accept converts a raw update into a Tick stamped with normalized seconds.
func (r RawTick) Accept(seconds int) Tick {
	return Tick{
		InstrumentID: r.InstrumentID,
		Seconds:      int32(seconds),
		LastPrice:    r.LastPrice,
		Volume:       r.Volume,
		Bids:         r.Bids,
		Asks:         r.Asks,
	}
}
