package postgres

import (
	"context"
	"fmt"

	"marketwatcher/internal/memorystore"
	"marketwatcher/pkg/storage"

	"gorm.io/gorm"
)

// batchSize bounds a single INSERT statement.
const batchSize = 500

// Prepare is a no-op: the schema is migrated once when the client starts.
func (p *PostgresClient) Prepare(context.Context, string) error {
	return nil
}

// Write stores ticks as one artifact. The whole batch is rejected when the
// artifact key was already written.
func (p *PostgresClient) Write(ctx context.Context, instrumentID, key string, ticks []memorystore.Tick) error {
	if len(ticks) == 0 {
		return storage.ErrEmptyBatch
	}
	records := ToTickRecords(instrumentID, key, ticks)

	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&TickRecord{}).Where("artifact_key = ?", key).Count(&existing).Error; err != nil {
			return fmt.Errorf("check artifact %s: %w", key, err)
		}
		if existing > 0 {
			return fmt.Errorf("artifact %s already exists", key)
		}
		if err := tx.CreateInBatches(records, batchSize).Error; err != nil {
			return fmt.Errorf("insert artifact %s: %w", key, err)
		}
		return nil
	})
}

// GetArtifact returns the ticks of one artifact in buffer order.
func (p *PostgresClient) GetArtifact(ctx context.Context, key string) ([]memorystore.Tick, error) {
	var records []TickRecord
	err := p.DB.WithContext(ctx).
		Where("artifact_key = ?", key).
		Order("seq").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return FromTickRecords(records), nil
}

// ToTickRecords converts a flushed batch into rows for DB insertion.
func ToTickRecords(instrumentID, key string, ticks []memorystore.Tick) []TickRecord {
	records := make([]TickRecord, len(ticks))
	for i, t := range ticks {
		records[i] = TickRecord{
			ArtifactKey: key,
			Seq:         i,
			Instrument:  instrumentID,
			Seconds:     t.Seconds,
			LastPrice:   t.LastPrice,
			Volume:      t.Volume,
			Bid1Price:   t.Bids[0].Price,
			Bid1Volume:  t.Bids[0].Volume,
			Ask1Price:   t.Asks[0].Price,
			Ask1Volume:  t.Asks[0].Volume,
			Bid2Price:   t.Bids[1].Price,
			Bid2Volume:  t.Bids[1].Volume,
			Ask2Price:   t.Asks[1].Price,
			Ask2Volume:  t.Asks[1].Volume,
		}
	}
	return records
}

func FromTickRecords(records []TickRecord) []memorystore.Tick {
	ticks := make([]memorystore.Tick, len(records))
	for i, r := range records {
		ticks[i] = memorystore.Tick{
			InstrumentID: r.Instrument,
			Seconds:      r.Seconds,
			LastPrice:    r.LastPrice,
			Volume:       r.Volume,
			Bids: [2]memorystore.Level{
				{Price: r.Bid1Price, Volume: r.Bid1Volume},
				{Price: r.Bid2Price, Volume: r.Bid2Volume},
			},
			Asks: [2]memorystore.Level{
				{Price: r.Ask1Price, Volume: r.Ask1Volume},
				{Price: r.Ask2Price, Volume: r.Ask2Volume},
			},
		}
	}
	return ticks
}
