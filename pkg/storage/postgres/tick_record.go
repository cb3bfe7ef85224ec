package postgres

import "time"

// TickRecord is one persisted tick. Rows of a single flush share ArtifactKey
// and keep their buffer order in Seq.
type TickRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	ArtifactKey string `gorm:"type:text;not null;index:idx_artifact_seq,unique"`
	Seq         int    `gorm:"not null;index:idx_artifact_seq,unique"`

	Instrument string `gorm:"type:varchar(32);not null;index:idx_tick_instrument"`
	Seconds    int32  `gorm:"not null"`

	LastPrice float64 `gorm:"type:numeric;not null"`
	Volume    int64   `gorm:"not null"`

	Bid1Price  float64 `gorm:"type:numeric;not null"`
	Bid1Volume int64   `gorm:"not null"`
	Ask1Price  float64 `gorm:"type:numeric;not null"`
	Ask1Volume int64   `gorm:"not null"`
	Bid2Price  float64 `gorm:"type:numeric;not null"`
	Bid2Volume int64   `gorm:"not null"`
	Ask2Price  float64 `gorm:"type:numeric;not null"`
	Ask2Volume int64   `gorm:"not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TickRecord) TableName() string {
	return "tick_record"
}
