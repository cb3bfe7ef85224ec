package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"marketwatcher/internal/memorystore"
)

var (
	ErrEmptyBatch = errors.New("empty tick batch")
	ErrBadMagic   = errors.New("not a tick artifact")
)

const (
	magic         = "MWTK"
	formatVersion = uint16(1)
	// RecordSize is the encoded size of one tick.
	RecordSize = 4 + 8 + 8 + 4*(8+8)
)

// wireRecord is the fixed little-endian layout of one tick. Field order
// matches the consumer notification: ask1, bid1, ask2, bid2.
type wireRecord struct {
	Seconds    int32
	LastPrice  float64
	Volume     int64
	AskPrice1  float64
	AskVolume1 int64
	BidPrice1  float64
	BidVolume1 int64
	AskPrice2  float64
	AskVolume2 int64
	BidPrice2  float64
	BidVolume2 int64
}

// EncodeTicks writes a header followed by one fixed-size record per tick.
//
//	magic[4] version:u16 idLen:u16 id[idLen] count:u32 record*count
func EncodeTicks(w io.Writer, instrumentID string, ticks []memorystore.Tick) error {
	if len(ticks) == 0 {
		return ErrEmptyBatch
	}
	if len(instrumentID) > int(^uint16(0)) {
		return fmt.Errorf("instrument id too long: %d bytes", len(instrumentID))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	hdr := []any{formatVersion, uint16(len(instrumentID))}
	for _, v := range hdr {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString(instrumentID); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(ticks))); err != nil {
		return err
	}
	for _, t := range ticks {
		if err := binary.Write(bw, binary.LittleEndian, toWire(t)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// MarshalTicks encodes ticks into a byte slice.
func MarshalTicks(instrumentID string, ticks []memorystore.Tick) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(16 + len(instrumentID) + len(ticks)*RecordSize)
	if err := EncodeTicks(&buf, instrumentID, ticks); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTicks reads an artifact written by EncodeTicks.
func DecodeTicks(r io.Reader) (string, []memorystore.Tick, error) {
	br := bufio.NewReader(r)

	var m [4]byte
	if _, err := io.ReadFull(br, m[:]); err != nil {
		return "", nil, fmt.Errorf("read magic: %w", err)
	}
	if string(m[:]) != magic {
		return "", nil, ErrBadMagic
	}

	var version, idLen uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return "", nil, fmt.Errorf("read version: %w", err)
	}
	if version != formatVersion {
		return "", nil, fmt.Errorf("unsupported artifact version %d", version)
	}
	if err := binary.Read(br, binary.LittleEndian, &idLen); err != nil {
		return "", nil, fmt.Errorf("read id length: %w", err)
	}
	id := make([]byte, idLen)
	if _, err := io.ReadFull(br, id); err != nil {
		return "", nil, fmt.Errorf("read id: %w", err)
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return "", nil, fmt.Errorf("read count: %w", err)
	}

	instrumentID := string(id)
	ticks := make([]memorystore.Tick, 0, min(count, 4096))
	for i := uint32(0); i < count; i++ {
		var rec wireRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return "", nil, fmt.Errorf("read record %d: %w", i, err)
		}
		ticks = append(ticks, fromWire(instrumentID, rec))
	}
	return instrumentID, ticks, nil
}

func toWire(t memorystore.Tick) wireRecord {
	return wireRecord{
		Seconds:    t.Seconds,
		LastPrice:  t.LastPrice,
		Volume:     t.Volume,
		AskPrice1:  t.Asks[0].Price,
		AskVolume1: t.Asks[0].Volume,
		BidPrice1:  t.Bids[0].Price,
		BidVolume1: t.Bids[0].Volume,
		AskPrice2:  t.Asks[1].Price,
		AskVolume2: t.Asks[1].Volume,
		BidPrice2:  t.Bids[1].Price,
		BidVolume2: t.Bids[1].Volume,
	}
}

func fromWire(instrumentID string, r wireRecord) memorystore.Tick {
	return memorystore.Tick{
		InstrumentID: instrumentID,
		Seconds:      r.Seconds,
		LastPrice:    r.LastPrice,
		Volume:       r.Volume,
		Asks: [2]memorystore.Level{
			{Price: r.AskPrice1, Volume: r.AskVolume1},
			{Price: r.AskPrice2, Volume: r.AskVolume2},
		},
		Bids: [2]memorystore.Level{
			{Price: r.BidPrice1, Volume: r.BidVolume1},
			{Price: r.BidPrice2, Volume: r.BidVolume2},
		},
	}
}
