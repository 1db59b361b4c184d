package store

import (
	"encoding/binary"
	"fmt"

	"etomic.dev/swap/swap"
)

// JournalEntry records one applied effect. Entries are keyed by a
// monotonically increasing sequence number.
type JournalEntry struct {
	Seq        uint64
	Time       uint64
	Tag        uint8
	Caller     swap.Identity
	DataVault  swap.Identity
	FundsVault swap.Identity
	State      swap.PaymentState
	Movements  []swap.Movement
}

const movementSize = 32 + 32 + 32 + 8

func journalKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

func encodeJournalEntry(e JournalEntry) ([]byte, error) {
	if len(e.Movements) > 0xffff {
		return nil, fmt.Errorf("journal: too many movements")
	}
	// Layout:
	// time u64le | tag u8 | caller 32 | data_vault 32 | funds_vault 32 | state u8
	// movement_count u16le | (from 32 | to 32 | asset 32 | amount u64le) * count
	out := make([]byte, 0, 8+1+96+1+2+len(e.Movements)*movementSize)
	out = binary.LittleEndian.AppendUint64(out, e.Time)
	out = append(out, e.Tag)
	out = append(out, e.Caller[:]...)
	out = append(out, e.DataVault[:]...)
	out = append(out, e.FundsVault[:]...)
	out = append(out, byte(e.State))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(e.Movements))) // #nosec G115 -- checked above.
	for _, m := range e.Movements {
		out = append(out, m.From[:]...)
		out = append(out, m.To[:]...)
		out = append(out, m.Asset[:]...)
		out = binary.LittleEndian.AppendUint64(out, m.Amount)
	}
	return out, nil
}

func decodeJournalEntry(seq uint64, b []byte) (*JournalEntry, error) {
	const head = 8 + 1 + 96 + 1 + 2
	if len(b) < head {
		return nil, fmt.Errorf("journal: truncated")
	}
	e := &JournalEntry{Seq: seq}
	e.Time = binary.LittleEndian.Uint64(b[0:8])
	e.Tag = b[8]
	copy(e.Caller[:], b[9:41])
	copy(e.DataVault[:], b[41:73])
	copy(e.FundsVault[:], b[73:105])
	e.State = swap.PaymentState(b[105])
	n := int(binary.LittleEndian.Uint16(b[106:108]))
	if head+n*movementSize != len(b) {
		return nil, fmt.Errorf("journal: bad movement_count")
	}
	off := head
	for i := 0; i < n; i++ {
		var m swap.Movement
		copy(m.From[:], b[off:off+32])
		copy(m.To[:], b[off+32:off+64])
		copy(m.Asset[:], b[off+64:off+96])
		m.Amount = binary.LittleEndian.Uint64(b[off+96 : off+104])
		e.Movements = append(e.Movements, m)
		off += movementSize
	}
	return e, nil
}
