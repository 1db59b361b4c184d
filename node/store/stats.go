package store

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var keyApplied = []byte("applied")

// Stats summarizes applied operations. It is written in the same
// transaction as the effect it counts.
type Stats struct {
	AppliedCount     uint64 `json:"applied_count"`
	LastAppliedOp    string `json:"last_applied_op,omitempty"`
	LastAppliedVault string `json:"last_applied_data_vault,omitempty"`
	LastAppliedTime  uint64 `json:"last_applied_time,omitempty"`
}

func readStats(tx *bolt.Tx) (Stats, error) {
	var s Stats
	v := tx.Bucket(bucketMeta).Get(keyApplied)
	if v == nil {
		return s, nil
	}
	if err := json.Unmarshal(v, &s); err != nil {
		return s, fmt.Errorf("stats json: %w", err)
	}
	return s, nil
}

func writeStats(tx *bolt.Tx, s Stats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("stats json: %w", err)
	}
	return tx.Bucket(bucketMeta).Put(keyApplied, b)
}

func (d *DB) Stats() (Stats, error) {
	var s Stats
	err := d.db.View(func(tx *bolt.Tx) error {
		var err error
		s, err = readStats(tx)
		return err
	})
	return s, err
}
