package store

import (
	"bytes"

	"etomic.dev/swap/swap"

	bolt "go.etcd.io/bbolt"
)

func (d *DB) LoadAccounts() (map[swap.Identity]Account, error) {
	out := make(map[swap.Identity]Account)
	err := d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
			id, err := identityKey(k)
			if err != nil {
				return err
			}
			a, err := decodeAccount(v)
			if err != nil {
				return err
			}
			out[id] = a
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTokenBalances returns every nonzero token balance held by holder.
func (d *DB) LoadTokenBalances(holder swap.Identity) (map[swap.Identity]uint64, error) {
	out := make(map[swap.Identity]uint64)
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTokens).Cursor()
		prefix := holder[:]
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			_, asset, err := decodeTokenKey(k)
			if err != nil {
				return err
			}
			n, err := decodeU64(v)
			if err != nil {
				return err
			}
			if n != 0 {
				out[asset] = n
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadJournal returns applied entries with seq > after, oldest first.
func (d *DB) LoadJournal(after uint64) ([]*JournalEntry, error) {
	var out []*JournalEntry
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketJournal).Cursor()
		for k, v := c.Seek(journalKey(after + 1)); k != nil; k, v = c.Next() {
			e, err := decodeJournalEntry(seqFromKey(k), v)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
