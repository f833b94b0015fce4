package storage

import (
	"errors"
	"sort"
)

// ErrTxnClosed is returned when a committed or discarded transaction is used.
var ErrTxnClosed = errors.New("storage: transaction closed")

// Txn buffers writes over a Database so a whole call either commits every
// mutation or none. Reads observe the transaction's own pending writes.
// A Txn is not safe for concurrent use; callers serialise access.
type Txn struct {
	base    Database
	pending map[string]*[]byte // nil entry marks a deletion
	closed  bool
}

// NewTxn opens a transaction over db.
func NewTxn(db Database) *Txn {
	return &Txn{base: db, pending: make(map[string]*[]byte)}
}

func (t *Txn) Get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, ErrTxnClosed
	}
	if v, ok := t.pending[string(key)]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return append([]byte(nil), (*v)...), nil
	}
	return t.base.Get(key)
}

func (t *Txn) Has(key []byte) (bool, error) {
	if t.closed {
		return false, ErrTxnClosed
	}
	if v, ok := t.pending[string(key)]; ok {
		return v != nil, nil
	}
	return t.base.Has(key)
}

func (t *Txn) Put(key []byte, value []byte) error {
	if t.closed {
		return ErrTxnClosed
	}
	v := append([]byte(nil), value...)
	t.pending[string(key)] = &v
	return nil
}

func (t *Txn) Delete(key []byte) error {
	if t.closed {
		return ErrTxnClosed
	}
	t.pending[string(key)] = nil
	return nil
}

// Dirty reports the number of keys touched by the transaction.
func (t *Txn) Dirty() int { return len(t.pending) }

// Commit writes all pending mutations as a single batch and closes the
// transaction.
func (t *Txn) Commit() error {
	if t.closed {
		return ErrTxnClosed
	}
	keys := make([]string, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	// Deterministic batch order keeps leveldb journals reproducible.
	sort.Strings(keys)
	batch := new(Batch)
	for _, k := range keys {
		if v := t.pending[k]; v != nil {
			batch.Put([]byte(k), *v)
		} else {
			batch.Delete([]byte(k))
		}
	}
	if err := t.base.Write(batch); err != nil {
		return err
	}
	t.closed = true
	t.pending = nil
	return nil
}

// Discard drops all pending mutations and closes the transaction.
func (t *Txn) Discard() {
	t.closed = true
	t.pending = nil
}
