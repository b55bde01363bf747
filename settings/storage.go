package settings

import "errors"

// errBucketNotFound reports a missing bucket that Open should have created.
var errBucketNotFound = errors.New("bucket not found")

// storage is a key-value backend (Bolt or in-memory).
type storage interface {
	// BeginTx starts a new transaction. Only one writable transaction runs at
	// a time; BeginTx blocks until the previous one ends.
	BeginTx(writable bool) (storageTx, error)
	Close() error
}

type storageTx interface {
	Writable() bool

	// Bucket returns nil if the bucket doesn't exist.
	Bucket(name string) storageBucket

	// CreateBucket creates a bucket if it doesn't exist.
	CreateBucket(name string) (storageBucket, error)

	Commit() error

	// Rollback aborts the transaction. It is safe to call after Commit.
	Rollback() error
}

// storageBucket is a sorted key-value collection.
type storageBucket interface {
	// Get returns nil if the key is absent. The returned slice is only valid
	// for the lifetime of the transaction.
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error
	Cursor() storageCursor
	KeyCount() int
}

// storageCursor iterates over a bucket in key order.
type storageCursor interface {
	First() (key, value []byte)
	Next() (key, value []byte)
}
