package store

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/scriptyard/internal/models"
	bolt "go.etcd.io/bbolt"
)

var bucketCollections = []byte("collections")

// BoltPersister stores the collection as a JSON value in a BoltDB file.
type BoltPersister struct {
	db  *bolt.DB
	key []byte
}

// NewBoltPersister opens or creates a BoltDB database at path and stores the
// collection under key.
func NewBoltPersister(path, key string) (*BoltPersister, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltPersister{db: db, key: []byte(key)}, nil
}

func (p *BoltPersister) Load(ctx context.Context) ([]models.Script, error) {
	var data []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCollections)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCollections)
		}
		v := b.Get(p.key)
		if v == nil {
			return fmt.Errorf("bolt key %s: %w", p.key, ErrNotFound)
		}
		// v is only valid for the life of the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (p *BoltPersister) Save(ctx context.Context, scripts []models.Script) error {
	data, err := encode(scripts)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCollections)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCollections)
		}
		return b.Put(p.key, data)
	})
}

func (p *BoltPersister) Close() error {
	return p.db.Close()
}
