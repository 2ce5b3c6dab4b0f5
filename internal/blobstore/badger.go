package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/dmitrijs2005/filedrop/internal/common"
)

// metaSuffix namespaces the metadata entry next to its object. Object keys
// never contain '#', so the two key spaces cannot collide.
const metaSuffix = "#meta"

// BadgerStore keeps blobs in an embedded Badger database. Badger enforces
// per-entry TTLs natively, which is exactly what short-lived chunk blobs
// and one-time tokens need.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if opts.TTL > 0 {
			entry = entry.WithTTL(opts.TTL)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		if opts.Metadata == nil {
			return nil
		}
		meta := badger.NewEntry([]byte(key+metaSuffix), opts.Metadata)
		if opts.TTL > 0 {
			meta = meta.WithTTL(opts.TTL)
		}
		return txn.SetEntry(meta)
	})
}

func (s *BadgerStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, _, err := s.GetWithMetadata(ctx, key)
	return rc, err
}

func (s *BadgerStore) GetWithMetadata(ctx context.Context, key string) (io.ReadCloser, []byte, error) {
	var data, meta []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return err
		}

		metaItem, err := txn.Get([]byte(key + metaSuffix))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		meta, err = metaItem.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), meta, nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key + metaSuffix))
	})
}

func (s *BadgerStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().KeyCopy(nil))
			if strings.HasSuffix(key, metaSuffix) {
				continue
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
