package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	bolt "go.etcd.io/bbolt"

	"github.com/soochol/doctext/internal/doctext"
)

var (
	resultsBucket = []byte("results")
	pagesBucket   = []byte("pages")
)

// BoltStore keeps each artifact in its own nested bucket under "results" or
// "pages". Result buckets map filename -> text; page buckets map filename ->
// JSON array of page texts.
type BoltStore struct {
	db *bolt.DB
}

var _ ResultStore = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{resultsBucket, pagesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// replace drops the nested bucket key under parent and refills it with kv.
func (s *BoltStore) replace(parent []byte, key string, kv map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		p := tx.Bucket(parent)
		if p.Bucket([]byte(key)) != nil {
			if err := p.DeleteBucket([]byte(key)); err != nil {
				return err
			}
		}
		b, err := p.CreateBucket([]byte(key))
		if err != nil {
			return err
		}
		for k, v := range kv {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// each calls fn for every entry of the nested bucket key under parent.
func (s *BoltStore) each(parent []byte, key string, fn func(k, v []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(parent).Bucket([]byte(key))
		if b == nil {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return b.ForEach(fn)
	})
}

func (s *BoltStore) SaveResults(_ context.Context, key string, results map[string]string) error {
	kv := make(map[string][]byte, len(results))
	for name, text := range results {
		kv[name] = []byte(text)
	}
	if err := s.replace(resultsBucket, key, kv); err != nil {
		return fmt.Errorf("save results %s: %w", key, err)
	}
	return nil
}

func (s *BoltStore) LoadResults(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string)
	err := s.each(resultsBucket, key, func(k, v []byte) error {
		out[string(k)] = string(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) SavePageIndex(_ context.Context, key string, pages []doctext.PageIndex) error {
	kv := make(map[string][]byte, len(pages))
	for _, p := range pages {
		data, err := json.Marshal(p.Pages)
		if err != nil {
			return fmt.Errorf("encode pages of %s: %w", p.File, err)
		}
		kv[p.File] = data
	}
	if err := s.replace(pagesBucket, key, kv); err != nil {
		return fmt.Errorf("save page index %s: %w", key, err)
	}
	return nil
}

func (s *BoltStore) LoadPageIndex(_ context.Context, key string) ([]doctext.PageIndex, error) {
	var out []doctext.PageIndex
	err := s.each(pagesBucket, key, func(k, v []byte) error {
		p := doctext.PageIndex{File: string(k)}
		if err := json.Unmarshal(v, &p.Pages); err != nil {
			return fmt.Errorf("decode pages of %s: %w", k, err)
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) List(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, parent := range [][]byte{resultsBucket, pagesBucket} {
			err := tx.Bucket(parent).ForEachBucket(func(k []byte) error {
				keys = append(keys, string(k))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
