package badger

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
)

// Record persists a file commit, replacing any earlier record for the name.
func (s *Store) Record(ctx context.Context, commit *core.FileCommit) error {
	if commit == nil || commit.Name == "" {
		return errors.New("file commit requires a name")
	}
	if commit.CommittedAt.IsZero() {
		commit.CommittedAt = time.Now().UTC()
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeCommitKey(commit.Name), storage.MarshalFileCommit(commit))
	})
}

// List returns every recorded commit, oldest first.
func (s *Store) List(ctx context.Context) ([]*core.FileCommit, error) {
	var commits []*core.FileCommit
	err := s.backend.ScanPrefix([]byte(commitPrefix), true, func(_, val []byte) error {
		commit, err := storage.UnmarshalFileCommit(val)
		if err != nil {
			return err
		}
		commits = append(commits, commit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(commits, func(a, b *core.FileCommit) int {
		if c := a.CommittedAt.Compare(b.CommittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return commits, nil
}
