package statestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cenkalti/backoff/v4"
	"github.com/erigontech/erigon-lib/log/v3"
	"github.com/kanari-network/kanari-core/internal/changeset"
	"github.com/kanari-network/kanari-core/internal/errs"
)

// journal is the crash-safe write-ahead log backing StateStore.Apply. The
// store is a single-writer system, so the journal only ever needs to hold
// at most one pending entry: write it and fsync before mutating the
// store, then truncate once the store commit lands (spec §4.3 step 5,
// §6). Modeled on the teacher-adjacent pattern in
// triedb/pathdb/journal.go: a length-prefixed append format with replay
// on startup, but narrowed to a single-slot journal since this store
// never batches multiple ChangeSets per write.
type journal struct {
	path   string
	logger log.Logger
}

func openJournal(dir string, logger log.Logger) (*journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("statestore: create journal dir: %w", err)
	}
	return &journal{path: filepath.Join(dir, "pending.log"), logger: logger}, nil
}

// write appends cs's canonical encoding to the journal and fsyncs before
// returning, so a crash after write() but before the caller's store
// commit can still be replayed on the next startup.
func (j *journal) write(cs *changeset.ChangeSet) error {
	entry := encodeChangeSet(cs)
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("statestore: open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(entry); err != nil {
		return fmt.Errorf("statestore: write journal: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("statestore: fsync journal: %w", err)
	}
	return nil
}

// truncate clears the journal once the corresponding store commit has
// landed durably.
func (j *journal) truncate() error {
	return os.Truncate(j.path, 0)
}

// pending returns the decoded ChangeSet sitting in the journal, or nil if
// the journal is empty (the common case: no crash occurred mid-apply).
func (j *journal) pending() (*changeset.ChangeSet, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("statestore: read journal: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	cs, err := decodeChangeSet(data)
	if err != nil {
		// A partially-written entry from a crash mid-fsync is the one
		// shape of corruption we tolerate: discard it, since the store
		// was never mutated on its account (fsync had not completed), so
		// discarding is equivalent to the transaction never having been
		// accepted.
		j.logger.Warn("discarding corrupt journal entry", "err", fmt.Errorf("%w: %v", errs.ErrJournalCorrupt, err))
		return nil, j.truncate()
	}
	return cs, nil
}

// replayWithRetry runs apply (the store's own commit path) against any
// pending journal entry found at startup, retrying transient I/O errors a
// bounded number of times before giving up — mirroring the teacher's use
// of cenkalti/backoff for bounded retry of flaky I/O elsewhere in the
// corpus's daemon bootstrap paths.
//
// A validation failure (e.g. InsufficientBalance) is not transient: the
// journaled entry will fail identically on every retry. Such a failure is
// discarded the same way pending() discards a corrupt entry, rather than
// retried or surfaced as a reason Open() must fail.
func replayWithRetry(j *journal, apply func(*changeset.ChangeSet) error) error {
	cs, err := j.pending()
	if err != nil {
		return err
	}
	if cs == nil {
		return nil
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	err = backoff.Retry(func() error {
		applyErr := apply(cs)
		if kind, ok := errs.KindOf(applyErr); ok && kind != errs.KindStoreIoError {
			return backoff.Permanent(applyErr)
		}
		return applyErr
	}, policy)
	if err == nil {
		return nil
	}
	// backoff.Retry unwraps a Permanent error back to its cause before
	// returning it, so a non-StoreIoError DomainError here is always a
	// validation failure that will never succeed on retry: discard the
	// entry exactly as pending() discards a corrupt one.
	if kind, ok := errs.KindOf(err); ok && kind != errs.KindStoreIoError {
		j.logger.Warn("discarding journal entry that failed replay validation", "err", err)
		return j.truncate()
	}
	return err
}
