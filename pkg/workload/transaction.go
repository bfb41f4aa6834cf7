package workload

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// Transaction groups the file operations of one install or repair so they
// either all take effect or none do. It also owns the pack locks taken by
// those operations and releases them when it ends.
//
// A Transaction is used by one goroutine at a time.
type Transaction struct {
	undo      []func() error
	commit    []func() error
	committed []func() error
	locks     []*packLock
	held   map[string]bool
	done   bool
	logger *log.Logger
}

// NewTransaction starts an empty transaction.
func NewTransaction(logger *log.Logger) *Transaction {
	if logger == nil {
		logger = log.Default()
	}
	return &Transaction{held: make(map[string]bool), logger: logger}
}

// RunInTransaction runs fn inside a new transaction, committing if fn
// succeeds and rolling back otherwise.
func RunInTransaction(ctx context.Context, logger *log.Logger, fn func(ctx context.Context, tx *Transaction) error) error {
	tx := NewTransaction(logger)
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return stderrors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// OnRollback registers an undo step. Steps run in reverse order.
func (tx *Transaction) OnRollback(fn func() error) { tx.undo = append(tx.undo, fn) }

// OnCommit registers a step to run at commit, in registration order. A
// failing step rolls the whole transaction back, so commit steps must leave
// everything the undo steps need in place.
func (tx *Transaction) OnCommit(fn func() error) { tx.commit = append(tx.commit, fn) }

// OnCommitted registers a cleanup step that runs only after every commit
// step succeeded, in registration order. Failures are logged and do not
// affect the outcome: the transaction has already taken effect.
func (tx *Transaction) OnCommitted(fn func() error) { tx.committed = append(tx.committed, fn) }

// lock takes the pack for the rest of the transaction. Taking a pack the
// transaction already holds is a no-op.
func (tx *Transaction) lock(root string, p PackInfo) error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	key := lockKey(root, p)
	if tx.held[key] {
		return nil
	}
	l, err := lockPack(root, p)
	if err != nil {
		return fmt.Errorf("lock %s: %w", p, err)
	}
	tx.held[key] = true
	tx.locks = append(tx.locks, l)
	return nil
}

// Commit runs the commit steps. If one fails, the remaining steps are
// abandoned and everything is rolled back, including the effects of the
// commit steps that already ran. Cleanup steps run after the locks are
// released.
func (tx *Transaction) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	for i, fn := range tx.commit {
		if err := fn(); err != nil {
			tx.logger.Warn("commit step failed, rolling back", "step", i, "error", err)
			tx.commit = nil
			tx.committed = nil
			if rbErr := tx.Rollback(); rbErr != nil {
				return stderrors.Join(err, rbErr)
			}
			return err
		}
	}
	cleanups := tx.committed
	tx.finish()
	for i, fn := range cleanups {
		if err := fn(); err != nil {
			tx.logger.Warn("post-commit cleanup failed", "step", i, "error", err)
		}
	}
	return nil
}

// Rollback undoes every registered step, newest first. All steps run even if
// some fail; the failures are joined.
func (tx *Transaction) Rollback() error {
	if tx.done {
		return nil
	}
	var errs []error
	for i := len(tx.undo) - 1; i >= 0; i-- {
		if err := tx.undo[i](); err != nil {
			errs = append(errs, err)
		}
	}
	tx.finish()
	return stderrors.Join(errs...)
}

func (tx *Transaction) finish() {
	tx.done = true
	tx.undo = nil
	tx.commit = nil
	tx.committed = nil
	for i := len(tx.locks) - 1; i >= 0; i-- {
		tx.locks[i].release()
	}
	tx.locks = nil
	clear(tx.held)
}
