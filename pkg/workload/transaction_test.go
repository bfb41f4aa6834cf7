package workload

import (
	"context"
	stderrors "errors"
	"reflect"
	"testing"
	"time"
)

func TestRollbackRunsInReverse(t *testing.T) {
	var order []int
	tx := NewTransaction(quiet)
	for i := 1; i <= 3; i++ {
		tx.OnRollback(func() error { order = append(order, i); return nil })
	}
	tx.OnCommit(func() error { t.Error("commit step ran on rollback"); return nil })
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}
	if want := []int{3, 2, 1}; !reflect.DeepEqual(order, want) {
		t.Errorf("undo order = %v, want %v", order, want)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("second rollback: %v", err)
	}
}

func TestRollbackJoinsErrors(t *testing.T) {
	errA, errB := stderrors.New("a"), stderrors.New("b")
	ran := 0
	tx := NewTransaction(quiet)
	tx.OnRollback(func() error { ran++; return errA })
	tx.OnRollback(func() error { ran++; return errB })
	err := tx.Rollback()
	if ran != 2 {
		t.Errorf("ran %d undo steps, want 2", ran)
	}
	if !stderrors.Is(err, errA) || !stderrors.Is(err, errB) {
		t.Errorf("err = %v, want both failures", err)
	}
}

func TestCommitFailureRollsBack(t *testing.T) {
	boom := stderrors.New("boom")
	undone := false
	tx := NewTransaction(quiet)
	tx.OnRollback(func() error { undone = true; return nil })
	tx.OnCommit(func() error { return boom })
	tx.OnCommit(func() error { t.Error("step after failure ran"); return nil })
	if err := tx.Commit(); !stderrors.Is(err, boom) {
		t.Errorf("Commit() = %v, want %v", err, boom)
	}
	if !undone {
		t.Error("failed commit did not roll back")
	}
	if err := tx.Commit(); err == nil {
		t.Error("commit after finish succeeded")
	}
}

func TestCommittedStepsRunOnlyAfterSuccess(t *testing.T) {
	tests := []struct {
		name      string
		commitErr error
		wantRan   []int
	}{
		{"success", nil, []int{1, 2}},
		{"commit fails", stderrors.New("disk full"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran []int
			tx := NewTransaction(quiet)
			tx.OnCommitted(func() error { ran = append(ran, 1); return stderrors.New("ignored") })
			tx.OnCommitted(func() error { ran = append(ran, 2); return nil })
			tx.OnCommit(func() error { return tt.commitErr })
			err := tx.Commit()
			if !stderrors.Is(err, tt.commitErr) {
				t.Errorf("Commit() = %v, want %v", err, tt.commitErr)
			}
			if !reflect.DeepEqual(ran, tt.wantRan) {
				t.Errorf("cleanup steps ran %v, want %v", ran, tt.wantRan)
			}
		})
	}
}

func TestRunInTransaction(t *testing.T) {
	committed := false
	err := RunInTransaction(context.Background(), quiet, func(_ context.Context, tx *Transaction) error {
		tx.OnCommit(func() error { committed = true; return nil })
		return nil
	})
	if err != nil || !committed {
		t.Fatalf("err = %v, committed = %v", err, committed)
	}

	fail := stderrors.New("fail")
	undone := false
	err = RunInTransaction(context.Background(), quiet, func(_ context.Context, tx *Transaction) error {
		tx.OnRollback(func() error { undone = true; return nil })
		return fail
	})
	if !stderrors.Is(err, fail) || !undone {
		t.Errorf("err = %v, undone = %v", err, undone)
	}
}

func TestTransactionHoldsPackLock(t *testing.T) {
	root := t.TempDir()
	p := PackInfo{ID: "Pack.A", Version: "1.0.0"}

	tx := NewTransaction(quiet)
	if err := tx.lock(root, p); err != nil {
		t.Fatal(err)
	}
	if err := tx.lock(root, p); err != nil {
		t.Fatalf("re-locking within a transaction: %v", err)
	}
	if _, err := tryLockPack(root, p); !stderrors.Is(err, errPackLocked) {
		t.Fatalf("tryLockPack while held = %v, want errPackLocked", err)
	}

	other := PackInfo{ID: "Pack.B", Version: "1.0.0"}
	l, err := tryLockPack(root, other)
	if err != nil {
		t.Fatalf("different pack blocked: %v", err)
	}
	l.release()

	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	l, err = tryLockPack(root, p)
	if err != nil {
		t.Fatalf("lock not released at commit: %v", err)
	}
	l.release()
}

func TestLockPackWaits(t *testing.T) {
	root := t.TempDir()
	p := PackInfo{ID: "Pack.A", Version: "1.0.0"}
	held, err := lockPack(root, p)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan *packLock)
	go func() {
		l, err := lockPack(root, p)
		if err != nil {
			t.Error(err)
		}
		acquired <- l
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}
	held.release()
	select {
	case l := <-acquired:
		l.release()
	case <-time.After(5 * time.Second):
		t.Fatal("second lock never acquired")
	}
}
