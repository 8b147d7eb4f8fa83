package db

import (
	"errors"
	"testing"
)

type fakeRows struct {
	n      int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.n == 0 {
		return false
	}
	r.n--
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*int64)) = int64(r.n + 1)
	return nil
}

func (r *fakeRows) Err() error   { return r.err }
func (r *fakeRows) Close() error { r.closed = true; return nil }

func TestScanRolesReportsIterationError(t *testing.T) {
	broken := errors.New("connection reset")
	rows := &fakeRows{n: 1, err: broken}

	roles, err := scanRoles(rows)
	if !errors.Is(err, broken) {
		t.Fatalf("expected iteration error, got %v", err)
	}
	if roles != nil {
		t.Errorf("expected no roles on error, got %v", roles)
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}

func TestScanRoles(t *testing.T) {
	rows := &fakeRows{n: 2}
	roles, err := scanRoles(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 || roles[0].ID != 2 || roles[1].ID != 1 {
		t.Errorf("unexpected roles %+v", roles)
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}
