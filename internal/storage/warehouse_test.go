package storage

import (
	"context"
	"strings"
	"testing"
)

func TestNew_UnsupportedKind(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Config{Kind: "nope"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil || !strings.Contains(err.Error(), "missing Kind") {
		t.Fatalf("expected missing-kind error, got %v", err)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	t.Parallel()

	f := func(context.Context, Config) (Warehouse, error) { return nil, nil }
	Register("dup-test", f)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("dup-test", f)
}

func TestRegister_RejectsBadArgs(t *testing.T) {
	t.Parallel()

	mustPanic := func(name string, fn func()) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}

	mustPanic("empty_kind", func() {
		Register("", func(context.Context, Config) (Warehouse, error) { return nil, nil })
	})
	mustPanic("nil_factory", func() {
		Register("nilfactory-test", nil)
	})
}
