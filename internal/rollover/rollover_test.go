package rollover

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) CheckDay(ctx context.Context) error { return f(ctx) }

func TestJobRunsImmediately(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure is logged, not fatal", errors.New("database is locked")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := make(chan struct{}, 10)
			j := New(checkerFunc(func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					t.Error("Expected the check to run with a deadline")
				}
				calls <- struct{}{}
				return tc.err
			}), time.Hour, slog.New(slog.DiscardHandler))

			if err := j.Start(); err != nil {
				t.Fatalf("Start() returned an unexpected error: %v", err)
			}
			defer j.Stop()

			select {
			case <-calls:
			case <-time.After(5 * time.Second):
				t.Fatal("Expected the check to run right after Start")
			}
		})
	}
}
