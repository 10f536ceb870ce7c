package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// pingPG is a TxRunner that optionally reports readiness
type pingPG struct {
	fakeRowQuerier
	err error
}

func (p *pingPG) Tx(ctx context.Context, fn func(q RowQuerier) error) error { return fn(p) }
func (p *pingPG) Ping(context.Context) error                                 { return p.err }

type quietPG struct{ fakeRowQuerier }

func (q *quietPG) Tx(ctx context.Context, fn func(q RowQuerier) error) error { return fn(q) }

func TestGuard(t *testing.T) {
	tests := []struct {
		name    string
		store   *Store
		wantErr string
	}{
		{name: "nil store", store: nil, wantErr: "nil store"},
		{name: "no backends", store: &Store{}},
		{name: "pg without ping", store: &Store{PG: &quietPG{}}},
		{name: "pg ready", store: &Store{PG: &pingPG{}}},
		{name: "pg down", store: &Store{PG: &pingPG{err: errors.New("refused")}}, wantErr: "pg: refused"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.store.Guard(context.Background())
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err %v want %q", err, tc.wantErr)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	s, err := Open(context.Background(), Config{}, WithLogger(zerolog.New(&buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Log.Info().Msg("store ready")
	if !strings.Contains(buf.String(), "store ready") {
		t.Fatalf("log %q", buf.String())
	}
	if s.PG != nil || s.CH != nil {
		t.Fatalf("no backends were enabled")
	}
}
