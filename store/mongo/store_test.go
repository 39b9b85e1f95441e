package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/store/storetest"
)

// TestConformance runs against a live server named by
// DEBTBOOK_TEST_MONGO_URI, one fresh database per subtest.
func TestConformance(t *testing.T) {
	uri := os.Getenv("DEBTBOOK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DEBTBOOK_TEST_MONGO_URI not set")
	}

	n := 0
	storetest.Run(t, func(t *testing.T) store.Store {
		n++
		ctx := context.Background()
		s, err := Open(ctx, uri, fmt.Sprintf("debtbook_test_%d_%d", time.Now().UnixNano(), n))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() {
			_ = s.Database().Drop(ctx)
			_ = s.Close()
		})
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		return s
	})
}

func TestDecimal128RoundTrip(t *testing.T) {
	for _, in := range []string{"0", "100", "1250.50", "0.01", "99999999.99"} {
		d := decimal.RequireFromString(in)
		v, err := toDecimal128(d)
		if err != nil {
			t.Fatalf("toDecimal128(%s): %v", in, err)
		}
		got, err := fromDecimal128(v)
		if err != nil {
			t.Fatalf("fromDecimal128(%s): %v", v, err)
		}
		if !got.Equal(d) {
			t.Errorf("round trip %s = %s", in, got)
		}
	}
}
