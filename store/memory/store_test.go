package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

func TestClosedStore(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, debtbook.ErrStoreClosed) {
		t.Errorf("Ping after Close: err = %v, want ErrStoreClosed", err)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		limit, offset int
		want          []int
	}{
		{0, 0, []int{1, 2, 3, 4, 5}},
		{2, 0, []int{1, 2}},
		{2, 4, []int{5}},
		{0, 3, []int{4, 5}},
		{3, 10, []int{}},
	}
	for _, tt := range tests {
		got := page(items, tt.limit, tt.offset)
		if len(got) != len(tt.want) {
			t.Errorf("page(%d, %d) = %v, want %v", tt.limit, tt.offset, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("page(%d, %d) = %v, want %v", tt.limit, tt.offset, got, tt.want)
				break
			}
		}
	}
}
