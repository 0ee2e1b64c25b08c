package prefetch

import (
	"reflect"
	"testing"
)

func TestRange(t *testing.T) {
	tests := []struct {
		name  string
		r     Range
		len   int
		in    []int
		notIn []int
	}{
		{"empty", Range{}, 0, nil, []int{0, 1, -1}},
		{"simple", Range{Lo: 3, Hi: 6}, 3, []int{3, 4, 5}, []int{2, 6}},
		{"negative lo", Range{Lo: -2, Hi: 1}, 3, []int{-2, 0}, []int{1, -3}},
		{"reversed", Range{Lo: 5, Hi: 2}, 0, nil, []int{2, 3, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Len(); got != tt.len {
				t.Errorf("Len() = %d, want %d", got, tt.len)
			}
			if tt.r.Empty() != (tt.len == 0) {
				t.Errorf("Empty() = %v", tt.r.Empty())
			}
			for _, i := range tt.in {
				if !tt.r.Contains(i) {
					t.Errorf("expected %v to contain %d", tt.r, i)
				}
			}
			for _, i := range tt.notIn {
				if tt.r.Contains(i) {
					t.Errorf("expected %v not to contain %d", tt.r, i)
				}
			}
		})
	}
}

func TestRangeWithout(t *testing.T) {
	got := Range{Lo: 0, Hi: 10}.without(Range{Lo: 4, Hi: 20}, Range{Lo: 1, Hi: 100})
	if want := []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("without = %v, want %v", got, want)
	}
	if got := (Range{}).without(Range{Lo: 0, Hi: 5}, Range{Lo: 0, Hi: 5}); len(got) != 0 || got == nil {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(9, 2, 5)
	if !reflect.DeepEqual(s.Sorted(), []int{2, 5, 9}) {
		t.Errorf("Sorted() = %v", s.Sorted())
	}
	lo, hi, ok := s.bounds()
	if !ok || lo != 2 || hi != 9 {
		t.Errorf("bounds() = %d, %d, %v", lo, hi, ok)
	}
	c := s.clone()
	c.remove(2)
	if !s.Contains(2) {
		t.Error("clone must not share storage")
	}
	if _, _, ok := NewSet().bounds(); ok {
		t.Error("empty set has no bounds")
	}
}
