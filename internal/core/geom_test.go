package core

import "testing"

func TestRectEdges(t *testing.T) {
	r := NewRect(1, 2, 10, 20)
	if r.Right() != 11 {
		t.Errorf("Right() = %d, expected 11", r.Right())
	}
	if r.Bottom() != 22 {
		t.Errorf("Bottom() = %d, expected 22", r.Bottom())
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		v, n, expected int
	}{
		{0, 16, 0},
		{15, 16, 15},
		{16, 16, 0},
		{-1, 16, 15},
		{-17, 16, 15},
		{33, 16, 1},
	}

	for _, tc := range tests {
		if got := Wrap(tc.v, tc.n); got != tc.expected {
			t.Errorf("Wrap(%d, %d) = %d, expected %d", tc.v, tc.n, got, tc.expected)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, expected int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tc := range tests {
		if got := Clamp(tc.val, tc.min, tc.max); got != tc.expected {
			t.Errorf("Clamp(%d, %d, %d) = %d, expected %d", tc.val, tc.min, tc.max, got, tc.expected)
		}
	}
}

func TestMinMax(t *testing.T) {
	if Min(3, 7) != 3 || Min(7, 3) != 3 {
		t.Error("Min should return the smaller value")
	}
	if Max(3, 7) != 7 || Max(7, 3) != 7 {
		t.Error("Max should return the larger value")
	}
}
