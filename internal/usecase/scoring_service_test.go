package usecase

import "testing"

func TestDefaultPointsPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		predicted   int
		actual      int
		wantPoints  int
		wantCorrect bool
	}{
		{"exact", 3, 3, 10, true},
		{"one above", 4, 3, 3, false},
		{"one below", 3, 4, 3, false},
		{"two off", 1, 3, 0, false},
		{"no result", 5, 0, 0, false},
		{"negative actual", 5, -1, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			points, correct := DefaultPointsPolicy(tc.predicted, tc.actual)
			if points != tc.wantPoints || correct != tc.wantCorrect {
				t.Fatalf("policy(%d, %d) = (%d, %v), want (%d, %v)",
					tc.predicted, tc.actual, points, correct, tc.wantPoints, tc.wantCorrect)
			}
		})
	}
}

func TestComputeStreaks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		points      []int
		wantCurrent int
		wantBest    int
	}{
		{"empty", nil, 0, 0},
		{"all scoring", []int{10, 3, 6}, 3, 3},
		{"broken at head", []int{0, 10, 10}, 0, 2},
		{"run at head", []int{10, 10, 0, 10, 10, 10}, 2, 3},
		{"all zero", []int{0, 0, 0}, 0, 0},
		{"single", []int{5}, 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			current, best := computeStreaks(tc.points)
			if current != tc.wantCurrent || best != tc.wantBest {
				t.Fatalf("computeStreaks(%v) = (%d, %d), want (%d, %d)",
					tc.points, current, best, tc.wantCurrent, tc.wantBest)
			}
		})
	}
}
