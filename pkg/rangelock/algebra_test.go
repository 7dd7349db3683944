package rangelock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlapType_AllCases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name           string
		s1, e1, s2, e2 uint64
		want           overlapCase
	}{
		{"identical", 10, 20, 10, 20, caseSame},
		{"share-left-edge-shorter", 10, 15, 10, 20, caseShareEdge},
		{"share-right-edge-shorter", 15, 20, 10, 20, caseShareEdge},
		{"strictly-inside", 12, 18, 10, 20, caseInside},
		{"covers-exactly-same-as-identical", 10, 20, 10, 20, caseSame},
		{"covers-strictly", 5, 25, 10, 20, caseCovers},
		{"cross-right", 15, 25, 10, 20, caseCross},
		{"cross-left", 5, 15, 10, 20, caseCross},
		{"disjoint-after", 21, 30, 10, 20, caseDisjoint},
		{"disjoint-before", 0, 5, 10, 20, caseDisjoint},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := overlapType(c.s1, c.e1, c.s2, c.e2)
			assert.Equal(t, c.want, got, "overlapType(%d,%d,%d,%d)", c.s1, c.e1, c.s2, c.e2)
		})
	}
}

func TestShrinkRange2_CrossingFromLeft(t *testing.T) {
	t.Parallel()
	// po = [5,15], new = [10,20]: po extends past new on the left.
	start, end, ok := shrinkRange2(5, 15, 10, 20)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), start)
	assert.Equal(t, uint64(9), end)
}

func TestShrinkRange2_CrossingFromRight(t *testing.T) {
	t.Parallel()
	// po = [15,25], new = [10,20]: po extends past new on the right.
	start, end, ok := shrinkRange2(15, 25, 10, 20)
	assert.True(t, ok)
	assert.Equal(t, uint64(21), start)
	assert.Equal(t, uint64(25), end)
}

func TestResource_EmptyAndGC(t *testing.T) {
	t.Parallel()
	r := &Resource{Number: 1}
	assert.True(t, r.Empty())

	r.Locks = append(r.Locks, &PosixLock{})
	assert.False(t, r.Empty())
}
