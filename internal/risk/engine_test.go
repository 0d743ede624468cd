package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelIsProductOverFullGrid(t *testing.T) {
	for p := 1; p <= 4; p++ {
		for s := 1; s <= 4; s++ {
			level, err := Level(p, s)
			require.NoError(t, err)
			assert.Equal(t, p*s, level)
		}
	}
}

func TestLevelRejectsOutOfRange(t *testing.T) {
	for _, pair := range [][2]int{{0, 1}, {5, 1}, {1, 0}, {1, 5}, {-1, 3}} {
		_, err := Level(pair[0], pair[1])
		assert.Error(t, err, "P=%d S=%d", pair[0], pair[1])
	}
}

func TestCategorizeBoundaries(t *testing.T) {
	tests := []struct {
		level int
		want  Category
	}{
		{1, CategoryAcceptable},
		{2, CategoryAcceptable},
		{3, CategoryTolerable},
		{4, CategoryTolerable},
		{6, CategoryUnacceptable},
		{8, CategoryUnacceptable},
		{9, CategoryUnacceptable},
		{12, CategoryInadmissible},
		{16, CategoryInadmissible},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("level_%d", tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.level))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]int{1, 4, 6, 9, 12, 16})
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 4, s.High)
	assert.Equal(t, 2, s.Critical)
	assert.Contains(t, s.Banner, "DO NOT EXECUTE")

	s = Summarize([]int{2, 6})
	assert.Equal(t, 1, s.High)
	assert.Zero(t, s.Critical)
	assert.NotContains(t, s.Banner, "DO NOT EXECUTE")

	s = Summarize([]int{1, 2})
	assert.Contains(t, s.Banner, "tolerable")

	s = Summarize(nil)
	assert.Equal(t, "no risks identified", s.Banner)
}
