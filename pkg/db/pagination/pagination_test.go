package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetAndPageInfo(t *testing.T) {
	p := Pagination{Page: 2}.WithDefault(10)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 20, p.Offset())

	info := BuildPageInfo(p, 31)
	assert.True(t, info.HasMore)
	assert.False(t, BuildPageInfo(p, 30).HasMore)

	assert.Zero(t, Pagination{Page: -1, PageSize: 5}.Offset())
}
