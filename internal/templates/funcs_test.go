package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/wpfront/internal/model"
)

func TestPageURL(t *testing.T) {
	assert.Equal(t, "/projects", pageURL("projects", 1))
	assert.Equal(t, "/projects/page/2", pageURL("/projects/", 2))
	assert.Equal(t, "/", pageURL("", 1))
	assert.Equal(t, "/page/3", pageURL("/", 3))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2024/03/05", formatDate("2024-03-05T10:00:00", "2006/01/02"))
	assert.Equal(t, "2024/03/05", formatDate("2024-03-05T10:00:00+09:00", "2006/01/02"))
	assert.Equal(t, "昨日", formatDate("昨日", "2006/01/02"), "解釈できない値はそのまま")
	assert.Empty(t, formatDate("", "2006/01/02"))
}

func TestNewPager(t *testing.T) {
	assert.Nil(t, NewPager("projects", nil))
	assert.Nil(t, NewPager("projects", model.NewListing(nil, 3, 1, 1)))

	p := NewPager("projects", model.NewListing(nil, 25, 3, 1))
	require.NotNil(t, p)
	assert.Empty(t, p.PrevURL)
	assert.Equal(t, "/projects/page/2", p.NextURL)
	require.Len(t, p.Pages, 3)
	assert.True(t, p.Pages[0].Current)
	assert.Equal(t, "/projects", p.Pages[0].URL)
}

func TestHasBlocks(t *testing.T) {
	assert.False(t, HasBlocks(nil))
	assert.False(t, HasBlocks(&model.Entity{}))
	assert.True(t, HasBlocks(&model.Entity{ACF: []byte(`{"modules":[{"acf_fc_layout":"text","content":"x"}]}`)}))
}

func TestPlain_WithoutSanitizer(t *testing.T) {
	h := testFuncs()
	assert.Equal(t, "A", h.plain("A"))
}
