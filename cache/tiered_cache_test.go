package cache

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPage struct {
	Cursor string   `json:"cursor"`
	Rows   []string `json:"rows"`
}

func TestTieredCacheLocalOnly(t *testing.T) {
	logger, _ := test.NewNullLogger()
	tc, err := NewTieredCache(logger, 1, "", "")
	require.NoError(t, err)
	defer tc.Close()

	_, err = tc.Get("checkpoints:20:", &cachedPage{})
	assert.ErrorIs(t, err, CacheMissError)

	require.NoError(t, tc.Set("checkpoints:20:", &cachedPage{Cursor: "975", Rows: []string{"a", "b"}}, time.Minute))

	page := &cachedPage{}
	_, err = tc.Get("checkpoints:20:", page)
	require.NoError(t, err)
	assert.Equal(t, "975", page.Cursor)
	assert.Equal(t, []string{"a", "b"}, page.Rows)

	stats := tc.Stats()
	assert.Equal(t, int64(1), stats.LocalEntries)
	assert.False(t, stats.Remote)

	tc.Delete("checkpoints:20:")
	_, err = tc.Get("checkpoints:20:", &cachedPage{})
	assert.ErrorIs(t, err, CacheMissError)
}

func TestExpirySeconds(t *testing.T) {
	assert.Equal(t, 0, expirySeconds(0))
	assert.Equal(t, 0, expirySeconds(-time.Second))
	assert.Equal(t, 1, expirySeconds(200*time.Millisecond))
	assert.Equal(t, 600, expirySeconds(10*time.Minute))
}
