package rpctypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigUint64Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{name: "decimal string", input: `"1000"`, want: 1000},
		{name: "hex string", input: `"0x10"`, want: 16},
		{name: "json number", input: `42`, want: 42},
		{name: "null", input: `null`, want: 0},
		{name: "empty string", input: `""`, want: 0},
		{name: "garbage", input: `"abc"`, wantErr: true},
		{name: "negative number", input: `-1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v BigUint64
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Uint64())
		})
	}
}

func TestEpochInfoWithoutEndOfEpoch(t *testing.T) {
	raw := `{"epoch":"12","epochTotalTransactions":"5","firstCheckpointId":"300","epochStartTimestamp":"1680000000000","endOfEpochInfo":null}`

	var epoch EpochInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &epoch))
	assert.Equal(t, uint64(12), epoch.Epoch.Uint64())
	assert.Equal(t, uint64(300), epoch.FirstCheckpointID.Uint64())
	assert.Nil(t, epoch.EndOfEpochInfo)
}

func TestCheckpointPageDecode(t *testing.T) {
	raw := `{"data":[{"epoch":"1","sequenceNumber":"1000","digest":"Dg1","networkTotalTransactions":"77","timestampMs":"1680533975398","transactions":["a","b"]}],"nextCursor":"999","hasNextPage":true}`

	var page CheckpointPage
	require.NoError(t, json.Unmarshal([]byte(raw), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Dg1", page.Data[0].Digest)
	assert.Len(t, page.Data[0].Transactions, 2)
	assert.Equal(t, int64(1680533975398), page.Data[0].Time().UnixMilli())
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "999", *page.NextCursor)
	assert.True(t, page.HasNextPage)
}
