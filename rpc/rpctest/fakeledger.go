// Package rpctest provides an in-memory ledger json-rpc node for tests.
package rpctest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// FakeLedger serves a deterministic chain: checkpoints 0..LatestCheckpoint with
// digests "cp<seq>" and epochs 0..CurrentEpoch of 100 checkpoints each.
type FakeLedger struct {
	ChainId          string
	LatestCheckpoint uint64
	CurrentEpoch     uint64
	EpochStart       time.Time
	EpochDuration    time.Duration
	// Fail makes every data call return a json-rpc error.
	Fail bool

	mutex sync.Mutex
	calls map[string]int
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		ChainId:          "35834a8a",
		LatestCheckpoint: 1199,
		CurrentEpoch:     11,
		EpochStart:       time.Now().Add(-6 * time.Hour),
		EpochDuration:    24 * time.Hour,
		calls:            map[string]int{},
	}
}

// Start runs the node on a local http server.
func (f *FakeLedger) Start() *httptest.Server {
	return httptest.NewServer(f)
}

// Calls returns how often method has been called.
func (f *FakeLedger) Calls(method string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls[method]
}

func (f *FakeLedger) SetFail(fail bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.Fail = fail
}

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func (f *FakeLedger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mutex.Lock()
	f.calls[req.Method]++
	fail := f.Fail
	f.mutex.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	result, err := f.handle(req, fail)
	if err != nil {
		resp["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (f *FakeLedger) handle(req request, fail bool) (interface{}, error) {
	switch req.Method {
	case "sui_getChainIdentifier":
		return f.ChainId, nil
	case "sui_getLatestCheckpointSequenceNumber":
		return strconv.FormatUint(f.LatestCheckpoint, 10), nil
	}

	if fail {
		return nil, fmt.Errorf("node unavailable")
	}

	switch req.Method {
	case "sui_getCheckpoints":
		cursor, limit, err := pageParams(req.Params)
		if err != nil {
			return nil, err
		}
		return f.checkpointPage(cursor, limit), nil
	case "suix_getEpochs":
		cursor, limit, err := pageParams(req.Params)
		if err != nil {
			return nil, err
		}
		return f.epochPage(cursor, limit), nil
	case "suix_getCurrentEpoch":
		return f.epoch(f.CurrentEpoch), nil
	case "suix_getLatestSuiSystemState":
		return map[string]interface{}{
			"epoch":                 strconv.FormatUint(f.CurrentEpoch, 10),
			"protocolVersion":       "42",
			"epochStartTimestampMs": strconv.FormatInt(f.EpochStart.UnixMilli(), 10),
			"epochDurationMs":       strconv.FormatInt(f.EpochDuration.Milliseconds(), 10),
		}, nil
	default:
		return nil, fmt.Errorf("method %v not found", req.Method)
	}
}

// pageParams decodes the (cursor, limit, descending) parameters of paged calls.
// Returns the first item to serve.
func pageParams(params []json.RawMessage) (*uint64, uint64, error) {
	if len(params) < 2 {
		return nil, 0, fmt.Errorf("missing params")
	}

	var cursor *string
	if err := json.Unmarshal(params[0], &cursor); err != nil {
		return nil, 0, fmt.Errorf("invalid cursor: %v", err)
	}
	var limit uint64
	if err := json.Unmarshal(params[1], &limit); err != nil {
		return nil, 0, fmt.Errorf("invalid limit: %v", err)
	}
	if cursor == nil {
		return nil, limit, nil
	}

	value, err := strconv.ParseUint(*cursor, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid cursor: %v", err)
	}
	return &value, limit, nil
}

// pageRange returns the descending sequence of items below cursor.
func pageRange(latest uint64, cursor *uint64, limit uint64) []uint64 {
	start := int64(latest)
	if cursor != nil {
		start = int64(*cursor) - 1
	}
	items := []uint64{}
	for i := start; i >= 0 && uint64(len(items)) < limit; i-- {
		items = append(items, uint64(i))
	}
	return items
}

func (f *FakeLedger) checkpointPage(cursor *uint64, limit uint64) map[string]interface{} {
	sequences := pageRange(f.LatestCheckpoint, cursor, limit)
	data := make([]map[string]interface{}, 0, len(sequences))
	for _, seq := range sequences {
		data = append(data, map[string]interface{}{
			"epoch":                    strconv.FormatUint(seq/100, 10),
			"sequenceNumber":           strconv.FormatUint(seq, 10),
			"digest":                   fmt.Sprintf("cp%d", seq),
			"networkTotalTransactions": strconv.FormatUint(seq*3, 10),
			"timestampMs":              strconv.FormatInt(time.Now().Add(-time.Duration(f.LatestCheckpoint-seq)*time.Second).UnixMilli(), 10),
			"transactions":             []string{fmt.Sprintf("tx%da", seq), fmt.Sprintf("tx%db", seq)},
		})
	}
	return pageResult(data, sequences)
}

func (f *FakeLedger) epochPage(cursor *uint64, limit uint64) map[string]interface{} {
	epochs := pageRange(f.CurrentEpoch, cursor, limit)
	data := make([]map[string]interface{}, 0, len(epochs))
	for _, epoch := range epochs {
		data = append(data, f.epoch(epoch))
	}
	return pageResult(data, epochs)
}

func (f *FakeLedger) epoch(epoch uint64) map[string]interface{} {
	start := f.EpochStart.Add(-time.Duration(f.CurrentEpoch-epoch) * f.EpochDuration)
	info := map[string]interface{}{
		"epoch":                  strconv.FormatUint(epoch, 10),
		"epochTotalTransactions": strconv.FormatUint(epoch*250, 10),
		"firstCheckpointId":      strconv.FormatUint(epoch*100, 10),
		"epochStartTimestamp":    strconv.FormatInt(start.UnixMilli(), 10),
		"endOfEpochInfo":         nil,
	}
	if epoch < f.CurrentEpoch {
		info["endOfEpochInfo"] = map[string]interface{}{
			"lastCheckpointId":             strconv.FormatUint(epoch*100+99, 10),
			"epochEndTimestamp":            strconv.FormatInt(start.Add(f.EpochDuration).UnixMilli(), 10),
			"storageCharge":                "5000",
			"totalStakeRewardsDistributed": "2500000000",
		}
	}
	return info
}

func pageResult(data []map[string]interface{}, items []uint64) map[string]interface{} {
	result := map[string]interface{}{
		"data":        data,
		"nextCursor":  nil,
		"hasNextPage": false,
	}
	if len(items) > 0 {
		last := items[len(items)-1]
		result["nextCursor"] = strconv.FormatUint(last, 10)
		result["hasNextPage"] = last > 0
	}
	return result
}
