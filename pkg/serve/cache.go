package serve

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/coocood/freecache"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
)

const (
	infiniteExpiry = -1
	// freecache rounds smaller sizes up to this
	minCacheBytes = 512 * 1024
)

// predictionCache answers repeated identical records without predicting.
// A nil cache is disabled.
type predictionCache struct {
	c *freecache.Cache
}

func newPredictionCache(sizeMB int) *predictionCache {
	if sizeMB <= 0 {
		return nil
	}
	size := sizeMB * 1024 * 1024
	if size < minCacheBytes {
		size = minCacheBytes
	}
	return &predictionCache{c: freecache.NewCache(size)}
}

// recordKey hashes the record in column order. Kinds are part of the key so
// a missing value and an empty text differ.
func recordKey(bundleID string, cols []string, rec map[string]data.Value) int64 {
	d := xxhash.New()
	_, _ = d.WriteString(bundleID)
	for _, c := range cols {
		v := rec[c]
		_, _ = d.WriteString("\x00" + c + "\x00" + strconv.Itoa(int(v.Kind)) + ":" + v.String())
	}
	return int64(d.Sum64())
}

// Cached values are a probability flag byte, the probability bits and the
// class as a signed varint.
const probabilityBytes = 1 + 8

func (p *predictionCache) get(key int64) (prediction, bool) {
	if p == nil {
		return prediction{}, false
	}
	b, err := p.c.GetInt(key)
	if err != nil || len(b) <= probabilityBytes {
		return prediction{}, false
	}
	class, n := binary.Varint(b[probabilityBytes:])
	if n <= 0 {
		return prediction{}, false
	}
	out := prediction{Class: int(class)}
	if b[0] == 1 {
		pr := math.Float64frombits(binary.LittleEndian.Uint64(b[1:probabilityBytes]))
		out.Probability = &pr
	}
	return out, true
}

func (p *predictionCache) set(key int64, pred prediction) {
	if p == nil {
		return
	}
	b := make([]byte, probabilityBytes+binary.MaxVarintLen64)
	if pred.Probability != nil {
		b[0] = 1
		binary.LittleEndian.PutUint64(b[1:probabilityBytes], math.Float64bits(*pred.Probability))
	}
	n := binary.PutVarint(b[probabilityBytes:], int64(pred.Class))
	_ = p.c.SetInt(key, b[:probabilityBytes+n], infiniteExpiry)
}
