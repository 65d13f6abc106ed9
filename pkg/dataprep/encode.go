package dataprep

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// OneHotEncoder maps a category to a 0/1 indicator block. Categories keep the
// order in which they were first seen during fit; a category never seen at
// fit time encodes as an all-zero block.
type OneHotEncoder struct {
	Categories []string `msgpack:"categories"`

	index map[string]int
}

// FitOneHot learns the category set of an already imputed column.
func FitOneHot(col []string) *OneHotEncoder {
	seen := linkedhashmap.New()
	for _, v := range col {
		if _, ok := seen.Get(v); !ok {
			seen.Put(v, seen.Size())
		}
	}
	cats := make([]string, 0, seen.Size())
	for _, k := range seen.Keys() {
		cats = append(cats, k.(string))
	}
	enc := &OneHotEncoder{Categories: cats}
	enc.buildIndex()
	return enc
}

// Reindex rebuilds the lookup table after the encoder has been decoded.
func (e *OneHotEncoder) Reindex() { e.buildIndex() }

func (e *OneHotEncoder) buildIndex() {
	e.index = make(map[string]int, len(e.Categories))
	for i, c := range e.Categories {
		e.index[c] = i
	}
}

// Width is the number of indicator columns the encoder produces.
func (e *OneHotEncoder) Width() int { return len(e.Categories) }

// EncodeInto writes the indicator block for v into dst, which must have
// length Width. dst is zeroed first.
func (e *OneHotEncoder) EncodeInto(dst []float64, v string) {
	for i := range dst {
		dst[i] = 0
	}
	if e.index == nil {
		// decoded encoders have no index until Reindex is called
		for i, c := range e.Categories {
			if c == v {
				dst[i] = 1
				return
			}
		}
		return
	}
	if i, ok := e.index[v]; ok {
		dst[i] = 1
	}
}

// Encode returns a fresh indicator block for v.
func (e *OneHotEncoder) Encode(v string) []float64 {
	out := make([]float64, e.Width())
	e.EncodeInto(out, v)
	return out
}
