package artifact

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

var (
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	encoderOnce sync.Once
	decoderOnce sync.Once
)

func compress(data []byte) []byte {
	encoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			panic(err)
		}
		encoder = enc
	})
	cdata := encoder.EncodeAll(data, make([]byte, 0, len(data)))
	log.Debug().Int("original", len(data)).Int("compressed", len(cdata)).Msg("Compressed blob")
	return cdata
}

func decompress(cdata []byte) ([]byte, error) {
	decoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderLowmem(false))
		if err != nil {
			panic(err)
		}
		decoder = dec
	})
	return decoder.DecodeAll(cdata, make([]byte, 0, len(cdata)*3))
}
