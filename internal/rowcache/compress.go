package rowcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compressionType defines the block compression algorithm.
type compressionType uint8

const (
	// compressionLZ4 is used for blocks below the zstd threshold (fast,
	// good for hot data).
	compressionLZ4 compressionType = 1
	// compressionZSTD is used for large blocks (better ratio, good for
	// cold data).
	compressionZSTD compressionType = 2
)

var errBlockCorrupt = errors.New("rowcache: corrupt block")

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) { zstdEncoderPool.Put(enc) }

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) { zstdDecoderPool.Put(dec) }

// compressBlock frames raw as [type][uint32 raw len][payload].
func compressBlock(raw []byte, zstdThreshold int) []byte {
	header := make([]byte, 5)
	binary.LittleEndian.PutUint32(header[1:], uint32(len(raw)))

	if len(raw) >= zstdThreshold {
		header[0] = byte(compressionZSTD)
		enc := getZstdEncoder()
		out := enc.EncodeAll(raw, header)
		putZstdEncoder(enc)
		return out
	}

	header[0] = byte(compressionLZ4)
	buf := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, buf, nil)
	if err != nil || n == 0 {
		// incompressible; store raw, signalled by payload len == raw len
		return append(header, raw...)
	}
	return append(header, buf[:n]...)
}

// decompressBlock reverses compressBlock.
func decompressBlock(block []byte) ([]byte, error) {
	if len(block) < 5 {
		return nil, errBlockCorrupt
	}
	rawLen := binary.LittleEndian.Uint32(block[1:5])
	payload := block[5:]

	switch compressionType(block[0]) {
	case compressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		putZstdDecoder(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBlockCorrupt, err)
		}
		return out, nil
	case compressionLZ4:
		if uint32(len(payload)) == rawLen {
			// stored uncompressed
			return payload, nil
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil || uint32(n) != rawLen {
			return nil, errBlockCorrupt
		}
		return out, nil
	default:
		return nil, errBlockCorrupt
	}
}
