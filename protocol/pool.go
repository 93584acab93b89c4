package protocol

import (
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize 解压结果上限，与单条消息的读取缓冲一致
const maxDecodedSize = 1 << 20

var ErrCorrupt = errors.New("protocol: corrupt compressed payload")

var (
	encoderPool = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		return enc
	}}
	decoderPool = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxDecodedSize))
		return dec
	}}
)

func getEncoder() *zstd.Encoder  { return encoderPool.Get().(*zstd.Encoder) }
func putEncoder(e *zstd.Encoder) { encoderPool.Put(e) }
func getDecoder() *zstd.Decoder  { return decoderPool.Get().(*zstd.Decoder) }
func putDecoder(d *zstd.Decoder) { decoderPool.Put(d) }

// Compress 以 zstd 压缩 src
func Compress(src []byte) []byte {
	enc := getEncoder()
	out := enc.EncodeAll(src, nil)
	putEncoder(enc)
	return out
}

// Decompress 解压 Compress 的输出
func Decompress(src []byte) ([]byte, error) {
	dec := getDecoder()
	out, err := dec.DecodeAll(src, nil)
	putDecoder(dec)
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return out, nil
}
