package handler

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/legamerdc/netlib/protocol"
)

// HandleCBOR 登记一个以 CBOR 编解码请求与响应的类型化处理函数。
// 解码或处理失败时记录日志并丢弃请求。
func HandleCBOR[Req, Resp any](d *DispatchHandler, id string, fn func(Req) (Resp, error)) error {
	return d.AddProcessor(id, func(payload []byte) []byte {
		var req Req
		if err := cbor.Unmarshal(payload, &req); err != nil {
			d.log.Error("decode request", "id", id, "err", err)
			return nil
		}
		resp, err := fn(req)
		if err != nil {
			d.log.Error("processor failed", "id", id, "err", err)
			return nil
		}
		out, err := cbor.Marshal(resp)
		if err != nil {
			d.log.Error("encode response", "id", id, "err", err)
			return nil
		}
		return out
	})
}

// Compressed 包装处理函数：payload 先 zstd 解压，响应再压缩
func (d *DispatchHandler) Compressed(fn ProcessorFunc) ProcessorFunc {
	return func(payload []byte) []byte {
		in, err := protocol.Decompress(payload)
		if err != nil {
			d.log.Error("decompress request", "err", err)
			return nil
		}
		out := fn(in)
		if len(out) == 0 {
			return nil
		}
		return protocol.Compress(out)
	}
}
