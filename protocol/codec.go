package protocol

// EncodeRequest 返回 header + payload 组成的完整请求
func EncodeRequest(id string, payload []byte) ([]byte, error) {
	out, err := AppendHeader(make([]byte, 0, 1+len(id)+len(payload)), id)
	if err != nil {
		return nil, err
	}
	return append(out, payload...), nil
}

// EncodeCompressedRequest 与 EncodeRequest 相同，但 payload 先经 zstd 压缩
func EncodeCompressedRequest(id string, payload []byte) ([]byte, error) {
	return EncodeRequest(id, Compress(payload))
}
