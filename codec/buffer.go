package codec

// Buffer 为内存中的 ByteIO：写入追加到尾部，读取从游标处顺序消费
type Buffer struct {
	buf []byte
	off int
}

// NewBuffer 以 b 作为初始内容，读取从头开始
func NewBuffer(b []byte) *Buffer {
	return &Buffer{buf: b}
}

func (b *Buffer) ReadBytes(p []byte) (int, error) {
	if len(p) > len(b.buf)-b.off {
		return 0, ErrShortBuffer
	}
	n := copy(p, b.buf[b.off:])
	b.off += n
	return n, nil
}

func (b *Buffer) WriteBytes(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// ReadMessage 返回剩余的全部未读字节
func (b *Buffer) ReadMessage() ([]byte, error) {
	rest := b.buf[b.off:]
	if len(rest) > MaxMessageSize {
		rest = rest[:MaxMessageSize]
	}
	out := make([]byte, len(rest))
	copy(out, rest)
	b.off += len(rest)
	return out, nil
}

func (b *Buffer) WriteMessage(p []byte) (int, error) {
	return b.WriteBytes(p)
}

// Skip 跳过 n 个未读字节
func (b *Buffer) Skip(n int) error {
	if n < 0 || n > len(b.buf)-b.off {
		return ErrShortBuffer
	}
	b.off += n
	return nil
}

// Bytes 返回全部内容（含已读部分）
func (b *Buffer) Bytes() []byte { return b.buf }

// Len 返回未读字节数
func (b *Buffer) Len() int { return len(b.buf) - b.off }

func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.off = 0
}
