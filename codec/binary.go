package codec

import (
	"encoding/binary"
	"math"
)

func readN(r ByteIO, n int) ([]byte, error) {
	var b [8]byte
	p := b[:n]
	m, err := r.ReadBytes(p)
	if err != nil {
		return nil, err
	}
	if m != n {
		return nil, ErrShortBuffer
	}
	return p, nil
}

func writeAll(w ByteIO, p []byte) error {
	n, err := w.WriteBytes(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrShortWrite
	}
	return nil
}

func ReadUint8(r ByteIO) (uint8, error) {
	b, err := readN(r, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func ReadUint16(r ByteIO) (uint16, error) {
	b, err := readN(r, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func ReadUint32(r ByteIO) (uint32, error) {
	b, err := readN(r, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func ReadUint64(r ByteIO) (uint64, error) {
	b, err := readN(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func ReadInt8(r ByteIO) (int8, error) {
	v, err := ReadUint8(r)
	return int8(v), err
}

func ReadInt16(r ByteIO) (int16, error) {
	v, err := ReadUint16(r)
	return int16(v), err
}

func ReadInt32(r ByteIO) (int32, error) {
	v, err := ReadUint32(r)
	return int32(v), err
}

func ReadInt64(r ByteIO) (int64, error) {
	v, err := ReadUint64(r)
	return int64(v), err
}

// ReadFloat32 按同宽整数读取后还原 IEEE-754 位模式
func ReadFloat32(r ByteIO) (float32, error) {
	v, err := ReadUint32(r)
	return math.Float32frombits(v), err
}

func ReadFloat64(r ByteIO) (float64, error) {
	v, err := ReadUint64(r)
	return math.Float64frombits(v), err
}

func WriteUint8(w ByteIO, v uint8) error {
	return writeAll(w, []byte{v})
}

func WriteUint16(w ByteIO, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return writeAll(w, b[:])
}

func WriteUint32(w ByteIO, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return writeAll(w, b[:])
}

func WriteUint64(w ByteIO, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return writeAll(w, b[:])
}

func WriteInt8(w ByteIO, v int8) error   { return WriteUint8(w, uint8(v)) }
func WriteInt16(w ByteIO, v int16) error { return WriteUint16(w, uint16(v)) }
func WriteInt32(w ByteIO, v int32) error { return WriteUint32(w, uint32(v)) }
func WriteInt64(w ByteIO, v int64) error { return WriteUint64(w, uint64(v)) }

func WriteFloat32(w ByteIO, v float32) error { return WriteUint32(w, math.Float32bits(v)) }
func WriteFloat64(w ByteIO, v float64) error { return WriteUint64(w, math.Float64bits(v)) }

// WriteString 写出 4 字节长度前缀 + 原始字节
func WriteString(w ByteIO, s []byte) error {
	if uint64(len(s)) > math.MaxUint32 {
		return ErrStringTooLong
	}
	if err := WriteUint32(w, uint32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	return writeAll(w, s)
}

// ReadString 读取 WriteString 写出的字节串
func ReadString(r ByteIO) ([]byte, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if n > MaxMessageSize {
		return nil, ErrStringTooLong
	}
	s := make([]byte, n)
	if n == 0 {
		return s, nil
	}
	m, err := r.ReadBytes(s)
	if err != nil {
		return nil, err
	}
	if m != int(n) {
		return nil, ErrShortBuffer
	}
	return s, nil
}
