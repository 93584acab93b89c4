// Package bitmutex 实现每个 id 仅占一位的无锁互斥
//
// 适用于很大且稀疏的 id 空间：为每个 id 分配系统互斥量代价过高时，
// 以 CAS 置位/清位完成排他。不可重入，不保证公平。
package bitmutex

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/spaolacci/murmur3"
)

// DefaultSpin Lock 连续失败多少次后让出一次处理器
const DefaultSpin = 64

const wordBits = 32

// BitMutex 为固定大小 id 空间上的位锁
type BitMutex struct {
	size  uint64
	words []atomic.Uint32
}

// New 创建可容纳 size 个 id 的位锁
func New(size uint64) *BitMutex {
	if size == 0 {
		size = 1
	}
	return &BitMutex{
		size:  size,
		words: make([]atomic.Uint32, (size+wordBits-1)/wordBits),
	}
}

func (m *BitMutex) Size() uint64 { return m.size }

func (m *BitMutex) locate(id uint64) (*atomic.Uint32, uint32) {
	if id >= m.size {
		panic(fmt.Sprintf("bitmutex: id %d out of range [0, %d)", id, m.size))
	}
	return &m.words[id/wordBits], 1 << (id % wordBits)
}

// Lock 自旋尝试将位从 0 置 1；每失败 spin 次调用一次 runtime.Gosched 并重新计数
func (m *BitMutex) Lock(id uint64, spin int) {
	w, bit := m.locate(id)
	if spin < 1 {
		spin = 1
	}
	for attempts := 0; ; {
		old := w.Load()
		if old&bit == 0 && w.CompareAndSwap(old, old|bit) {
			return
		}
		attempts++
		if attempts >= spin {
			runtime.Gosched()
			attempts = 0
		}
	}
}

// TryLock 单次尝试，位已被占用或 CAS 竞争失败时返回 false
func (m *BitMutex) TryLock(id uint64) bool {
	w, bit := m.locate(id)
	for {
		old := w.Load()
		if old&bit != 0 {
			return false
		}
		if w.CompareAndSwap(old, old|bit) {
			return true
		}
	}
}

// Unlock 以 CAS 循环清位；对未加锁的 id 调用会 panic
func (m *BitMutex) Unlock(id uint64) {
	w, bit := m.locate(id)
	for {
		old := w.Load()
		if old&bit == 0 {
			panic(fmt.Sprintf("bitmutex: unlock of unlocked id %d", id))
		}
		if w.CompareAndSwap(old, old&^bit) {
			return
		}
	}
}

func (m *BitMutex) IsLocked(id uint64) bool {
	w, bit := m.locate(id)
	return w.Load()&bit != 0
}

// KeyID 将任意键散列到 id 空间
func (m *BitMutex) KeyID(key []byte) uint64 {
	return murmur3.Sum64(key) % m.size
}

// LockKey 锁住 key 对应的 id 并返回该 id；不同键可能落到同一 id
func (m *BitMutex) LockKey(key []byte, spin int) uint64 {
	id := m.KeyID(key)
	m.Lock(id, spin)
	return id
}

func (m *BitMutex) UnlockKey(key []byte) {
	m.Unlock(m.KeyID(key))
}

// Locker 返回绑定到单个 id 的 sync.Locker
func (m *BitMutex) Locker(id uint64, spin int) sync.Locker {
	m.locate(id)
	return &idLocker{m: m, id: id, spin: spin}
}

type idLocker struct {
	m    *BitMutex
	id   uint64
	spin int
}

func (l *idLocker) Lock()   { l.m.Lock(l.id, l.spin) }
func (l *idLocker) Unlock() { l.m.Unlock(l.id) }
