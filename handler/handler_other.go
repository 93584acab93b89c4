//go:build !linux && !darwin

package handler

type ioSlot struct{}
