package server

// ConnState 为连接在同步处理循环中的阶段
type ConnState int

const (
	StateAccepted ConnState = iota
	StateReading
	StateProcessing
	StateWriting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateReading:
		return "reading"
	case StateProcessing:
		return "processing"
	case StateWriting:
		return "writing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
