package eventloop

import (
	"slices"
	"time"
)

// TimeCallback 为定时器回调，id 为定时器槽位
type TimeCallback func(el *EventLoop, id int)

type timeEvent struct {
	at       time.Time
	period   time.Duration
	fn       TimeCallback
	occupied bool
}

type firedTimer struct {
	id int
	at time.Time
}

// AddTimeEvent 线性查找空闲槽位登记定时器；period > 0 为周期定时器。
// 表满时返回 -1 与 ErrTimerTableFull。
func (el *EventLoop) AddTimeEvent(at time.Time, period time.Duration, fn TimeCallback) (int, error) {
	if fn == nil {
		return -1, ErrMissingCallback
	}
	for id := range el.timers {
		t := &el.timers[id]
		if t.occupied {
			continue
		}
		*t = timeEvent{at: at, period: period, fn: fn, occupied: true}
		el.lowerBound(at)
		return id, nil
	}
	el.log.Warn("timer table full", "size", len(el.timers))
	return -1, ErrTimerTableFull
}

// ModifyTimeEvent 改写已登记定时器的时间、周期与回调
func (el *EventLoop) ModifyTimeEvent(id int, at time.Time, period time.Duration, fn TimeCallback) error {
	if id < 0 || id >= len(el.timers) || !el.timers[id].occupied {
		return ErrTimerNotFound
	}
	if fn == nil {
		return ErrMissingCallback
	}
	el.timers[id] = timeEvent{at: at, period: period, fn: fn, occupied: true}
	el.lowerBound(at)
	return nil
}

// DeleteTimeEvent 释放槽位，对空闲槽位是空操作
func (el *EventLoop) DeleteTimeEvent(id int) error {
	if id < 0 || id >= len(el.timers) {
		return ErrTimerNotFound
	}
	el.timers[id] = timeEvent{}
	return nil
}

// Timers 返回已占用的定时器槽位数
func (el *EventLoop) Timers() int {
	n := 0
	for i := range el.timers {
		if el.timers[i].occupied {
			n++
		}
	}
	return n
}

func (el *EventLoop) lowerBound(at time.Time) {
	if !el.bound.IsZero() && at.Before(el.bound) {
		el.bound = at
	}
}

// processTimers 收集到期定时器，按计划时间升序触发，随后改期或释放
func (el *EventLoop) processTimers(now time.Time) {
	fired := el.firedTimers[:0]
	for id := range el.timers {
		t := &el.timers[id]
		if !t.occupied {
			continue
		}
		if !t.at.After(now) {
			fired = append(fired, firedTimer{id: id, at: t.at})
			continue
		}
		el.lowerBound(t.at)
	}
	slices.SortStableFunc(fired, func(a, b firedTimer) int { return a.at.Compare(b.at) })

	for _, f := range fired {
		t := &el.timers[f.id]
		// 已被同批次中更早的回调删除或改期
		if !t.occupied || !t.at.Equal(f.at) {
			continue
		}
		t.fn(el, f.id)
		// 回调内自行删除或改期的保持其结果
		if !t.occupied || !t.at.Equal(f.at) {
			continue
		}
		if t.period > 0 {
			t.at = now.Add(t.period)
			el.lowerBound(t.at)
			continue
		}
		*t = timeEvent{}
	}
	el.firedTimers = fired[:0]
}
