package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 录制状态常量
const (
	StateIdle      = "idle"
	StateRecording = "recording"
)

// 事件常量
const (
	EventStartTrip = "start_trip"
	EventStopTrip  = "stop_trip"
)

// Machine 录制状态机
// 只有 idle 和 recording 两个状态，没有暂停
type Machine struct {
	mu       sync.RWMutex
	fsm      *fsm.FSM
	since    time.Time
	onChange func(from, to string)
}

// NewMachine 创建状态机，初始为 idle
func NewMachine(onChange func(from, to string)) *Machine {
	m := &Machine{
		since:    time.Now(),
		onChange: onChange,
	}

	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventStartTrip, Src: []string{StateIdle}, Dst: StateRecording},
			{Name: EventStopTrip, Src: []string{StateRecording}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onChange != nil && e.Src != e.Dst {
					m.onChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// Current 获取当前状态
func (m *Machine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// Recording 是否正在录制
func (m *Machine) Recording() bool {
	return m.Current() == StateRecording
}

// Since 当前状态的起始时间
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Trigger 触发事件
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.since = time.Now()
	return nil
}

// Can 检查是否可以转换
func (m *Machine) Can(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}
