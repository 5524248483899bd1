package network

import (
	"context"
	"sync/atomic"
)

// State is a reachability snapshot.
type State struct {
	IsOnline               bool `json:"isOnline"`
	CloudServicesReachable bool `json:"cloudServicesReachable"`
	LocalServicesReachable bool `json:"localServicesReachable"`
}

// Monitor reports the current reachability snapshot.
type Monitor interface {
	State(ctx context.Context) State
}

// Online is the state of a fully connected host.
func Online() State {
	return State{IsOnline: true, CloudServicesReachable: true, LocalServicesReachable: true}
}

// StaticMonitor returns a fixed snapshot that can be swapped at runtime.
type StaticMonitor struct {
	state atomic.Pointer[State]
}

func NewStaticMonitor(state State) *StaticMonitor {
	m := &StaticMonitor{}
	m.Set(state)
	return m
}

func (m *StaticMonitor) Set(state State) {
	m.state.Store(&state)
}

func (m *StaticMonitor) State(context.Context) State {
	if s := m.state.Load(); s != nil {
		return *s
	}
	return State{}
}
