package view

import "time"

type Timer interface {
	Stop() bool
}

// Clock schedules the expiry callbacks of the highlight scheduler.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type runtimeClock struct{}

func (runtimeClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RuntimeClock is backed by time.AfterFunc.
var RuntimeClock Clock = runtimeClock{}
