package admission

import "time"

const (
	testWait = 2 * time.Second
	testTick = time.Millisecond
)
