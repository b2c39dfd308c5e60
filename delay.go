package rfm69

import "time"

// realDelayer is the default Delayer, backed by time.Sleep.
type realDelayer struct{}

func (realDelayer) DelayMs(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (realDelayer) DelayUs(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
