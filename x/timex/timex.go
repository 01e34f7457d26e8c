package timex

import "time"

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// Ms is a free-running 32-bit millisecond counter, like an MCU millis().
// It wraps after ~49.7 days; compare instants only through Since.
type Ms uint32

// Since returns the milliseconds elapsed from then to now. Unsigned
// subtraction keeps the result correct across a single wrap.
func Since(now, then Ms) uint32 { return uint32(now - then) }

// Clock yields the current Ms reading.
type Clock interface {
	NowMs() Ms
}

// MonoClock counts milliseconds on the monotonic clock from its creation.
type MonoClock struct {
	start  time.Time
	offset Ms
}

// NewMonoClock starts a clock at offset; tests use a non-zero offset to
// exercise wrap-around.
func NewMonoClock(offset Ms) *MonoClock {
	return &MonoClock{start: time.Now(), offset: offset}
}

func (c *MonoClock) NowMs() Ms {
	return c.offset + Ms(uint32(time.Since(c.start).Milliseconds()))
}

// HMS renders a millisecond uptime as HH:MM:SS with hours modulo 24.
func HMS(ms uint32) string {
	s := ms / 1000
	h, m, sec := (s/3600)%24, (s/60)%60, s%60
	b := [8]byte{
		byte('0' + h/10), byte('0' + h%10), ':',
		byte('0' + m/10), byte('0' + m%10), ':',
		byte('0' + sec/10), byte('0' + sec%10),
	}
	return string(b[:])
}
