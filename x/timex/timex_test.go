package timex

import "testing"

func TestSinceWraps(t *testing.T) {
	then := Ms(0xFFFF_FF00)
	now := then + 0x200 // wraps past zero
	if got := Since(now, then); got != 0x200 {
		t.Fatalf("Since across wrap = %d, want %d", got, 0x200)
	}
	if got := Since(1500, 500); got != 1000 {
		t.Fatalf("Since = %d", got)
	}
}

func TestHMS(t *testing.T) {
	cases := map[uint32]string{
		0:          "00:00:00",
		61_000:     "00:01:01",
		3_723_000:  "01:02:03",
		90_000_000: "01:00:00", // 25h wraps to 01
	}
	for in, want := range cases {
		if got := HMS(in); got != want {
			t.Errorf("HMS(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestMonoClockOffset(t *testing.T) {
	c := NewMonoClock(1000)
	if now := c.NowMs(); now < 1000 {
		t.Fatalf("NowMs() = %d, expected >= offset", now)
	}
}

func TestPeriodFromHz(t *testing.T) {
	if got := PeriodFromHz(25_000); got != 40_000 {
		t.Fatalf("PeriodFromHz(25k) = %d", got)
	}
	if got := PeriodFromHz(0); got != 1_000_000_000 {
		t.Fatalf("PeriodFromHz(0) = %d", got)
	}
}
