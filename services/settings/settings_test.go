package settings

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampctl-go/errcode"
)

func f64(v float64) *float64 { return &v }

func TestDefaults(t *testing.T) {
	assert.Equal(t, Settings{
		HoldTimeSeconds:    30,
		MinBatteryVoltage:  11.5,
		AudioThreshold:     1.0,
		FanStartTemp:       35,
		WarnTemp:           60,
		MaxTemp:            80,
		CoolStopTemp:       45,
		RelaySwitchDelayMs: 4000,
	}, Defaults())
}

func TestFactory_DiffersOnlyInHoldAndBattery(t *testing.T) {
	want := Defaults()
	want.HoldTimeSeconds = 60
	want.MinBatteryVoltage = 12.0
	assert.Equal(t, want, Factory())
}

func TestNormalize_ReplacesInvalidValues(t *testing.T) {
	raw := &Raw{
		HoldTimeSeconds:    f64(3),          // below min
		MinBatteryVoltage:  f64(12.5),       // ok
		AudioThreshold:     f64(math.NaN()), // NaN
		MaxTemp:            f64(101),        // above max
		RelaySwitchDelayMs: f64(250.5),      // not integral
		CoolStopTemp:       f64(40),
	}
	s, fixed := Normalize(raw)

	assert.EqualValues(t, 30, s.HoldTimeSeconds)
	assert.Equal(t, 12.5, s.MinBatteryVoltage)
	assert.Equal(t, 1.0, s.AudioThreshold)
	assert.Equal(t, 80.0, s.MaxTemp)
	assert.EqualValues(t, 4000, s.RelaySwitchDelayMs)
	assert.Equal(t, 40.0, s.CoolStopTemp)
	assert.Equal(t, 35.0, s.FanStartTemp, "missing value takes default")
	assert.ElementsMatch(t, []string{"hold", "audio", "max", "delay"}, fixed)
}

func TestNormalize_Nil(t *testing.T) {
	s, fixed := Normalize(nil)
	assert.Equal(t, Defaults(), s)
	assert.Empty(t, fixed)
}

func TestConfigStore_SetValidates(t *testing.T) {
	c := NewConfigStore(nil)

	require.NoError(t, c.SetHoldTime(120))
	assert.EqualValues(t, 120, c.Current().HoldTimeSeconds)

	err := c.SetHoldTime(4)
	assert.Equal(t, errcode.OutOfRange, errcode.Of(err))
	assert.EqualValues(t, 120, c.Current().HoldTimeSeconds, "rejected value leaves state unchanged")

	assert.Equal(t, errcode.OutOfRange, errcode.Of(c.SetMaxTemp(math.NaN())))
	assert.Equal(t, errcode.UnknownCommand, errcode.Of(c.Set("volume", 3)))

	require.NoError(t, c.SetText("battery", " 12.25 "))
	assert.Equal(t, 12.25, c.Current().MinBatteryVoltage)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(c.SetText("battery", "high")))
	assert.Equal(t, errcode.OutOfRange, errcode.Of(c.SetText("delay", "99")))

	require.NoError(t, c.SetRelaySwitchDelay(100))
	require.NoError(t, c.SetAudioThreshold(0.1))
	require.NoError(t, c.SetFanStartTemp(30))
	require.NoError(t, c.SetWarnTemp(85))
	require.NoError(t, c.SetCoolStopTemp(70))
	require.NoError(t, c.SetMinBatteryVoltage(15))
}

func TestConfigStore_ApplyCommitsTogether(t *testing.T) {
	c := NewConfigStore(nil)

	require.Empty(t, c.Apply(map[string]string{"hold": "45", "delay": " 250 "}))
	assert.EqualValues(t, 45, c.Current().HoldTimeSeconds)
	assert.EqualValues(t, 250, c.Current().RelaySwitchDelayMs)

	errs := c.Apply(map[string]string{"hold": "90", "battery": "20", "audio": "loud", "volume": "3"})
	require.Len(t, errs, 3)
	assert.Equal(t, errcode.OutOfRange, errcode.Of(errs[0]), "battery, in field order")
	assert.Equal(t, errcode.InvalidParams, errcode.Of(errs[1]), "audio")
	assert.Equal(t, errcode.UnknownCommand, errcode.Of(errs[2]), "unknown keys last")
	assert.EqualValues(t, 45, c.Current().HoldTimeSeconds, "valid pairs are not applied alone")

	require.Empty(t, c.Apply(nil))
	assert.EqualValues(t, 45, c.Current().HoldTimeSeconds)
}

func TestConfigStore_ApplyIsNeverSeenHalfDone(t *testing.T) {
	c := NewConfigStore(nil)
	pairs := []map[string]string{
		{"hold": "10", "delay": "200"},
		{"hold": "20", "delay": "300"},
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			c.Apply(pairs[i%2])
		}
	}()

	for range 2000 {
		cur := c.Current()
		switch {
		case cur.HoldTimeSeconds == 30 && cur.RelaySwitchDelayMs == 4000:
		case cur.HoldTimeSeconds == 10 && cur.RelaySwitchDelayMs == 200:
		case cur.HoldTimeSeconds == 20 && cur.RelaySwitchDelayMs == 300:
		default:
			close(stop)
			wg.Wait()
			t.Fatalf("half-applied settings: hold=%d delay=%d", cur.HoldTimeSeconds, cur.RelaySwitchDelayMs)
		}
	}
	close(stop)
	wg.Wait()
}

func TestConfigStore_SaveIsExplicit(t *testing.T) {
	mem := &MemStore{}
	c := NewConfigStore(mem)
	require.NoError(t, c.SetWarnTemp(70))

	raw, err := mem.Load()
	require.NoError(t, err)
	assert.Nil(t, raw, "setters do not persist")

	require.NoError(t, c.Save())
	other := NewConfigStore(mem)
	_, err = other.Load()
	require.NoError(t, err)
	assert.Equal(t, 70.0, other.Current().WarnTemp)
}

func TestConfigStore_ResetToDefaults(t *testing.T) {
	c := NewConfigStore(nil)
	require.NoError(t, c.SetHoldTime(500))
	c.ResetToDefaults()
	assert.Equal(t, Factory(), c.Current())
}

type failingStore struct{}

func (failingStore) Load() (*Raw, error) { return nil, errors.New("corrupt") }
func (failingStore) Save(Raw) error      { return errors.New("read-only") }

func TestConfigStore_StoreErrors(t *testing.T) {
	c := NewConfigStore(failingStore{})
	require.NoError(t, c.SetHoldTime(200))

	_, err := c.Load()
	assert.Equal(t, errcode.StoreFailed, errcode.Of(err))
	assert.Equal(t, Defaults(), c.Current())

	assert.Equal(t, errcode.StoreFailed, errcode.Of(c.Save()))
}

func TestYAMLStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	st := NewYAMLStore(path)

	raw, err := st.Load()
	require.NoError(t, err)
	assert.Nil(t, raw)

	c := NewConfigStore(st)
	require.NoError(t, c.SetCoolStopTemp(50))
	require.NoError(t, c.Save())

	c2 := NewConfigStore(st)
	fixed, err := c2.Load()
	require.NoError(t, err)
	assert.Empty(t, fixed)
	assert.Equal(t, c.Current(), c2.Current())
}

func TestYAMLStore_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hold_time_s: 90\nmax_temp_c: 300\n"), 0o644))

	c := NewConfigStore(NewYAMLStore(path))
	fixed, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"max"}, fixed)
	assert.EqualValues(t, 90, c.Current().HoldTimeSeconds)
	assert.Equal(t, 80.0, c.Current().MaxTemp)
}

func TestYAMLStore_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hold_time_s: [oops"), 0o644))

	c := NewConfigStore(NewYAMLStore(path))
	_, err := c.Load()
	assert.Error(t, err)
	assert.Equal(t, Defaults(), c.Current())
}

func TestFormatValue(t *testing.T) {
	hold, _ := Lookup("hold")
	audio, _ := Lookup("audio")
	assert.Equal(t, "30", FormatValue(hold, 30))
	assert.Equal(t, "0.5", FormatValue(audio, 0.5))
}
