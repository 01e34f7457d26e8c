package settings

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"ampctl-go/errcode"
)

// Store persists settings. Load returns nil, nil when nothing was saved.
type Store interface {
	Load() (*Raw, error)
	Save(Raw) error
}

// Reader is the read side used by the control loop.
type Reader interface {
	Current() Settings
}

// ConfigStore owns the live settings. Setters validate and change memory
// only; Save persists explicitly.
type ConfigStore struct {
	mu    sync.RWMutex
	cur   Settings
	store Store
}

// NewConfigStore starts with defaults. A nil store keeps settings in memory.
func NewConfigStore(store Store) *ConfigStore {
	if store == nil {
		store = &MemStore{}
	}
	return &ConfigStore{cur: Defaults(), store: store}
}

func (c *ConfigStore) Current() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Load reads the store. Invalid or missing values fall back to defaults and
// never fail; fixed lists the keys that were replaced. A store error leaves
// defaults in place and is returned for reporting.
func (c *ConfigStore) Load() (fixed []string, err error) {
	raw, err := c.store.Load()
	if err != nil {
		c.mu.Lock()
		c.cur = Defaults()
		c.mu.Unlock()
		return nil, errcode.Wrap(errcode.StoreFailed, "settings.load", err)
	}
	s, fixed := Normalize(raw)
	c.mu.Lock()
	c.cur = s
	c.mu.Unlock()
	return fixed, nil
}

func (c *ConfigStore) Save() error {
	s := c.Current()
	if err := c.store.Save(s.Raw()); err != nil {
		return errcode.Wrap(errcode.StoreFailed, "settings.save", err)
	}
	return nil
}

// ResetToDefaults applies the factory set in memory. Call Save to persist.
func (c *ConfigStore) ResetToDefaults() {
	c.mu.Lock()
	c.cur = Factory()
	c.mu.Unlock()
}

// Set validates v against the field's bounds.
func (c *ConfigStore) Set(key string, v float64) error {
	f, err := check(key, v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	f.set(&c.cur, v)
	c.mu.Unlock()
	return nil
}

// SetText parses text and calls Set.
func (c *ConfigStore) SetText(key, text string) error {
	v, err := parse(key, text)
	if err != nil {
		return err
	}
	return c.Set(key, v)
}

// Apply validates every key=text pair and commits them under one lock.
// When any pair is bad nothing changes and one error per bad pair is
// returned, known fields first in field order, then unknown keys sorted.
func (c *ConfigStore) Apply(values map[string]string) []error {
	type change struct {
		f Field
		v float64
	}
	var (
		changes []change
		errs    []error
		unknown []string
	)
	for _, f := range Fields {
		text, ok := values[f.Key]
		if !ok {
			continue
		}
		v, err := parse(f.Key, text)
		if err == nil {
			_, err = check(f.Key, v)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		changes = append(changes, change{f, v})
	}
	for k := range values {
		if _, ok := Lookup(k); !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		errs = append(errs, &errcode.E{C: errcode.UnknownCommand, Op: "settings.apply", Msg: k})
	}
	if len(errs) > 0 {
		return errs
	}

	c.mu.Lock()
	for _, ch := range changes {
		ch.f.set(&c.cur, ch.v)
	}
	c.mu.Unlock()
	return nil
}

func check(key string, v float64) (Field, error) {
	f, ok := Lookup(key)
	if !ok {
		return f, &errcode.E{C: errcode.UnknownCommand, Op: "settings.set", Msg: key}
	}
	if !f.InRange(v) {
		return f, &errcode.E{C: errcode.OutOfRange, Op: "settings.set", Msg: rangeMsg(f)}
	}
	return f, nil
}

func parse(key, text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "settings.set", Msg: key + "=" + text}
	}
	return v, nil
}

func (c *ConfigStore) SetHoldTime(seconds uint32) error { return c.Set("hold", float64(seconds)) }
func (c *ConfigStore) SetMinBatteryVoltage(v float64) error {
	return c.Set("battery", v)
}
func (c *ConfigStore) SetAudioThreshold(v float64) error { return c.Set("audio", v) }
func (c *ConfigStore) SetFanStartTemp(v float64) error   { return c.Set("fan_start", v) }
func (c *ConfigStore) SetWarnTemp(v float64) error       { return c.Set("warn", v) }
func (c *ConfigStore) SetMaxTemp(v float64) error        { return c.Set("max", v) }
func (c *ConfigStore) SetCoolStopTemp(v float64) error   { return c.Set("cool_stop", v) }
func (c *ConfigStore) SetRelaySwitchDelay(ms uint32) error {
	return c.Set("delay", float64(ms))
}

func rangeMsg(f Field) string {
	return f.Key + " must be within " + FormatValue(f, f.Min) + ".." + FormatValue(f, f.Max) + " " + f.Unit
}

// FormatValue renders v the way the field is edited.
func FormatValue(f Field, v float64) string {
	if f.Integer {
		return strconv.FormatUint(uint64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MemStore keeps the last saved value in memory.
type MemStore struct {
	mu  sync.Mutex
	raw *Raw
}

func (m *MemStore) Load() (*Raw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raw == nil {
		return nil, nil
	}
	cp := *m.raw
	return &cp, nil
}

func (m *MemStore) Save(r Raw) error {
	m.mu.Lock()
	m.raw = &r
	m.mu.Unlock()
	return nil
}

var (
	_ Store  = (*MemStore)(nil)
	_ Reader = (*ConfigStore)(nil)
)
