package platoon

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.MaxPlatoonGap != 15 || c.CatchupDist != 50 || c.ControlRate != 1 || c.SplitCountdownDuration() != 3*time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestConfigExplicitZeroCountdown(t *testing.T) {
	c := Config{SplitCountdown: Seconds(0)}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("zero countdown rejected: %v", err)
	}
	if d := c.SplitCountdownDuration(); d != 0 {
		t.Fatalf("expected immediate split, got %v", d)
	}
}

func TestConfigValidate(t *testing.T) {
	base := testConfig()
	cases := map[string]func(*Config){
		"gap":        func(c *Config) { c.MaxPlatoonGap = -1 },
		"catchup":    func(c *Config) { c.CatchupDist = 5 },
		"rate":       func(c *Config) { c.ControlRate = -2 },
		"countdown":  func(c *Config) { c.SplitCountdown = Seconds(-1) },
		"mode name":  func(c *Config) { c.VehicleTypes = map[string]map[string]ModeParams{"car": {"cruise": {Decel: 4}}} },
		"decel":      func(c *Config) { c.VehicleTypes = map[string]map[string]ModeParams{"car": {"leader": {Decel: 0}}} },
		"tau":        func(c *Config) { c.VehicleTypes = map[string]map[string]ModeParams{"car": {"leader": {Decel: 3, Tau: -1}}} },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestControlIntervalClamped(t *testing.T) {
	c := Config{ControlRate: 2}
	if got := c.ControlInterval(100 * time.Millisecond); got != 500*time.Millisecond {
		t.Fatalf("expected 500ms got %s", got)
	}
	c.ControlRate = 100
	if got := c.ControlInterval(100 * time.Millisecond); got != 100*time.Millisecond {
		t.Fatalf("expected interval clamped to step, got %s", got)
	}
}

func TestSelector(t *testing.T) {
	if !(SubstringSelector{}).Select("anything") {
		t.Fatal("empty selector should match everything")
	}
	s := SubstringSelector{"truck", "bus"}
	if !s.Select("city_bus") || !s.Select("truck") {
		t.Fatal("expected match")
	}
	if s.Select("Bus") {
		t.Fatal("matching must be case-sensitive")
	}
	f := SelectorFunc(func(n string) bool { return n == "x" })
	if !f.Select("x") || f.Select("y") {
		t.Fatal("selector func")
	}
}
