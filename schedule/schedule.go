/*
schedule.go - Schedule configurations and shift resolution

PURPOSE:
  Models a project's working-hours configuration as a tagged variant and
  answers the two questions the engine keeps asking:
    1. Which shift does an entry time belong to? (Classify)
    2. What is the expected working window for a mark? (ResolveWindow)

VARIANTS:
  Continuous: one start/end window for the whole day
  Shifts:     morning and/or afternoon windows, any subset configured,
              plus an optional general window used for "special" entries

CLASSIFICATION:
  Windows are inclusive on both ends. Morning is checked first; morning and
  afternoon are not expected to overlap (a configuration concern, not
  validated here beyond first-match-wins). Entries matching neither window
  are "special". Continuous mode never classifies.

SEE ALSO:
  - hours.go: Uses ResolveWindow output to split normal/overtime
  - attendance/marks.go: Classifies on entry, resolves on exit
*/
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// SHIFT
// =============================================================================

// Shift names the work window a mark was classified into.
type Shift string

const (
	ShiftNone      Shift = ""          // continuous mode, no classification
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftSpecial   Shift = "special"   // shifts mode, entry outside both windows
)

// =============================================================================
// WINDOW
// =============================================================================

// Window is an expected working interval. End at or before Start means the
// window crosses midnight.
type Window struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether t falls inside the window, inclusive.
// Only same-day windows are classified; rollover windows are handled by the
// hour arithmetic, not by classification.
func (w Window) Contains(t TimeOfDay) bool {
	return t.AfterOrEqual(w.Start) && t.BeforeOrEqual(w.End)
}

// =============================================================================
// CONFIG VARIANTS
// =============================================================================

// Config is a project's schedule configuration. Exactly two concrete types
// implement it: Continuous and Shifts.
type Config interface {
	// Validate reports whether the configuration is complete enough for
	// attendance mode to be enabled.
	Validate() error

	scheduleConfig()
}

// Continuous is a single daily window.
type Continuous struct {
	Window Window
}

func (Continuous) scheduleConfig() {}

func (c Continuous) Validate() error {
	if c.Window.Start == c.Window.End {
		return errors.New("continuous schedule requires a non-empty working window")
	}
	return nil
}

// Shifts is a morning/afternoon configuration. Either shift may be absent.
// General, when set, is the fallback window for special-shift marks.
type Shifts struct {
	Morning   *Window
	Afternoon *Window
	General   *Window
}

func (Shifts) scheduleConfig() {}

func (s Shifts) Validate() error {
	if s.Morning == nil && s.Afternoon == nil {
		return errors.New("shift schedule requires at least one configured shift")
	}
	return nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveWindow returns the expected working window for a mark.
// Continuous mode ignores the shift hint. In shifts mode the named shift's
// window is returned; special or unclassified marks fall back to the general
// window. ok is false when no window is configured for the shift, in which
// case no overtime is computable.
func ResolveWindow(cfg Config, shift Shift) (Window, bool) {
	switch c := cfg.(type) {
	case Continuous:
		return c.Window, true
	case Shifts:
		switch shift {
		case ShiftMorning:
			if c.Morning != nil {
				return *c.Morning, true
			}
		case ShiftAfternoon:
			if c.Afternoon != nil {
				return *c.Afternoon, true
			}
		}
		if c.General != nil {
			return *c.General, true
		}
	}
	return Window{}, false
}

// ClosingTime returns the hour at which a mark of the given shift should be
// force-closed. ok is false when the schedule has no resolvable closing time.
func ClosingTime(cfg Config, shift Shift) (TimeOfDay, bool) {
	win, ok := ResolveWindow(cfg, shift)
	if !ok {
		return 0, false
	}
	return win.End, true
}

// Classify determines the shift an entry time belongs to. Continuous mode
// always returns ShiftNone. In shifts mode the first matching window wins;
// entries outside both are ShiftSpecial.
func Classify(cfg Config, entry TimeOfDay) Shift {
	s, ok := cfg.(Shifts)
	if !ok {
		return ShiftNone
	}
	if s.Morning != nil && s.Morning.Contains(entry) {
		return ShiftMorning
	}
	if s.Afternoon != nil && s.Afternoon.Contains(entry) {
		return ShiftAfternoon
	}
	return ShiftSpecial
}

// =============================================================================
// CONFIG CODEC - JSON representation for storage and API
// =============================================================================

// ConfigJSON is the wire/storage form of a Config.
type ConfigJSON struct {
	Mode           string `json:"mode"` // "continuous" | "shifts"
	Start          string `json:"start,omitempty"`
	End            string `json:"end,omitempty"`
	MorningStart   string `json:"morning_start,omitempty"`
	MorningEnd     string `json:"morning_end,omitempty"`
	AfternoonStart string `json:"afternoon_start,omitempty"`
	AfternoonEnd   string `json:"afternoon_end,omitempty"`
	GeneralStart   string `json:"general_start,omitempty"`
	GeneralEnd     string `json:"general_end,omitempty"`
}

// EncodeConfig serializes a Config for storage.
func EncodeConfig(cfg Config) ([]byte, error) {
	var j ConfigJSON
	switch c := cfg.(type) {
	case Continuous:
		j.Mode = "continuous"
		j.Start = c.Window.Start.String()
		j.End = c.Window.End.String()
	case Shifts:
		j.Mode = "shifts"
		if c.Morning != nil {
			j.MorningStart = c.Morning.Start.String()
			j.MorningEnd = c.Morning.End.String()
		}
		if c.Afternoon != nil {
			j.AfternoonStart = c.Afternoon.Start.String()
			j.AfternoonEnd = c.Afternoon.End.String()
		}
		if c.General != nil {
			j.GeneralStart = c.General.Start.String()
			j.GeneralEnd = c.General.End.String()
		}
	default:
		return nil, fmt.Errorf("unknown schedule config type %T", cfg)
	}
	return json.Marshal(j)
}

// DecodeConfig parses a stored Config.
func DecodeConfig(data []byte) (Config, error) {
	var j ConfigJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("invalid schedule config: %w", err)
	}
	return j.ToConfig()
}

// ToConfig converts the wire form into the tagged variant.
func (j ConfigJSON) ToConfig() (Config, error) {
	parseWindow := func(start, end string) (*Window, error) {
		if start == "" || end == "" {
			return nil, nil
		}
		s, err := ParseTimeOfDay(start)
		if err != nil {
			return nil, err
		}
		e, err := ParseTimeOfDay(end)
		if err != nil {
			return nil, err
		}
		return &Window{Start: s, End: e}, nil
	}

	switch j.Mode {
	case "continuous":
		w, err := parseWindow(j.Start, j.End)
		if err != nil {
			return nil, err
		}
		if w == nil {
			return nil, errors.New("continuous schedule requires start and end")
		}
		return Continuous{Window: *w}, nil
	case "shifts":
		morning, err := parseWindow(j.MorningStart, j.MorningEnd)
		if err != nil {
			return nil, err
		}
		afternoon, err := parseWindow(j.AfternoonStart, j.AfternoonEnd)
		if err != nil {
			return nil, err
		}
		general, err := parseWindow(j.GeneralStart, j.GeneralEnd)
		if err != nil {
			return nil, err
		}
		return Shifts{Morning: morning, Afternoon: afternoon, General: general}, nil
	default:
		return nil, fmt.Errorf("unknown schedule mode %q", j.Mode)
	}
}

// FromConfig converts a Config into its wire form.
func FromConfig(cfg Config) ConfigJSON {
	data, _ := EncodeConfig(cfg)
	var j ConfigJSON
	_ = json.Unmarshal(data, &j)
	return j
}
