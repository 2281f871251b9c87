package domain

import (
	"strings"
)

// Mode is a phase of experiment which the engine performs.
//
// Modes are independent flags. Any non-empty combination can be passed to the engine at once.
type Mode string

const (
	// start new explorations
	New Mode = "NEW"

	// continue explorations with more labels, writing into the same run indices
	Resume Mode = "RESUME"

	// evaluate metrics over finished runs
	Eval Mode = "EVAL"

	// average evaluation files for each metric
	Average Mode = "AVERAGE"
)

func (m Mode) String() string {
	return string(m)
}

func (m Mode) IsKnown() bool {
	switch m {
	case New, Resume, Eval, Average:
		return true
	default:
		return false
	}
}

// ReadOnly tells the mode only reads artifacts the engine already wrote.
func (m Mode) ReadOnly() bool {
	return m == Eval || m == Average
}

// NeedsRuns tells the mode works on existing run indices.
func (m Mode) NeedsRuns() bool {
	return m == Resume || m == Eval
}

// AsMode parses s as Mode. Case insensitive.
func AsMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if m.IsKnown() {
		return m, nil
	}
	return m, NewConfigError(ErrUnsupportedValue, "mode", s, "one of NEW, RESUME, EVAL, AVERAGE")
}

// Modes is a set of Mode, in the order of New, Resume, Eval, Average.
type Modes []Mode

// AsModes parses each strings as Mode.
//
// Duplicated modes are merged. It is error if no modes are given.
func AsModes(ss []string) (Modes, error) {
	seen := map[Mode]struct{}{}
	for _, s := range ss {
		m, err := AsMode(s)
		if err != nil {
			return nil, err
		}
		seen[m] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, NewConfigError(ErrOutOfRange, "modes", nil, "at least one mode is required")
	}

	ret := Modes{}
	for _, m := range []Mode{New, Resume, Eval, Average} {
		if _, ok := seen[m]; ok {
			ret = append(ret, m)
		}
	}
	return ret, nil
}

func (ms Modes) Has(m Mode) bool {
	for _, mm := range ms {
		if mm == m {
			return true
		}
	}
	return false
}

// Evaluates tells metrics are in use with these modes.
func (ms Modes) Evaluates() bool {
	return ms.Has(Eval) || ms.Has(Average)
}

// NeedsRuns tells any of modes works on existing run indices.
func (ms Modes) NeedsRuns() bool {
	for _, m := range ms {
		if m.NeedsRuns() {
			return true
		}
	}
	return false
}

func (ms Modes) Strings() []string {
	ret := make([]string, len(ms))
	for i, m := range ms {
		ret[i] = m.String()
	}
	return ret
}

func (ms Modes) String() string {
	return strings.Join(ms.Strings(), " ")
}

