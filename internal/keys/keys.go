package keys

import (
	"errors"
	"fmt"
	"strings"
)

// Modifier is a bitmask of keyboard modifiers held during a keystroke.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModMeta
	ModAlt
	ModAltGraph
)

// modifierOrder fixes the order modifiers appear in descriptors.
var modifierOrder = []struct {
	mod  Modifier
	text string
	wire string
}{
	{ModCtrl, "Ctrl", "Control"},
	{ModAlt, "Alt", "Alt"},
	{ModAltGraph, "AltGraph", "Alt"},
	{ModShift, "Shift", "Shift"},
	{ModMeta, "Meta", "Super"},
}

// Code identifies a physical key. Letters and digits use their upper-case
// ASCII value; named keys live above the ASCII range.
type Code uint32

const (
	CodeNone Code = 0

	CodeBackspace Code = 0x08
	CodeTab       Code = 0x09
	CodeEnter     Code = 0x0a
	CodeEscape    Code = 0x1b
	CodeSpace     Code = 0x20

	CodeShift Code = 0x100 + iota
	CodeControl
	CodeAlt
	CodeMeta
	CodeAltGraph
	CodeDelete
	CodeInsert
	CodeHome
	CodeEnd
	CodePageUp
	CodePageDown
	CodeLeft
	CodeRight
	CodeUp
	CodeDown
	CodeF1
	CodeF2
	CodeF3
	CodeF4
	CodeF5
	CodeF6
	CodeF7
	CodeF8
	CodeF9
	CodeF10
	CodeF11
	CodeF12
)

var namedCodes = map[Code]string{
	CodeBackspace: "Backspace",
	CodeTab:       "Tab",
	CodeEnter:     "Enter",
	CodeEscape:    "Escape",
	CodeSpace:     "Space",
	CodeShift:     "Shift",
	CodeControl:   "Ctrl",
	CodeAlt:       "Alt",
	CodeMeta:      "Meta",
	CodeAltGraph:  "AltGraph",
	CodeDelete:    "Delete",
	CodeInsert:    "Insert",
	CodeHome:      "Home",
	CodeEnd:       "End",
	CodePageUp:    "PageUp",
	CodePageDown:  "PageDown",
	CodeLeft:      "Left",
	CodeRight:     "Right",
	CodeUp:        "Up",
	CodeDown:      "Down",
	CodeF1:        "F1",
	CodeF2:        "F2",
	CodeF3:        "F3",
	CodeF4:        "F4",
	CodeF5:        "F5",
	CodeF6:        "F6",
	CodeF7:        "F7",
	CodeF8:        "F8",
	CodeF9:        "F9",
	CodeF10:       "F10",
	CodeF11:       "F11",
	CodeF12:       "F12",
}

// wireNames maps named keys to the key names used by dbusmenu shortcuts.
var wireNames = map[Code]string{
	CodeBackspace: "BackSpace",
	CodeTab:       "Tab",
	CodeEnter:     "Return",
	CodeEscape:    "Escape",
	CodeSpace:     "space",
	CodeDelete:    "Delete",
	CodeInsert:    "Insert",
	CodeHome:      "Home",
	CodeEnd:       "End",
	CodePageUp:    "Page_Up",
	CodePageDown:  "Page_Down",
	CodeLeft:      "Left",
	CodeRight:     "Right",
	CodeUp:        "Up",
	CodeDown:      "Down",
}

// ErrInvalidDescriptor reports an accelerator string that cannot be parsed.
var ErrInvalidDescriptor = errors.New("invalid accelerator descriptor")

// Chord is a modifier set plus key code. The zero Chord means no accelerator.
type Chord struct {
	Modifiers Modifier
	Code      Code
}

// IsZero reports whether the chord carries no key.
func (c Chord) IsZero() bool {
	return c.Code == CodeNone
}

// String returns the normalized descriptor for the chord.
func (c Chord) String() string {
	return Descriptor(c.Modifiers, c.Code)
}

// IsModifier reports whether code is a modifier-only key.
func IsModifier(code Code) bool {
	switch code {
	case CodeShift, CodeControl, CodeAlt, CodeMeta, CodeAltGraph:
		return true
	default:
		return false
	}
}

// Name returns the display name of a key code.
func Name(code Code) string {
	if name, ok := namedCodes[code]; ok {
		return name
	}
	if code > CodeSpace && code < 0x7f {
		return strings.ToUpper(string(rune(code)))
	}
	return fmt.Sprintf("0x%x", uint32(code))
}

// Descriptor renders a modifier set and key code as a normalized string such
// as "Ctrl+Shift+Q". Equal chords always produce equal descriptors.
func Descriptor(mods Modifier, code Code) string {
	var b strings.Builder
	for _, m := range modifierOrder {
		if mods&m.mod == 0 {
			continue
		}
		b.WriteString(m.text)
		b.WriteByte('+')
	}
	b.WriteString(Name(code))
	return b.String()
}

// Parse converts a descriptor produced by Descriptor (or typed by hand, case
// insensitive, with "Control" accepted for "Ctrl") back into a Chord.
func Parse(raw string) (Chord, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Chord{}, nil
	}

	parts := strings.Split(trimmed, "+")
	var chord Chord
	for idx, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			return Chord{}, fmt.Errorf("%w: %q", ErrInvalidDescriptor, raw)
		}
		if idx < len(parts)-1 {
			mod, ok := parseModifier(token)
			if !ok {
				return Chord{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidDescriptor, token)
			}
			chord.Modifiers |= mod
			continue
		}
		code, ok := parseCode(token)
		if !ok {
			return Chord{}, fmt.Errorf("%w: unknown key %q", ErrInvalidDescriptor, token)
		}
		chord.Code = code
	}
	if IsModifier(chord.Code) {
		return Chord{}, fmt.Errorf("%w: %q has no non-modifier key", ErrInvalidDescriptor, raw)
	}
	return chord, nil
}

// Shortcut returns the dbusmenu wire form of a chord, for example
// ["Control", "q"]. A zero chord yields nil.
func Shortcut(c Chord) []string {
	if c.IsZero() {
		return nil
	}
	out := make([]string, 0, 4)
	for _, m := range modifierOrder {
		if c.Modifiers&m.mod != 0 {
			out = append(out, m.wire)
		}
	}
	switch {
	case wireNames[c.Code] != "":
		out = append(out, wireNames[c.Code])
	case c.Code > CodeSpace && c.Code < 0x7f:
		out = append(out, strings.ToLower(string(rune(c.Code))))
	default:
		out = append(out, Name(c.Code))
	}
	return out
}

func parseModifier(token string) (Modifier, bool) {
	switch strings.ToLower(token) {
	case "ctrl", "control":
		return ModCtrl, true
	case "shift":
		return ModShift, true
	case "alt":
		return ModAlt, true
	case "altgraph", "altgr":
		return ModAltGraph, true
	case "meta", "super", "cmd":
		return ModMeta, true
	default:
		return 0, false
	}
}

func parseCode(token string) (Code, bool) {
	for code, name := range namedCodes {
		if strings.EqualFold(name, token) {
			return code, true
		}
	}
	if len(token) == 1 {
		r := rune(strings.ToUpper(token)[0])
		if r > rune(CodeSpace) && r < 0x7f {
			return Code(r), true
		}
	}
	return CodeNone, false
}
