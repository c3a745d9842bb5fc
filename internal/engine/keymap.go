package engine

import (
	"strings"
	"sync"
	"unicode"
)

// Chord is a key plus modifiers. Mod is the platform command key (Ctrl or Cmd).
type Chord struct {
	Key   string
	Mod   bool
	Shift bool
	Alt   bool
}

// ParseChord reads chords written like "mod+shift+z", "delete" or "?".
// Key names are case-insensitive.
func ParseChord(s string) Chord {
	var c Chord
	parts := strings.Split(strings.ToLower(s), "+")
	// "mod++" binds the plus key.
	if strings.HasSuffix(s, "++") {
		parts = append(parts[:len(parts)-2], "+")
	}
	for i, p := range parts {
		if i == len(parts)-1 {
			c.Key = p
			break
		}
		switch p {
		case "mod", "ctrl", "cmd", "meta":
			c.Mod = true
		case "shift":
			c.Shift = true
		case "alt", "option":
			c.Alt = true
		}
	}
	return c
}

func (c Chord) String() string {
	var b strings.Builder
	if c.Mod {
		b.WriteString("mod+")
	}
	if c.Alt {
		b.WriteString("alt+")
	}
	if c.Shift {
		b.WriteString("shift+")
	}
	b.WriteString(c.Key)
	return b.String()
}

// KeyEvent is a key press as delivered by the host.
type KeyEvent struct {
	Key   string `json:"key"`
	Mod   bool   `json:"mod"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	// InTextInput is set while focus is in a text field.
	InTextInput bool `json:"inTextInput"`
}

// Chord drops Shift for punctuation keys, where it is already part of the
// character ("?" arrives as shift+/ on most layouts).
func (e KeyEvent) Chord() Chord {
	key := strings.ToLower(e.Key)
	shift := e.Shift
	if r := []rune(key); len(r) == 1 && !unicode.IsLetter(r[0]) && !unicode.IsDigit(r[0]) {
		shift = false
	}
	return Chord{Key: key, Mod: e.Mod, Shift: shift, Alt: e.Alt}
}

// Command is one entry of a binding set.
type Command struct {
	Chord string
	Run   func()
	// InTextInput lets the command fire while a text field has focus.
	InTextInput bool
}

type binding struct {
	id  int
	cmd Command
}

// CommandTable maps chords to callbacks. Bindings are scoped: each Bind
// returns a release function, and the most recent live binding for a chord
// wins until it is released.
type CommandTable struct {
	mu       sync.Mutex
	bindings map[Chord][]binding
	nextID   int
}

func NewCommandTable() *CommandTable {
	return &CommandTable{bindings: make(map[Chord][]binding)}
}

// Bind registers cmds and returns a function that removes exactly those
// bindings. Calling the release function more than once is harmless.
func (t *CommandTable) Bind(cmds ...Command) (release func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	type key struct {
		chord Chord
		id    int
	}
	var owned []key
	for _, cmd := range cmds {
		t.nextID++
		c := ParseChord(cmd.Chord)
		t.bindings[c] = append(t.bindings[c], binding{id: t.nextID, cmd: cmd})
		owned = append(owned, key{chord: c, id: t.nextID})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for _, k := range owned {
				list := t.bindings[k.chord]
				for i, b := range list {
					if b.id == k.id {
						list = append(list[:i:i], list[i+1:]...)
						break
					}
				}
				if len(list) == 0 {
					delete(t.bindings, k.chord)
				} else {
					t.bindings[k.chord] = list
				}
			}
		})
	}
}

// Dispatch runs the binding for ev, if any, and reports whether one ran.
func (t *CommandTable) Dispatch(ev KeyEvent) bool {
	t.mu.Lock()
	list := t.bindings[ev.Chord()]
	var cmd *Command
	if n := len(list); n > 0 {
		c := list[n-1].cmd
		cmd = &c
	}
	t.mu.Unlock()

	if cmd == nil || cmd.Run == nil {
		return false
	}
	if ev.InTextInput && !cmd.InTextInput {
		return false
	}
	cmd.Run()
	return true
}

// Bound lists the chords that currently have a binding.
func (t *CommandTable) Bound() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.bindings))
	for c := range t.bindings {
		out = append(out, c.String())
	}
	return out
}
