// Package keystroke models an answer field being typed into: the text, the
// cursor, and the debounced romaji conversion applied while the learner
// types.
package keystroke

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/japaniel/kotoba/pkg/debounce"
	"github.com/japaniel/kotoba/pkg/quiz"
)

// Logger receives debug output. It is silent by default.
var Logger = zerolog.Nop()

// Field is one answer input. Edits are applied immediately; conversion runs
// once typing pauses for the debounce delay, or on Commit.
type Field struct {
	mu     sync.Mutex
	mode   quiz.InputMode
	pref   quiz.OutputPreference
	norm   *quiz.Normalizer
	value  []rune
	cursor int
	rev    uint64
	deb    *debounce.Debouncer[uint64]

	// OnChange is called after a conversion changed the value.
	OnChange func(value string, cursor int)
}

// NewField returns an empty field for mode.
func NewField(n *quiz.Normalizer, mode quiz.InputMode, pref quiz.OutputPreference, delay time.Duration) *Field {
	f := &Field{mode: mode, pref: pref, norm: n}
	f.deb = debounce.New(delay, f.convert)
	return f
}

// Mode returns the input mode of the field.
func (f *Field) Mode() quiz.InputMode {
	return f.mode
}

// Insert types s at the cursor.
func (f *Field) Insert(s string) {
	f.mu.Lock()
	r := []rune(s)
	v := make([]rune, 0, len(f.value)+len(r))
	v = append(v, f.value[:f.cursor]...)
	v = append(v, r...)
	v = append(v, f.value[f.cursor:]...)
	f.value = v
	f.cursor += len(r)
	rev := f.touch()
	f.mu.Unlock()
	f.schedule(rev)
}

// Backspace deletes the rune before the cursor.
func (f *Field) Backspace() {
	f.mu.Lock()
	if f.cursor == 0 {
		f.mu.Unlock()
		return
	}
	f.value = append(f.value[:f.cursor-1], f.value[f.cursor:]...)
	f.cursor--
	rev := f.touch()
	f.mu.Unlock()
	f.schedule(rev)
}

// MoveCursor places the cursor at rune offset pos, clamped to the value.
func (f *Field) MoveCursor(pos int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = max(0, min(pos, len(f.value)))
}

// Value returns the current text.
func (f *Field) Value() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.value)
}

// Cursor returns the cursor as a rune offset.
func (f *Field) Cursor() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor
}

// Commit applies any pending conversion and returns the final value.
func (f *Field) Commit() string {
	f.deb.Flush()
	return f.Value()
}

// Close drops any pending conversion.
func (f *Field) Close() {
	f.deb.Stop()
}

// touch assumes f.mu is held.
func (f *Field) touch() uint64 {
	f.rev++
	return f.rev
}

func (f *Field) schedule(rev uint64) {
	if err := f.deb.Trigger(rev); err != nil {
		Logger.Debug().Err(err).Str("mode", string(f.mode)).Msg("field closed, edit not converted")
	}
}

func (f *Field) convert(rev uint64) {
	f.mu.Lock()
	if rev != f.rev {
		f.mu.Unlock()
		return
	}
	before := string(f.value)
	converted := []rune(f.norm.NormalizeField(before, f.mode, f.pref))
	if string(converted) == before {
		f.mu.Unlock()
		return
	}

	cursor := len(converted)
	if f.cursor < len(f.value) {
		prefix := f.norm.NormalizeField(string(f.value[:f.cursor]), f.mode, f.pref)
		cursor = min(len([]rune(prefix)), len(converted))
	}
	f.value, f.cursor = converted, cursor
	f.rev++
	onChange := f.OnChange
	f.mu.Unlock()

	Logger.Debug().Str("from", before).Str("to", string(converted)).Msg("converted field")
	if onChange != nil {
		onChange(string(converted), cursor)
	}
}
