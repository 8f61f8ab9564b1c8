// Package escpos builds ESC/POS command sequences for receipt printers.
//
// Only the handful of commands needed to compose simple pages are covered; callers that need
// more send pre-rendered bytes instead.
package escpos

// Control codes
const (
	LF  = 0x0A
	ESC = 0x1B
	GS  = 0x1D
)

// Align is a justification argument for ESC a
type Align byte

const (
	AlignLeft Align = iota
	AlignCenter
)

// Mode is a print mode bit set for ESC !
type Mode byte

const (
	ModeNormal       Mode = 0x00
	ModeDoubleHeight Mode = 0x10
	ModeDoubleWidth  Mode = 0x20
)

// Cut is the paper cut argument for GS V
type Cut byte

const CutPartial Cut = 0x01

// Builder accumulates a command sequence. The zero value is ready to use.
type Builder struct {
	buf []byte
}

// Init resets the printer (ESC @)
func (b *Builder) Init() *Builder {
	b.buf = append(b.buf, ESC, '@')
	return b
}

// Align sets justification (ESC a n)
func (b *Builder) Align(a Align) *Builder {
	b.buf = append(b.buf, ESC, 'a', byte(a))
	return b
}

// Mode selects print modes (ESC ! n)
func (b *Builder) Mode(m Mode) *Builder {
	b.buf = append(b.buf, ESC, '!', byte(m))
	return b
}

// Line appends s followed by a line feed
func (b *Builder) Line(s string) *Builder {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, LF)
	return b
}

// Feed appends n line feeds
func (b *Builder) Feed(n int) *Builder {
	for i := 0; i < n; i++ {
		b.buf = append(b.buf, LF)
	}
	return b
}

// Cut cuts the paper (GS V m)
func (b *Builder) Cut(c Cut) *Builder {
	b.buf = append(b.buf, GS, 'V', byte(c))
	return b
}

// Bytes returns a copy of the accumulated sequence
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf...)
}

// TestPage returns the self-test receipt: a double-size centred "TEST", a normal "Printer"
// line, three feeds and a partial cut.
func TestPage() []byte {
	var b Builder
	return b.Init().
		Align(AlignCenter).
		Mode(ModeDoubleHeight | ModeDoubleWidth).
		Line("TEST").
		Mode(ModeNormal).
		Line("Printer").
		Align(AlignLeft).
		Feed(3).
		Cut(CutPartial).
		Bytes()
}
