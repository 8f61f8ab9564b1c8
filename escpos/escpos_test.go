package escpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestPage(t *testing.T) {
	want := []byte{
		0x1b, 0x40, // Initialize printer
		0x1b, 0x61, 0x01, // Center align
		0x1b, 0x21, 0x30, // Double width and height
		'T', 'E', 'S', 'T', 0x0a,
		0x1b, 0x21, 0x00, // Normal size
		'P', 'r', 'i', 'n', 't', 'e', 'r', 0x0a,
		0x1b, 0x61, 0x00, // Left align
		0x0a, 0x0a, 0x0a,
		0x1d, 0x56, 0x01, // Partial cut
	}

	assert.Equal(t, want, TestPage())
	// Every call returns a fresh slice
	page := TestPage()
	page[0] = 0
	assert.Equal(t, want, TestPage())
}

func TestBuilder(t *testing.T) {
	testCases := []struct {
		name  string
		build func(b *Builder)
		want  []byte
	}{
		{"Init", func(b *Builder) { b.Init() }, []byte{ESC, '@'}},
		{"AlignCenter", func(b *Builder) { b.Align(AlignCenter) }, []byte{ESC, 'a', 1}},
		{"AlignLeft", func(b *Builder) { b.Align(AlignLeft) }, []byte{ESC, 'a', 0}},
		{"ModeDoubleSize", func(b *Builder) { b.Mode(ModeDoubleHeight | ModeDoubleWidth) }, []byte{ESC, '!', 0x30}},
		{"ModeNormal", func(b *Builder) { b.Mode(ModeNormal) }, []byte{ESC, '!', 0}},
		{"Line", func(b *Builder) { b.Line("ok") }, []byte{'o', 'k', LF}},
		{"LineEmpty", func(b *Builder) { b.Line("") }, []byte{LF}},
		{"FeedZero", func(b *Builder) { b.Feed(0) }, nil},
		{"FeedTwo", func(b *Builder) { b.Feed(2) }, []byte{LF, LF}},
		{"CutPartial", func(b *Builder) { b.Cut(CutPartial) }, []byte{GS, 'V', 1}},
		{"Chained", func(b *Builder) { b.Init().Line("a").Cut(CutPartial) }, []byte{ESC, '@', 'a', LF, GS, 'V', 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var b Builder
			tc.build(&b)
			assert.Equal(t, tc.want, b.Bytes())
		})
	}
}
