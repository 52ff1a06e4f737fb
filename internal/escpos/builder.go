package escpos

import "bytes"

// Builder accumulates commands and encoded text into a single buffer.
// Commands are written verbatim, text goes through the code page.
type Builder struct {
	buf bytes.Buffer
	cp  CodePage
}

// NewBuilder returns a builder encoding text with cp.
func NewBuilder(cp CodePage) *Builder {
	return &Builder{cp: cp}
}

// Cmd appends raw commands.
func (b *Builder) Cmd(cmds ...string) *Builder {
	for _, c := range cmds {
		b.buf.WriteString(c)
	}
	return b
}

// Raw appends bytes untouched.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// Text appends encoded text without a line feed.
func (b *Builder) Text(s string) *Builder {
	b.buf.Write(b.cp.Encode(s))
	return b
}

// Line appends encoded text followed by a line feed.
func (b *Builder) Line(s string) *Builder {
	b.Text(s)
	b.buf.WriteString(FeedLine)
	return b
}

// Lines appends each entry as a line.
func (b *Builder) Lines(lines []string) *Builder {
	for _, l := range lines {
		b.Line(l)
	}
	return b
}

// Feed appends n empty lines.
func (b *Builder) Feed(n int) *Builder {
	for i := 0; i < n; i++ {
		b.buf.WriteString(FeedLine)
	}
	return b
}

// Len reports the number of bytes written so far.
func (b *Builder) Len() int { return b.buf.Len() }

// Bytes returns a copy of the assembled buffer.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}
