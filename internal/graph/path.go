package graph

import (
	"strconv"
	"strings"
)

// Segment is one step of an access path: either a field name or a list index.
type Segment struct {
	Field   string
	Index   int
	IsIndex bool
}

// Field returns a field-name segment.
func Field(name string) Segment { return Segment{Field: name} }

// Index returns a list-index segment.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

// Is reports whether s is the field segment with the given name.
func (s Segment) Is(name string) bool { return !s.IsIndex && s.Field == name }

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Field
}

// Path is the structural position of a node inside its file's raw tree,
// one segment per traversed field name or list index.
//
// Paths are compared segment-wise. Field names are never split, so a literal
// name containing "." or "[" cannot be confused with a deeper position.
type Path []Segment

// Append returns a new path with s added. The receiver is never aliased.
func (p Path) Append(s Segment) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = s
	return out
}

// Join returns a new path with every segment of q appended.
func (p Path) Join(q ...Segment) Path {
	out := make(Path, 0, len(p)+len(q))
	out = append(out, p...)
	return append(out, q...)
}

// Last returns the final segment, if any.
func (p Path) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// EndsWith reports whether the last segment is the named field.
func (p Path) EndsWith(field string) bool {
	s, ok := p.Last()
	return ok && s.Is(field)
}

// HasPrefix reports whether q is a (non-strict) prefix of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Equal reports segment-wise equality.
func (p Path) Equal(q Path) bool {
	return len(p) == len(q) && p.HasPrefix(q)
}

// HasField reports whether any segment is the named field.
func (p Path) HasField(name string) bool {
	for _, s := range p {
		if s.Is(name) {
			return true
		}
	}
	return false
}

// FieldRuns returns the start offset of every run of consecutive field
// segments equal to names.
func (p Path) FieldRuns(names ...string) []int {
	if len(names) == 0 {
		return nil
	}
	var out []int
	for i := 0; i+len(names) <= len(p); i++ {
		match := true
		for j, name := range names {
			if !p[i+j].Is(name) {
				match = false
				break
			}
		}
		if match {
			out = append(out, i)
		}
	}
	return out
}

// Key encodes the path into a string that is unique per path. Used for map lookups.
func (p Path) Key() string {
	var b strings.Builder
	for _, s := range p {
		if s.IsIndex {
			b.WriteByte('i')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(';')
			continue
		}
		b.WriteByte('f')
		b.WriteString(strconv.Itoa(len(s.Field)))
		b.WriteByte(':')
		b.WriteString(s.Field)
	}
	return b.String()
}

// String renders the path for display, e.g. "[0].fn.stmts[1].let.pat".
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.IsIndex {
			b.WriteString(s.String())
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Field)
	}
	return b.String()
}
