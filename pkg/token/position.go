package token

// Span is a half-open byte range [Start, End) in a notation string.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// IsValid returns true if the span is non-empty and well ordered.
func (s Span) IsValid() bool {
	return s.Start >= 0 && s.End > s.Start
}
