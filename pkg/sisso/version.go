package sisso

import (
	"strconv"
	"strings"
)

// FormatMajor is the solver major version whose report layout the parser
// follows.
const FormatMajor = 3

// Version is the solver version printed in the report header.
type Version struct {
	Header     string
	Components []int
}

// ParseVersion decodes a header line such as
// "Version SISSO.3.0.2, June, 2019." into its numeric components. Decoding
// stops at the first component that is not an integer, so "SISSO.3.1-beta"
// yields [3]; the header itself is always kept.
func ParseVersion(line string) *Version {
	v := &Version{Header: strings.TrimSpace(line)}
	first, _, _ := strings.Cut(line, ",")
	parts := strings.Split(first, ".")
	for _, part := range parts[1:] {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			break
		}
		v.Components = append(v.Components, n)
	}
	return v
}

// Compatible reports whether the header names a solver release with the
// layout the parser follows. A header without components is assumed to.
func (v *Version) Compatible() bool {
	return len(v.Components) == 0 || v.Components[0] == FormatMajor
}

// String returns the dotted version number, e.g. "3.0.2".
func (v *Version) String() string {
	parts := make([]string, len(v.Components))
	for i, c := range v.Components {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

func headerLine(text string) (string, error) {
	lines := strings.SplitN(text, "\n", 4)
	if len(lines) < 3 {
		return "", parseErrorf(SectionVersion, ErrShortHeader, len(lines))
	}
	return lines[2], nil
}
