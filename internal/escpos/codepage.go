package escpos

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// CodePage pairs a printer character table with its charmap.
type CodePage struct {
	Name  string
	Table byte // n in ESC t n
	cm    *charmap.Charmap
}

var codePages = map[string]CodePage{
	"cp437":       {Name: "cp437", Table: 0, cm: charmap.CodePage437},
	"cp850":       {Name: "cp850", Table: 2, cm: charmap.CodePage850},
	"cp858":       {Name: "cp858", Table: 19, cm: charmap.CodePage858},
	"cp866":       {Name: "cp866", Table: 17, cm: charmap.CodePage866},
	"windows1252": {Name: "windows1252", Table: 16, cm: charmap.Windows1252},
}

// LookupCodePage resolves a code page name; unknown names resolve to cp437.
func LookupCodePage(name string) CodePage {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	if cp, ok := codePages[key]; ok {
		return cp
	}
	return codePages["cp437"]
}

// Encode converts s to the code page. Runes the table cannot represent become '?'.
func (cp CodePage) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		b, ok := cp.cm.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}
