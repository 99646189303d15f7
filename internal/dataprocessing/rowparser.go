package dataprocessing

import (
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter is the field separator used by every reference dataset.
const DefaultDelimiter = ','

// ParseLine splits one raw line into trimmed, unquoted fields.
//
// On lines with balanced double quotes only delimiters outside quotes split
// fields, so a quoted field may carry the delimiter and may be padded with
// spaces on either side. Lines with an odd number of quotes are split
// naively on the delimiter. The empty line yields a single empty field.
func ParseLine(line string, delim rune) []string {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return []string{""}
	}
	if !validDelimiter(delim) {
		delim = DefaultDelimiter
	}

	var fields []string
	if strings.Count(line, `"`)%2 == 0 {
		fields = splitQuoted(line, delim)
	} else {
		fields = strings.Split(line, string(delim))
	}

	for i, f := range fields {
		fields[i] = cleanField(f)
	}
	return fields
}

// splitQuoted cuts line at every delimiter that sits outside a quoted run.
// A doubled quote inside a quoted field closes and reopens the run, which
// leaves the split points unchanged.
func splitQuoted(line string, delim rune) []string {
	var fields []string
	inQuotes := false
	start := 0
	for i, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, line[start:i])
			start = i + utf8.RuneLen(r)
		}
	}
	return append(fields, line[start:])
}

func cleanField(f string) string {
	return strings.TrimSpace(strings.ReplaceAll(f, `"`, ""))
}

func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && r != 0xFFFD
}
