package qrcode

import (
	"errors"
	"fmt"
	"regexp"
)

// Kind identifies what a scanned code refers to.
type Kind string

// Kind constants. The discriminator character in the code maps directly
// onto these: 'D' for a device, 'R' for a room.
const (
	KindDevice Kind = "device"
	KindRoom   Kind = "room"
)

// ErrInvalidCode is returned when a raw string is not a valid inventory
// QR code. Scanners re-decode ambient text all the time; callers treat
// this as "not ours" and drop the scan without side effects.
var ErrInvalidCode = errors.New("qrcode: invalid code")

// Code is a successfully parsed scanned code.
// A Code is only ever produced by Parser.Parse; a malformed raw string
// produces an error, never a partially populated Code.
type Code struct {
	// Raw is the original scanned string.
	Raw string

	// Kind says whether the code references a device or a room.
	Kind Kind

	// ID is the canonical UUID with prefix and discriminator stripped.
	ID string
}

// uuidPattern matches a canonical lowercase UUID, versions 1 through 5.
const uuidPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}`

// Parser validates and decodes raw scanned strings.
//
// A valid code is the literal prefix, one discriminator character
// ('D' or 'R'), and a canonical UUID, with nothing before or after:
//
//	DLCDBDb4119e6a-2147-4ff7-9d8a-754995c62d9c
//
// Parse is a pure function: no side effects, stable for identical input
// across repeated calls. The continuous scan loop re-decodes the same
// physical code several times per second and relies on that.
type Parser struct {
	prefix string
	re     *regexp.Regexp
}

// NewParser creates a Parser for codes carrying the given literal prefix.
func NewParser(prefix string) (*Parser, error) {
	if prefix == "" {
		return nil, fmt.Errorf("qrcode: prefix must not be empty")
	}
	re, err := regexp.Compile(`^` + regexp.QuoteMeta(prefix) + `([RD])(` + uuidPattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("qrcode: compiling code pattern: %w", err)
	}
	return &Parser{prefix: prefix, re: re}, nil
}

// Prefix returns the literal prefix this parser accepts.
func (p *Parser) Prefix() string {
	return p.prefix
}

// Parse validates raw and decodes it into a Code.
// Any deviation from the fixed structural pattern yields ErrInvalidCode.
func (p *Parser) Parse(raw string) (Code, error) {
	m := p.re.FindStringSubmatch(raw)
	if m == nil {
		return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}

	code := Code{
		Raw: raw,
		ID:  m[2],
	}
	switch m[1] {
	case "D":
		code.Kind = KindDevice
	case "R":
		code.Kind = KindRoom
	}
	return code, nil
}
