package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Compact lookup table for Morse code characters.
 *
 * Description:	Each printable character from space thru underscore
 *		has one byte in the primary table.
 *
 *		    7 6 5   4 3 2 1 0
 *		    count   elements
 *
 *		count 1..5 means the low "count" bits are the pattern,
 *		most significant used bit sent first, 1 for dah, 0 for dit.
 *
 *		count 0 means the low 5 bits are an index into the
 *		overflow table which holds the 6 element patterns.
 *
 *		count 7 is reserved for markers that are not patterns:
 *		word space and undefined.
 *
 *---------------------------------------------------------------*/

import (
	"strings"
)

type symbolEntry uint8

const (
	entryUndefined symbolEntry = 0xff
	entryWordSpace symbolEntry = 0xfe
)

// Overflow entries are always exactly this many elements long.
const overflowElements = 6

// The primary table covers this contiguous range of characters.
const (
	firstChar = ' '
	lastChar  = '_'
)

func overflow(index uint8) symbolEntry {
	return symbolEntry(index & 0x1f)
}

const undef = entryUndefined

var primaryTable = [lastChar - firstChar + 1]symbolEntry{
	entryWordSpace, // ' '
	overflow(0),    // ! -.-.--
	overflow(1),    // " .-..-.
	undef,          // #
	undef,          // $ has 7 elements
	undef,          // %
	5<<5 | 0b01000, // & .-...
	overflow(2),    // ' .----.
	5<<5 | 0b10110, // ( -.--.
	overflow(3),    // ) -.--.-
	undef,          // *
	5<<5 | 0b01010, // + .-.-.
	overflow(4),    // , --..--
	overflow(5),    // - -....-
	overflow(6),    // . .-.-.-
	5<<5 | 0b10010, // / -..-.
	5<<5 | 0b11111, // 0
	5<<5 | 0b01111, // 1
	5<<5 | 0b00111, // 2
	5<<5 | 0b00011, // 3
	5<<5 | 0b00001, // 4
	5<<5 | 0b00000, // 5
	5<<5 | 0b10000, // 6
	5<<5 | 0b11000, // 7
	5<<5 | 0b11100, // 8
	5<<5 | 0b11110, // 9
	overflow(7),    // : ---...
	overflow(8),    // ; -.-.-.
	undef,          // <
	5<<5 | 0b10001, // = -...-
	undef,          // >
	overflow(9),    // ? ..--..
	overflow(10),   // @ .--.-.
	2<<5 | 0b01,    // A
	4<<5 | 0b1000,  // B
	4<<5 | 0b1010,  // C
	3<<5 | 0b100,   // D
	1<<5 | 0b0,     // E
	4<<5 | 0b0010,  // F
	3<<5 | 0b110,   // G
	4<<5 | 0b0000,  // H
	2<<5 | 0b00,    // I
	4<<5 | 0b0111,  // J
	3<<5 | 0b101,   // K
	4<<5 | 0b0100,  // L
	2<<5 | 0b11,    // M
	2<<5 | 0b10,    // N
	3<<5 | 0b111,   // O
	4<<5 | 0b0110,  // P
	4<<5 | 0b1101,  // Q
	3<<5 | 0b010,   // R
	3<<5 | 0b000,   // S
	1<<5 | 0b1,     // T
	3<<5 | 0b001,   // U
	4<<5 | 0b0001,  // V
	3<<5 | 0b011,   // W
	4<<5 | 0b1001,  // X
	4<<5 | 0b1011,  // Y
	4<<5 | 0b1100,  // Z
	undef,          // [
	undef,          // \
	undef,          // ]
	undef,          // ^
	overflow(11),   // _ ..--.-
}

var overflowTable = [...]uint8{
	0b101011, // !
	0b010010, // "
	0b011110, // '
	0b101101, // )
	0b110011, // ,
	0b100001, // -
	0b010101, // .
	0b111000, // :
	0b101010, // ;
	0b001100, // ?
	0b011010, // @
	0b001101, // _
}

// Element is one dit or dah.
type Element uint8

const (
	Dit Element = iota
	Dah
)

// Units is the length of the element itself, not counting the gap after it.
func (e Element) Units() int {
	if e == Dah {
		return 3
	}
	return 1
}

func (e Element) String() string {
	if e == Dah {
		return "-"
	}
	return "."
}

type SymbolKind uint8

const (
	Unsupported SymbolKind = iota
	Elements
	WordSpace
)

func (k SymbolKind) String() string {
	switch k {
	case Elements:
		return "elements"
	case WordSpace:
		return "word space"
	default:
		return "unsupported"
	}
}

// Symbol is the result of a table lookup.  For kind Elements it holds
// 1 to 6 elements; otherwise Len is 0.
type Symbol struct {
	Kind  SymbolKind
	count uint8
	bits  uint8
}

func (s Symbol) Len() int {
	return int(s.count)
}

// At returns element i, 0 being the first transmitted.
func (s Symbol) At(i int) Element {
	return Element((s.bits >> (int(s.count) - 1 - i)) & 1)
}

func (s Symbol) Elements() []Element {
	var out = make([]Element, s.count)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Units is the on air length from the first element thru the letter space.
func (s Symbol) Units() int {
	switch s.Kind {
	case WordSpace:
		return wordGapUnits
	case Elements:
		var units = letterGapUnits - elementGapUnits
		for i := 0; i < s.Len(); i++ {
			units += s.At(i).Units() + elementGapUnits
		}
		return units
	default:
		return 0
	}
}

func (s Symbol) String() string {
	switch s.Kind {
	case WordSpace:
		return "/"
	case Elements:
		var b strings.Builder
		for i := 0; i < s.Len(); i++ {
			b.WriteString(s.At(i).String())
		}
		return b.String()
	default:
		return ""
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Lookup
 *
 * Purpose:    	Find the Morse pattern for one character.
 *
 * Inputs:	ch	- 7 bit ASCII character.  Lower case is folded.
 *
 * Returns:	Symbol with kind Elements, WordSpace for ' ', or
 *		Unsupported for anything not in the table.
 *
 *--------------------------------------------------------------------*/

func Lookup(ch byte) Symbol {
	if ch >= 'a' && ch <= 'z' {
		ch -= 'a' - 'A'
	}

	if ch < firstChar || ch > lastChar {
		return Symbol{Kind: Unsupported}
	}

	var e = primaryTable[ch-firstChar]

	switch {
	case e == entryWordSpace:
		return Symbol{Kind: WordSpace}
	case e == entryUndefined:
		return Symbol{Kind: Unsupported}
	}

	var count = uint8(e >> 5)
	var bits = uint8(e & 0x1f)

	if count != 0 {
		return Symbol{Kind: Elements, count: count, bits: bits}
	}

	if int(bits) >= len(overflowTable) {
		return Symbol{Kind: Unsupported}
	}

	return Symbol{Kind: Elements, count: overflowElements, bits: overflowTable[bits]}
}

// Encode renders a message in dot and dash notation.  Letters are
// separated by a space and words by " / ".  Unsupported characters
// are dropped.
func Encode(str string) string {
	var letters []string
	for i := 0; i < len(str); i++ {
		var s = Lookup(str[i])
		if s.Kind != Unsupported {
			letters = append(letters, s.String())
		}
	}
	return strings.Join(letters, " ")
}
