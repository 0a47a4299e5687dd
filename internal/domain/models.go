package domain

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// TerminalToken is the progress event that marks the end of server-side processing.
const TerminalToken = "done"

// File is the document selected by the user. Data is never modified after load.
type File struct {
	Name string
	Data []byte
}

// Size returns the file size in bytes
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// Thumbnail is the rendered preview of a single page
type Thumbnail struct {
	PageIndex int // 0-based
	Image     image.Image
	Width     int
	Height    int
}

// PatternEntry is a rename rule as stored by the processing service.
type PatternEntry struct {
	Regex  string `json:"regex"`
	Rename string `json:"rename"`
}

// String renders the entry the way it is listed to the user.
func (p PatternEntry) String() string {
	return fmt.Sprintf("/%s/ → %s", p.Regex, p.Rename)
}

// PatternExample is the payload submitted to teach the service a new rename rule.
type PatternExample struct {
	Example string `json:"example"`
	Output  string `json:"output"`
}

// TickKind classifies a progress notification
type TickKind int

const (
	TickMalformed TickKind = iota
	TickIndex
	TickTerminal
)

func (k TickKind) String() string {
	switch k {
	case TickIndex:
		return "index"
	case TickTerminal:
		return "terminal"
	default:
		return "malformed"
	}
}

// Tick is one notification received on the progress channel
type Tick struct {
	Kind  TickKind
	Index int
	Raw   string
}

// ParseTick classifies a raw progress token. Anything that is neither the
// terminal token nor a non-negative base-10 integer is malformed.
func ParseTick(raw string) Tick {
	token := strings.TrimSpace(raw)
	if token == TerminalToken {
		return Tick{Kind: TickTerminal, Raw: raw}
	}

	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return Tick{Kind: TickMalformed, Raw: raw}
	}
	return Tick{Kind: TickIndex, Index: n, Raw: raw}
}
