package seek

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/relvacode/iso8601"
	"github.com/wkalt/ckpt/checkpoint"
)

/*
This file contains a participle grammar for seek requests:

    time 505            a timestamp in trace units (scale 0)
    time 1500 ms        a timestamp with a unit (ns, us, ms, s)
    time "2024-01-02T03:04:05Z"
    rank 1000           an event rank
    ratio 0.5           a position as a fraction of the trace

A trailing semicolon is accepted, so that requests can be pasted from a
script.
*/

////////////////////////////////////////////////////////////////////////////////

var (
	Options = []participle.Option{ // nolint:gochecknoglobals
		participle.Lexer(
			lexer.MustSimple([]lexer.SimpleRule{
				{Name: "Word", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
				{Name: "QuotedString", Pattern: `"(?:\\.|[^"])*"`},
				{Name: "whitespace", Pattern: `\s+`},
				{Name: "Terminator", Pattern: `;`},
				{Name: "Float", Pattern: `[-+]?\d*\.\d+([eE][-+]?\d+)?`},
				{Name: "Integer", Pattern: `[-+]?[0-9]+`},
			}),
		),
		participle.Unquote("QuotedString"),
	}
)

// Request is a parsed seek request.
type Request struct {
	Time       *Timestamp `(  "time" @@`
	Rank       *int64     ` | "rank" @Integer`
	Ratio      *float64   ` | "ratio" @(Float | Integer) )`
	Terminator bool       `@";"?`
}

// Timestamp is either an integer with an optional unit or a quoted ISO 8601
// datestring.
type Timestamp struct {
	Value      *int64  `( @Integer`
	Unit       string  `  @("ns" | "us" | "ms" | "s")?`
	Datestring *string `| @QuotedString )`
}

var unitScales = map[string]int32{ // nolint:gochecknoglobals
	"":   0,
	"s":  0,
	"ms": -3,
	"us": -6,
	"ns": checkpoint.NanosecondScale,
}

// Timestamp converts the parsed value to a checkpoint timestamp. Datestrings
// become nanosecond timestamps.
func (t Timestamp) Timestamp() (checkpoint.Timestamp, error) {
	if t.Value != nil {
		return checkpoint.Timestamp{Value: *t.Value, Scale: unitScales[t.Unit]}, nil
	}
	parsed, err := iso8601.Parse([]byte(*t.Datestring))
	if err != nil {
		return checkpoint.Timestamp{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return checkpoint.Nanos(parsed.UnixNano()), nil
}

func (r *Request) String() string {
	switch {
	case r.Time != nil && r.Time.Value != nil:
		return fmt.Sprintf("time %d%s", *r.Time.Value, r.Time.Unit)
	case r.Time != nil:
		return fmt.Sprintf("time %q", *r.Time.Datestring)
	case r.Rank != nil:
		return fmt.Sprintf("rank %d", *r.Rank)
	case r.Ratio != nil:
		return fmt.Sprintf("ratio %g", *r.Ratio)
	default:
		return "invalid request"
	}
}

// NewParser returns a new request parser.
func NewParser() *participle.Parser[Request] {
	return participle.MustBuild[Request](Options...)
}

// Parse parses a single request.
func Parse(s string) (*Request, error) {
	req, err := NewParser().ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}
