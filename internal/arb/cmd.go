package arb

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dqcsim/dqcsim/dqerr"
)

// identifierPattern matches spec.md §3: "[A-Za-z0-9_]+", non-empty.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidIdentifier reports whether s is a legal interface/operation
// identifier.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Cmd is an ArbCmd: an (interface-id, operation-id, ArbData) triple used for
// user-defined extensions on every interface (spec.md §3).
type Cmd struct {
	Interface string `json:"iface" cbor:"iface"`
	Operation string `json:"oper" cbor:"oper"`
	Data      Data   `json:"data" cbor:"data"`
}

// NewCmd constructs an ArbCmd, validating both identifiers the way
// dqcs_cmd_new does.
func NewCmd(iface, oper string, data Data) (Cmd, error) {
	if !ValidIdentifier(iface) {
		return Cmd{}, dqerr.InvalidArgumentf("invalid interface identifier %q", iface)
	}
	if !ValidIdentifier(oper) {
		return Cmd{}, dqerr.InvalidArgumentf("invalid operation identifier %q", oper)
	}
	return Cmd{Interface: iface, Operation: oper, Data: data}, nil
}

// String renders the ArbCmd using the CLI grammar of spec.md §6:
// "<iface>.<oper>[:<json>[,<arg>...]]". Round-trips with ParseCmd (spec.md
// §8 property 6).
func (c Cmd) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s", c.Interface, c.Operation)
	js, err := c.Data.JSONString()
	if err != nil {
		js = "{}"
	}
	needsData := js != "{}" || len(c.Data.Args) > 0
	if needsData {
		b.WriteByte(':')
		b.WriteString(c.Data.String())
	}
	return b.String()
}

// ParseCmd parses the CLI grammar for an ArbCmd: an identifier pair
// separated by '.', optionally followed by ':' and an ArbData (a JSON
// object optionally followed by comma-separated byte-string arguments).
func ParseCmd(s string) (Cmd, error) {
	idAndData := strings.SplitN(s, ":", 2)
	ids := strings.SplitN(idAndData[0], ".", 2)
	if len(ids) != 2 {
		return Cmd{}, dqerr.InvalidArgumentf("ArbCmd %q must be of the form iface.oper[:data]", s)
	}
	data := Default()
	if len(idAndData) == 2 {
		var err error
		data, err = ParseData(idAndData[1])
		if err != nil {
			return Cmd{}, err
		}
	}
	return NewCmd(ids[0], ids[1], data)
}

// ParseData parses the CLI grammar for an ArbData: a JSON object optionally
// followed by comma-separated byte-string arguments. The JSON value may
// itself contain commas, so its extent is found by decoding one JSON value
// and treating everything after it as the (possibly empty) argument tail,
// rather than naively splitting the whole string on ','.
func ParseData(s string) (Data, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Data{}, dqerr.Wrap(dqerr.InvalidArgument, err, "invalid ArbData %q", s)
	}
	d := Data{Json: v, Args: [][]byte{}}
	rest := strings.TrimPrefix(s[dec.InputOffset():], ",")
	if rest != "" {
		for _, p := range strings.Split(rest, ",") {
			d.Push(decodeArg(p))
		}
	}
	return d, nil
}

// encodeArg/decodeArg render a byte-string argument for the CLI grammar.
// Non-empty printable ASCII args that contain no ',' or ':' and do not start
// with "0x" round-trip as themselves; anything else (including an empty arg)
// is hex prefixed with "0x" to stay within the comma-separated grammar.
func encodeArg(b []byte) string {
	s := string(b)
	if len(b) > 0 && isPrintable(b) && !strings.ContainsAny(s, ",:") && !strings.HasPrefix(s, "0x") {
		return s
	}
	return fmt.Sprintf("0x%x", b)
}

func decodeArg(s string) []byte {
	if strings.HasPrefix(s, "0x") {
		b, err := hex.DecodeString(s[2:])
		if err == nil {
			return b
		}
	}
	return []byte(s)
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
