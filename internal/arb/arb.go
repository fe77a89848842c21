// Package arb implements ArbData and ArbCmd, the user-extension value types
// threaded through every DQCsim interface (spec.md §3). Grounded on the
// original source's dqcsim-api/src/arb.rs and dqcsim-api/src/cmd.rs for the
// operation set, and on the cbor.TagSet/reflect.TypeOf tagging idiom
// (server/cborplugin/client.go) for the wire representation.
package arb

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/dqcsim/dqcsim/dqerr"
)

// TagSet assigns CBOR tags to the wire-visible arb types, following
// server/cborplugin/client.go's TagSet.Add(..., reflect.TypeOf(T{}), n)
// pattern with an unassigned IANA CBOR tag range (1400s).
var TagSet = cbor.NewTagSet()

func init() {
	must(TagSet.Add(cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}, reflect.TypeOf(Data{}), 1410))
	must(TagSet.Add(cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}, reflect.TypeOf(Cmd{}), 1411))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Data is an ArbData: a pair of a CBOR-addressable/JSON-projectable
// structured value and an ordered sequence of opaque byte strings.
// Invariant: the JSON and CBOR views describe the same logical value — both
// are produced from the same in-memory Go value (map[string]interface{} or
// any JSON-compatible value), never from two independently-maintained
// representations.
type Data struct {
	// Json holds the structured value, decoded to Go's generic JSON
	// representation (map[string]interface{}, []interface{}, or a scalar).
	Json interface{} `json:"json" cbor:"json"`
	// Args is the ordered sequence of opaque byte strings.
	Args [][]byte `json:"args" cbor:"args"`
}

// Default returns the default ArbData: JSON object {} and no byte-string
// arguments, matching dqcs_arb_new()'s documented initial state.
func Default() Data {
	return Data{Json: map[string]interface{}{}, Args: [][]byte{}}
}

// Equal reports deep equality of two ArbData, used by round-trip tests
// (spec.md §8 property 5).
func (d Data) Equal(other Data) bool {
	aj, err1 := json.Marshal(d.Json)
	bj, err2 := json.Marshal(other.Json)
	if err1 != nil || err2 != nil || string(aj) != string(bj) {
		return false
	}
	if len(d.Args) != len(other.Args) {
		return false
	}
	for i := range d.Args {
		if string(d.Args[i]) != string(other.Args[i]) {
			return false
		}
	}
	return true
}

// SetJSONString replaces the structured value from a JSON string, mirroring
// dqcs_arb_json_set_str.
func (d *Data) SetJSONString(s string) error {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return dqerr.Wrap(dqerr.InvalidArgument, err, "invalid JSON")
	}
	d.Json = v
	return nil
}

// JSONString renders the structured value as a JSON string, mirroring
// dqcs_arb_json_get_str.
func (d Data) JSONString() (string, error) {
	b, err := json.Marshal(d.Json)
	if err != nil {
		return "", dqerr.Wrap(dqerr.Other, err, "failed to marshal ArbData json")
	}
	return string(b), nil
}

// String renders the ArbData using the CLI grammar of spec.md §6: a JSON
// object optionally followed by comma-separated byte-string arguments.
// Round-trips with ParseData.
func (d Data) String() string {
	js, err := d.JSONString()
	if err != nil {
		js = "{}"
	}
	var b strings.Builder
	b.WriteString(js)
	for _, a := range d.Args {
		b.WriteByte(',')
		b.WriteString(encodeArg(a))
	}
	return b.String()
}

// Push appends a byte-string argument to the back of the list, mirroring
// dqcs_arb_push_raw/dqcs_arb_push_str.
func (d *Data) Push(b []byte) { d.Args = append(d.Args, b) }

// Pop removes and returns the byte-string argument at the back of the list,
// mirroring dqcs_arb_pop_raw.
func (d *Data) Pop() ([]byte, error) {
	if len(d.Args) == 0 {
		return nil, dqerr.New(dqerr.InvalidArgument, "no arguments to pop")
	}
	n := len(d.Args) - 1
	b := d.Args[n]
	d.Args = d.Args[:n]
	return b, nil
}

// Get returns the byte-string argument at index, supporting negative
// indices counted from the end (mirroring receive_index in the original's
// util.rs, used throughout arb.rs).
func (d Data) Get(index int) ([]byte, error) {
	i, err := resolveIndex(len(d.Args), index, false)
	if err != nil {
		return nil, err
	}
	return d.Args[i], nil
}

// Insert inserts b at index, mirroring dqcs_arb_insert_raw. Negative
// indices are permitted one-past-the-end (insert-after semantics), matching
// receive_index(..., allow_end=true) in the original.
func (d *Data) Insert(index int, b []byte) error {
	i, err := resolveIndex(len(d.Args), index, true)
	if err != nil {
		return err
	}
	d.Args = append(d.Args, nil)
	copy(d.Args[i+1:], d.Args[i:])
	d.Args[i] = b
	return nil
}

// Remove deletes the byte-string argument at index, mirroring
// dqcs_arb_remove.
func (d *Data) Remove(index int) error {
	i, err := resolveIndex(len(d.Args), index, false)
	if err != nil {
		return err
	}
	d.Args = append(d.Args[:i], d.Args[i+1:]...)
	return nil
}

// Set replaces the byte-string argument at index, mirroring
// dqcs_arb_set_raw/dqcs_arb_set_str.
func (d *Data) Set(index int, b []byte) error {
	i, err := resolveIndex(len(d.Args), index, false)
	if err != nil {
		return err
	}
	d.Args[i] = b
	return nil
}

// Len returns the number of byte-string arguments.
func (d Data) Len() int { return len(d.Args) }

// Clear empties the byte-string argument list, mirroring dqcs_arb_clear.
func (d *Data) Clear() { d.Args = nil }

// resolveIndex converts a possibly-negative index into an absolute one,
// mirroring the original's receive_index helper (dqcsim-api/src/util.rs):
// -1 means the last element, and allowEnd permits an index one past the end
// (used by Insert, where appending is index == len). With allowEnd, negative
// indices count from that one-past-the-end position, so -1 means len.
func resolveIndex(length, index int, allowEnd bool) (int, error) {
	abs := index
	if abs < 0 {
		abs += length
		if allowEnd {
			abs++
		}
	}
	max := length - 1
	if allowEnd {
		max = length
	}
	if abs < 0 || abs > max {
		return 0, dqerr.New(dqerr.InvalidArgument, "index %d out of range for length %d", index, length)
	}
	return abs, nil
}
