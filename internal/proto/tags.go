package proto

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/dqcsim/dqcsim/internal/arb"
)

// TagSet assigns CBOR tags to the wire-visible proto types, continuing the
// numbering arb.TagSet started at 1410/1411, per
// server/cborplugin/client.go's TagSet.Add(..., reflect.TypeOf(T{}), n)
// idiom. Messages embed arb.Data/arb.Cmd fields, so encoders/decoders must
// combine this set with arb.TagSet (see combinedTagSet, used by NewEncMode
// and NewDecMode).
var TagSet = cbor.NewTagSet()

func init() {
	req := cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}
	must(TagSet.Add(req, reflect.TypeOf(SimulatorToPlugin{}), 1420))
	must(TagSet.Add(req, reflect.TypeOf(PluginToSimulator{}), 1421))
	must(TagSet.Add(req, reflect.TypeOf(InitializeRequest{}), 1422))
	must(TagSet.Add(req, reflect.TypeOf(UserInitializeRequest{}), 1423))
	must(TagSet.Add(req, reflect.TypeOf(RunRequest{}), 1424))
	must(TagSet.Add(req, reflect.TypeOf(InitializedResponse{}), 1425))
	must(TagSet.Add(req, reflect.TypeOf(RunResponse{}), 1426))
	must(TagSet.Add(req, reflect.TypeOf(GatestreamDown{}), 1427))
	must(TagSet.Add(req, reflect.TypeOf(GatestreamUp{}), 1428))
	must(TagSet.Add(req, reflect.TypeOf(AllocateRequest{}), 1429))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// NewEncMode builds a CBOR encoding mode covering both the proto and arb tag
// sets, for use by internal/channel's IPC transport.
func NewEncMode() (cbor.EncMode, error) {
	combined, err := combinedTagSet()
	if err != nil {
		return nil, err
	}
	return cbor.CanonicalEncOptions().EncModeWithTags(combined)
}

// NewDecMode builds a CBOR decoding mode covering both the proto and arb tag
// sets. Maps decoded into an empty interface (such as arb.Data's Json) become
// map[string]interface{}, so decoded ArbData stays JSON-projectable.
func NewDecMode() (cbor.DecMode, error) {
	combined, err := combinedTagSet()
	if err != nil {
		return nil, err
	}
	return cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]interface{}(nil))}.DecModeWithTags(combined)
}

// combinedTagSet merges proto.TagSet and arb.TagSet into one set, since a
// single cbor.Mode can only be built from one TagSet and messages in this
// package nest arb.Data/arb.Cmd values.
func combinedTagSet() (cbor.TagSet, error) {
	combined := cbor.NewTagSet()
	req := cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}
	for _, t := range []struct {
		typ reflect.Type
		num uint64
	}{
		{reflect.TypeOf(arb.Data{}), 1410},
		{reflect.TypeOf(arb.Cmd{}), 1411},
		{reflect.TypeOf(SimulatorToPlugin{}), 1420},
		{reflect.TypeOf(PluginToSimulator{}), 1421},
		{reflect.TypeOf(InitializeRequest{}), 1422},
		{reflect.TypeOf(UserInitializeRequest{}), 1423},
		{reflect.TypeOf(RunRequest{}), 1424},
		{reflect.TypeOf(InitializedResponse{}), 1425},
		{reflect.TypeOf(RunResponse{}), 1426},
		{reflect.TypeOf(GatestreamDown{}), 1427},
		{reflect.TypeOf(GatestreamUp{}), 1428},
		{reflect.TypeOf(AllocateRequest{}), 1429},
	} {
		if err := combined.Add(req, t.typ, t.num); err != nil {
			return nil, err
		}
	}
	return combined, nil
}
