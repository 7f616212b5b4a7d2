// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2). Same logical data always produces
// identical bytes, which content addressing depends on.
var encMode cbor.EncMode

// decMode is the CBOR decoder. Unknown struct fields are ignored.
var decMode cbor.DecMode

// nestedDiagMode renders byte strings that hold well-formed CBOR as
// embedded items. Capsules carry their values that way.
var nestedDiagMode cbor.DiagMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	nestedDiagMode, err = cbor.DiagOptions{
		ByteStringEmbeddedCBOR: true,
		MaxNestedLevels:        64,
	}.DiagMode()
	if err != nil {
		panic("codec: CBOR diagnostic mode initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Generic (any-typed) decoding is the first half of typed
		// value decoding. CBOR allows non-string keys, so the library
		// default is map[interface{}]interface{}; Mosaic values never
		// use non-string keys.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Positive integers would otherwise decode as uint64 and
		// negative ones as int64. The int primitive is int64.
		IntDec: cbor.IntDecConvertSigned,
		// A hostile peer controls packet contents.
		MaxNestedLevels:  64,
		MaxArrayElements: 1 << 20,
		MaxMapPairs:      1 << 20,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only lib/codec, not fxamacker/cbor directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value, used to delay decoding of a
// nested item until its type is known.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR encoder that writes to w using the
// deterministic configuration.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// DiagnoseFirst returns the diagnostic notation for the first data
// item in data, along with the remaining unconsumed bytes.
func DiagnoseFirst(data []byte) (string, []byte, error) {
	return cbor.DiagnoseFirst(data)
}

// DiagnoseNested is Diagnose with byte strings that decode as CBOR
// shown as embedded items (<<...>>) instead of hex.
func DiagnoseNested(data []byte) (string, error) {
	return nestedDiagMode.Diagnose(data)
}
