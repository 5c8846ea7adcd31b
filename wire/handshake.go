// handshake.go - tagged cbor encoding for handshake frames
// Copyright (C) 2019  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package wire

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Handshake tag numbers, in the unassigned range per the IANA CBOR
// tags registry, following the cbor.NewTagSet/TagOptions pattern used
// by server/cborplugin/client.go in the reference repository to give
// a family of frame types a self-describing wire form.
const (
	tagClientHello  = 1501
	tagServerHello  = 1502
	tagClientResume = 1503
)

var handshakeEncMode cbor.EncMode
var handshakeDecMode cbor.DecMode

func init() {
	tags := cbor.NewTagSet()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
		reflect.TypeOf(ClientHello{}), tagClientHello))
	must(tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
		reflect.TypeOf(ServerHello{}), tagServerHello))
	must(tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
		reflect.TypeOf(ClientResume{}), tagClientResume))

	em, err := cbor.EncOptions{}.EncModeWithTags(tags)
	must(err)
	dm, err := cbor.DecOptions{}.DecModeWithTags(tags)
	must(err)
	handshakeEncMode = em
	handshakeDecMode = dm
}

// MarshalHandshake cbor-serializes a ClientHello, ServerHello, or
// ClientResume value, tagging it so that UnmarshalHandshake can
// recover the concrete type without the caller needing to guess it
// first.
func MarshalHandshake(v any) ([]byte, error) {
	return handshakeEncMode.Marshal(v)
}

// UnmarshalHandshake decodes a tagged handshake payload produced by
// MarshalHandshake, returning one of ClientHello, ServerHello, or
// ClientResume as the dynamic type of the returned value. ok is false
// if data is not a recognized, well-formed handshake frame.
func UnmarshalHandshake(data []byte) (v any, ok bool) {
	var iface any
	if err := handshakeDecMode.Unmarshal(data, &iface); err != nil {
		return nil, false
	}
	switch f := iface.(type) {
	case ClientHello, ServerHello, ClientResume:
		return f, true
	default:
		return nil, false
	}
}
