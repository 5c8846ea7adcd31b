// labels.go - domain-separation labels for keyed-hash derivation
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

package crypt

// Domain-separation labels for the keyed-hash derivation of the
// directional AEAD keys from a session's shared SessionKey.
var (
	UpLabel = []byte("duskline-up-v1")
	DnLabel = []byte("duskline-dn-v1")
)
