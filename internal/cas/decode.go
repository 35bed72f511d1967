// internal/cas/decode.go
package cas

import (
	"encoding/binary"
	"go_cas_packager/internal/constants"
)

// Decode parses a .cas buffer into its entries, in tape order. the entries
// do not share memory with buf.
//
// only structural problems are errors (see Frame); blocks that are not
// recognised as file headers become Custom entries, including empty ones.
func Decode(buf []byte) ([]Entry, error) {
	blocks, err := Frame(buf)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, b := range blocks {
		switch b.Role {
		case RoleHeader:
			name := decodeName(b.Data[constants.TagRepeat:constants.HeaderSize])
			entries = append(entries, Entry{Kind: b.Kind, Name: name, Payload: []byte{}})

		case RoleData:
			e := &entries[len(entries)-1]
			switch e.Kind {
			case Binary:
				addr := readAddresses(b.Data)
				e.Addr = &addr
				e.Payload = clone(b.Data[constants.AddressSize:])
			case Basic:
				e.Payload = clone(b.Data)
			case Ascii:
				e.Payload = append(e.Payload, b.Data...)
			}

		case RoleCustom:
			entries = append(entries, NewCustom(b.Data))
		}
	}

	return entries, nil
}

// readAddresses reads start, end and exec (16-bit little endian) from the
// start of a binary data block.
func readAddresses(data []byte) Addresses {
	return Addresses{
		Start: binary.LittleEndian.Uint16(data[0:2]),
		End:   binary.LittleEndian.Uint16(data[2:4]),
		Exec:  binary.LittleEndian.Uint16(data[4:6]),
	}
}
