// internal/export/listing.go

// package export presents decoded containers to the user: listings, extracted
// host files, block timelines and the .cpk block package.
package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"go_cas_packager/internal/cas"
	"go_cas_packager/internal/util"
)

// Row is one line of a container listing.
type Row struct {
	Kind cas.Kind
	Name string // printable name, empty for custom entries
	Size int    // bytes on tape (ascii: including the EOF padding)
	Addr *cas.Addresses
}

// List returns one row per entry, in container order.
func List(entries []cas.Entry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{Kind: e.Kind, Size: e.TapeSize(), Addr: e.Addr}
		if e.Kind != cas.Custom {
			rows[i].Name = util.MSX2Text([]byte(e.Name))
		}
	}
	return rows
}

// String renders the row as "bin | ARK | 96 bytes | [0xc000,0xc057]:0xc000".
func (r Row) String() string {
	s := fmt.Sprintf("%s | %s | %d bytes", r.Kind, r.Name, r.Size)
	if r.Addr != nil {
		s += " | " + r.Addr.String()
	}
	return s
}

// WriteListing prints rows as an aligned table.
func WriteListing(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	for _, r := range rows {
		addr := ""
		if r.Addr != nil {
			addr = r.Addr.String()
		}
		if _, err := fmt.Fprintf(tw, "%s\t| %s\t| %5d bytes\t| %s\n", r.Kind, r.Name, r.Size, addr); err != nil {
			return fmt.Errorf("error writing listing: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("error flushing listing: %w", err)
	}
	return nil
}
