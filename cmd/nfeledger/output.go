package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ekk0s/nfe-ledger/internal/application/reports"
)

// printTable imprime la tabla con columnas alineadas.
func printTable(out io.Writer, t reports.Table) error {
	if t.Title != "" {
		fmt.Fprintln(out, t.Title)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Headers, "\t")+"\t")
	for _, r := range t.Rows {
		fmt.Fprintln(tw, strings.Join(r, "\t")+"\t")
	}
	return tw.Flush()
}
