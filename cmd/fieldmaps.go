// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/aldestat/pkg/aldes"
)

var fieldMapsYAML bool

var fieldMapsCmd = &cobra.Command{
	Use:   "fieldmaps [version]",
	Short: "List the built-in field maps",
	Long: `Without arguments, list the built-in field map versions. With a version,
print its fields: name, payload offset, decode type and whether the field
is published. --yaml prints the map in the format accepted by
bridge.field_map_file, as a starting point for site-specific maps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFieldMaps,
}

func init() {
	rootCmd.AddCommand(fieldMapsCmd)
	fieldMapsCmd.Flags().BoolVar(&fieldMapsYAML, "yaml", false, "Print the field map as YAML")
}

func runFieldMaps(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, v := range aldes.FieldMapVersions() {
			m, _ := aldes.BuiltinFieldMap(v)
			fmt.Fprintf(out, "%s\t%d fields, payload %d bytes\n", v, m.Len(), m.FullPayloadLength())
		}
		return nil
	}

	m, err := aldes.BuiltinFieldMap(args[0])
	if err != nil {
		return err
	}
	if fieldMapsYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(m)
	}
	return printFieldMap(out, m)
}

func printFieldMap(out io.Writer, m *aldes.FieldMap) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOFFSET\tTYPE\tPUBLISH")
	for _, f := range m.Fields() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%t\n", f.Name, f.Offset, f.Type, f.Publish)
	}
	return w.Flush()
}
