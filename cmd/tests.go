package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/coordclean/internal/cleaner"
)

var testsCmd = &cobra.Command{
	Use:   "tests",
	Short: "List the available coordinate tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		configured := referencesConfigured()
		enabled := make(map[string]bool)
		if kinds, err := cleaner.ParseKinds(cfg.Clean.Tests); err == nil {
			for _, k := range kinds {
				enabled[k.String()] = true
			}
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TEST\tREQUIRES\tREFERENCE\tDEFAULT")
		for _, k := range cleaner.Kinds() {
			req := cleaner.DefaultTest(k).Requires()
			requires := "-"
			if req != 0 {
				requires = strings.Join(req.Names(), ",")
			}
			// Country codes come from the input table, so only the
			// reference files can be checked here.
			status := "ok"
			if !configured.Has(req &^ cleaner.RefCountryCodes) {
				status = "missing"
			}
			def := ""
			if enabled[k.String()] {
				def = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k, requires, status, def)
		}
		return tw.Flush()
	},
}

// referencesConfigured returns the references that have a configured path.
func referencesConfigured() cleaner.RefSet {
	var s cleaner.RefSet
	p := cfg.References
	for _, r := range []struct {
		path string
		ref  cleaner.RefSet
	}{
		{p.Capitals, cleaner.RefCapitals},
		{p.Centroids, cleaner.RefCentroids},
		{p.Countries, cleaner.RefCountries},
		{p.Institutions, cleaner.RefInstitutions},
		{p.Ranges, cleaner.RefRanges},
		{p.Seas, cleaner.RefSeas},
		{p.Urban, cleaner.RefUrban},
	} {
		if r.path != "" {
			s |= r.ref
		}
	}
	return s
}

func init() {
	rootCmd.AddCommand(testsCmd)
}
