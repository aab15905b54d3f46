// Command marcpick decodes MARC21, MARCXML or Aleph sequential input and
// prints the values selected by a field scheme, one TSV row per matched
// record.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/compiler"
	"github.com/bibkit/marcpick/engine/decoder"
	"github.com/bibkit/marcpick/engine/matcher"
	"github.com/bibkit/marcpick/pkg/scheme"
)

var (
	flagFields     string
	flagCondition  string
	flagFormat     string
	flagSchemeFile string
	flagStats      bool
)

var rootCmd = &cobra.Command{
	Use:   "marcpick [files...]",
	Short: "Extract labeled field values from MARC21, MARCXML and Aleph records",
	Long: `marcpick compiles a field-selection scheme (tab-separated 6+ character
patterns, optionally filtered by a boolean condition over regex-matched
fields) and streams bibliographic records through it. Each matched record
prints as one TSV row; values inside a column are joined by ';'.`,
	Args: cobra.ArbitraryArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&flagFields, "fields", "f", "", "tab-separated field queries, e.g. '245@@a\\t001@@@'")
	rootCmd.Flags().StringVarP(&flagCondition, "condition", "c", "", "condition expression, e.g. '245@@aTitle and not 008@@@'")
	rootCmd.Flags().StringVarP(&flagFormat, "format", "t", decoder.FormatMARC21, "input format: marc21, marcxml or aleph")
	rootCmd.Flags().StringVarP(&flagSchemeFile, "scheme", "s", "", "YAML scheme file (replaces --fields/--condition)")
	rootCmd.Flags().BoolVar(&flagStats, "stats", false, "print matcher counters to stderr when done")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	compiled, err := compileScheme()
	if err != nil {
		return err
	}
	cfg := engine.DefaultConfig()
	m := matcher.New(compiled, cfg)

	if len(args) == 0 {
		if err := pick(os.Stdin, m, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = pick(f, m, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if flagStats {
		st := m.Stats()
		fmt.Fprintf(cmd.ErrOrStderr(), "records=%d matched=%d no_match=%d malformed=%d\n",
			st.Records, st.Matched, st.NoMatch, st.Malformed)
	}
	return nil
}

func compileScheme() (*engine.Scheme, error) {
	if flagSchemeFile != "" {
		b, err := os.ReadFile(flagSchemeFile)
		if err != nil {
			return nil, err
		}
		doc, err := scheme.Load(b)
		if err != nil {
			return nil, err
		}
		return doc.Scheme, nil
	}
	// Let a literal "\t" on the command line separate queries too.
	fields := strings.ReplaceAll(flagFields, `\t`, "\t")
	return compiler.Compile(fields, flagCondition)
}

func pick(r io.Reader, m *matcher.Matcher, cfg engine.Config, out, errOut io.Writer) error {
	sc, err := decoder.New(flagFormat, r, m, cfg)
	if err != nil {
		return err
	}
	record := 0
	for sc.Next() {
		o := sc.Outcome()
		switch o.Kind {
		case engine.OutcomeMatched:
			cols := make([]string, len(o.Values))
			for i, vs := range o.Values {
				cols[i] = strings.Join(vs, ";")
			}
			fmt.Fprintln(out, strings.Join(cols, "\t"))
		case engine.OutcomeMalformed:
			fmt.Fprintf(errOut, "record %d: malformed\n", record)
		}
		record++
	}
	return sc.Err()
}
