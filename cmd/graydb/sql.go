package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graydb/internal/dbal"
)

func newExecCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec SQL [PARAM...]",
		Short: "Run a statement and print the affected row count",
		Long: `Run a statement and print the affected row count.

Positional parameters after the SQL are bound in order to ? placeholders.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withConn(cmd.Context(), func(conn *dbal.Conn) error {
				n, err := conn.Exec(cmd.Context(), args[0], bindArgs(args[1:])...)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%d row(s) affected\n", n)
				return nil
			})
		},
	}
}

func newQueryCommand(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "query SQL [PARAM...]",
		Short: "Run a query and print every row",
		Long: `Run a query and print every row.

--mode selects the row shape: assoc prints one JSON object per row, num
prints tab separated values, obj prints column=value pairs and column
prints the first column only. NULL values print as NULL.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch, ok := dbal.ParseFetchMode(mode)
			if !ok || fetch == dbal.FetchDefault {
				return fmt.Errorf("unknown mode %q (want assoc, num, obj or column)", mode)
			}
			return a.withConn(cmd.Context(), func(conn *dbal.Conn) error {
				rows, err := conn.Select(cmd.Context(), args[0], fetch, bindArgs(args[1:])...)
				if err != nil {
					return err
				}
				for _, row := range rows {
					if err := printRow(a.stdout, row); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "assoc", "Row shape: assoc, num, obj or column.")
	return cmd
}

func newQuoteCommand(a *app) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "quote VALUE",
		Short: "Print VALUE as a literal in the configured dialect",
		Long: `Print VALUE as a literal in the configured dialect.

Values that start with a dash must follow --, otherwise they are read as
flags:

  graydb quote --type int -- -7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, paramType, err := parseQuoteValue(args[0], typ)
			if err != nil {
				return err
			}
			return a.withConn(cmd.Context(), func(conn *dbal.Conn) error {
				lit, ok := conn.Quote(value, paramType)
				if !ok {
					return fmt.Errorf("%s cannot quote %q as %s", conn.Name(), args[0], typ)
				}
				fmt.Fprintln(a.stdout, lit)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "str", "Literal type: str, int, bool, null or lob.")
	return cmd
}

// parseQuoteValue converts the command line text into the Go value Quote
// expects for typ.
func parseQuoteValue(raw, typ string) (any, dbal.ParamType, error) {
	switch strings.ToLower(typ) {
	case "str":
		return raw, dbal.ParamStr, nil
	case "int":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid int %q: %w", raw, err)
		}
		return n, dbal.ParamInt, nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid bool %q: %w", raw, err)
		}
		return b, dbal.ParamBool, nil
	case "null":
		return nil, dbal.ParamNull, nil
	case "lob":
		return []byte(raw), dbal.ParamLOB, nil
	}
	return nil, 0, fmt.Errorf("unknown type %q (want str, int, bool, null or lob)", typ)
}

// printRow writes one fetched row in the shape of its fetch mode.
func printRow(w io.Writer, row any) error {
	var line string
	switch r := row.(type) {
	case map[string]any:
		out := make(map[string]any, len(r))
		for k, v := range r {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			out[k] = v
		}
		b, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("encoding row: %w", err)
		}
		line = string(b)
	case []any:
		cells := make([]string, len(r))
		for i, v := range r {
			cells[i] = formatValue(v)
		}
		line = strings.Join(cells, "\t")
	case *dbal.Record:
		cols, vals := r.Columns(), r.Values()
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = c + "=" + formatValue(vals[i])
		}
		line = strings.Join(cells, "\t")
	default:
		line = formatValue(r)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}
