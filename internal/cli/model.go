package cli

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabula/internal/paths"
	"github.com/mesh-intelligence/tabula/pkg/source"
	"github.com/mesh-intelligence/tabula/pkg/table"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// recordModel is the table model every command works on.
type recordModel = table.Model[*source.Record, string]

// viewFlags are the flags shaping which rows and columns a command sees.
type viewFlags struct {
	query         string
	sort          []string
	where         []string
	columns       []string
	search        string
	regex         bool
	caseSensitive bool
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "SQL query for .db/.sqlite sources")
	cmd.Flags().StringArrayVarP(&f.sort, "sort", "s", nil, "sort by column[:asc|desc]; repeat for lower priorities")
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, "filter condition column<op>value with op one of = != < <= > >= ~")
	cmd.Flags().StringSliceVarP(&f.columns, "columns", "c", nil, "visible columns in display order")
	cmd.Flags().BoolVar(&f.regex, "regex", false, "treat search text as a regular expression")
	cmd.Flags().BoolVar(&f.caseSensitive, "case-sensitive", false, "match conditions and searches case-sensitively")
}

// open loads src into a new model and applies the view flags.
func (a *app) open(ctx context.Context, src string, f *viewFlags) (*recordModel, error) {
	path := paths.ResolveSource(a.cfg.DataDir, src)
	if source.IsDatabase(path) && f.query == "" {
		return nil, usagef("%s is a database; --query is required", src)
	}
	supplier := source.Open(a.log, path, f.query)
	records, err := supplier(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	opts, err := source.Options(records)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	opts.Supplier = supplier
	opts.RefreshStrategy = a.cfg.Strategy()
	opts.Logger = a.log
	m, err := table.New(opts)
	if err != nil {
		return nil, err
	}
	if err := m.Items().Set(records); err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	a.log.Debug("source loaded", zap.String("source", path), zap.Int("rows", len(records)))

	if err := a.apply(m, f); err != nil {
		return nil, err
	}
	return m, nil
}

// apply configures columns, conditions, sort keys and search on m.
func (a *app) apply(m *recordModel, f *viewFlags) error {
	caseSensitive := f.caseSensitive || a.cfg.CaseSensitive
	if len(f.columns) > 0 {
		if err := m.Columns().SetVisibleColumns(f.columns...); err != nil {
			return usagef("--columns: %s", err)
		}
	}
	for _, expr := range f.where {
		if err := applyWhere(m, expr, caseSensitive); err != nil {
			return err
		}
	}
	keys, err := parseSortKeys(f.sort)
	if err != nil {
		return err
	}
	if err := m.Sort().SetKeys(keys...); err != nil {
		return usagef("--sort: %s", err)
	}
	m.Search().SetCaseSensitive(caseSensitive)
	m.Search().SetRegularExpression(f.regex)
	m.Search().SetText(f.search)
	return nil
}

// parseSortKeys parses column[:direction] specs in priority order.
func parseSortKeys(specs []string) ([]types.SortKey[string], error) {
	keys := make([]types.SortKey[string], 0, len(specs))
	for _, spec := range specs {
		column, dir, _ := strings.Cut(spec, ":")
		direction, ok := types.ParseDirection(strings.ToLower(dir))
		if column == "" || !ok {
			return nil, usagef("--sort %q: want column[:asc|desc]", spec)
		}
		keys = append(keys, types.SortKey[string]{Column: column, Direction: direction})
	}
	return keys, nil
}

// whereOperators lists the condition operators, two-character ones first.
var whereOperators = []struct {
	symbol string
	op     table.Operator
}{
	{"!=", table.NotEqual},
	{"<=", table.LessThanOrEqual},
	{">=", table.GreaterThanOrEqual},
	{"=", table.Equal},
	{"<", table.LessThan},
	{">", table.GreaterThan},
	{"~", table.Equal},
}

// where is one parsed --where expression.
type where struct {
	column string
	symbol string
	op     table.Operator
	value  string
}

// parseWhere splits column<op>value at the first operator character.
func parseWhere(expr string) (where, error) {
	i := strings.IndexAny(expr, "!=<>~")
	if i <= 0 {
		return where{}, usagef("--where %q: want column<op>value", expr)
	}
	rest := expr[i:]
	for _, o := range whereOperators {
		if strings.HasPrefix(rest, o.symbol) {
			return where{
				column: strings.TrimSpace(expr[:i]),
				symbol: o.symbol,
				op:     o.op,
				value:  strings.TrimSpace(rest[len(o.symbol):]),
			}, nil
		}
	}
	return where{}, usagef("--where %q: unknown operator", expr)
}

// applyWhere installs one --where expression as a column condition. The ~
// operator matches the rendered cell against a regular expression.
func applyWhere(m *recordModel, expr string, caseSensitive bool) error {
	w, err := parseWhere(expr)
	if err != nil {
		return err
	}
	cond, err := m.Conditions().Condition(w.column)
	if err != nil {
		return usagef("--where %q: %s", expr, err)
	}
	if w.symbol == "~" {
		pattern := w.value
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return usagef("--where %q: %s", expr, err)
		}
		cond.SetPredicate(func(v any) bool { return re.MatchString(table.FormatValue(v)) })
		return nil
	}
	cond.SetCaseSensitive(caseSensitive)
	if err := cond.SetOperator(w.op); err != nil {
		return err
	}
	value := parseValue(w.value)
	switch w.op {
	case table.LessThan, table.LessThanOrEqual:
		cond.SetUpper(value)
	case table.GreaterThan, table.GreaterThanOrEqual:
		cond.SetLower(value)
	default:
		cond.SetEqual(value)
	}
	return nil
}

// parseValue reads numbers and booleans as such; anything else is a string.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
