package spatial

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-analytics/stopcrime/internal/geotable"
)

// CountColumn holds the summed per-row unit count in the aggregate output.
const CountColumn = "crime_count"

// keySep separates group key parts; unit separator never occurs in CSV data.
const keySep = "\x1f"

// Aggregate groups the joined rows by the groupBy key tuple, sums a unit
// count per row into CountColumn, and projects the result down to the
// retained column allowlist; every other joined column is dropped.
// Within a group, a retained column whose values are all numeric is summed;
// a categorical column keeps the first value in row order, so whichever
// description arrived first survives a many-to-one group. Retained columns
// absent from the joined schema are skipped with a warning. Output rows are
// sorted by group key.
func Aggregate(joined *geotable.Table, groupBy, retain []string) (*geotable.Table, error) {
	if len(groupBy) == 0 {
		return nil, eris.New("spatial: aggregate requires at least one group column")
	}
	for _, c := range groupBy {
		if joined.ColumnIndex(c) < 0 {
			return nil, eris.Errorf("spatial: group column %q not in joined table", c)
		}
	}

	grouped := make(map[string]bool, len(groupBy))
	for _, c := range groupBy {
		grouped[c] = true
	}

	kept := make([]string, 0, len(retain))
	for _, c := range retain {
		if grouped[c] {
			// Group columns already lead the output schema.
			continue
		}
		if joined.ColumnIndex(c) < 0 {
			zap.L().Warn("spatial: retained column missing from joined schema, skipping",
				zap.String("column", c))
			continue
		}
		kept = append(kept, c)
	}

	numeric := make(map[string]bool, len(kept))
	for _, c := range kept {
		numeric[c] = columnIsNumeric(joined, c)
	}

	type group struct {
		keyParts []string
		count    int
		sums     map[string]float64
		firsts   map[string]string
	}
	groups := make(map[string]*group)

	for i := range joined.Rows {
		parts := make([]string, len(groupBy))
		for j, c := range groupBy {
			parts[j] = joined.Value(i, c)
		}
		key := strings.Join(parts, keySep)

		g, ok := groups[key]
		if !ok {
			g = &group{
				keyParts: parts,
				sums:     make(map[string]float64),
				firsts:   make(map[string]string),
			}
			groups[key] = g
		}
		g.count++

		for _, c := range kept {
			v := joined.Value(i, c)
			if numeric[c] {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					g.sums[c] += f
				}
				continue
			}
			if _, seen := g.firsts[c]; !seen && v != "" {
				g.firsts[c] = v
			}
		}
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	columns := make([]string, 0, len(groupBy)+1+len(kept))
	columns = append(columns, groupBy...)
	columns = append(columns, CountColumn)
	columns = append(columns, kept...)

	out := geotable.New(joined.Name+"_per_group", columns)
	out.EPSG = joined.EPSG

	for _, k := range keys {
		g := groups[k]
		row := make([]string, 0, len(columns))
		row = append(row, g.keyParts...)
		row = append(row, strconv.Itoa(g.count))
		for _, c := range kept {
			if numeric[c] {
				row = append(row, strconv.FormatFloat(g.sums[c], 'f', -1, 64))
			} else {
				row = append(row, g.firsts[c])
			}
		}
		out.AppendRow(row)
	}

	zap.L().Info("spatial: aggregation complete",
		zap.Strings("group_by", groupBy),
		zap.Int("groups", out.Len()),
	)
	return out, nil
}

// columnIsNumeric reports whether every non-null value in the column parses
// as a number and at least one non-null value exists.
func columnIsNumeric(t *geotable.Table, column string) bool {
	var seen bool
	for i := range t.Rows {
		v := t.Value(i, column)
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
