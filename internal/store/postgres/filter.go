package postgres

import (
	"fmt"
	"strings"

	"brasul/fretes/internal/freight"
)

// columns whitelists the predicate fields that may appear in SQL.
var columns = map[string]string{
	freight.FieldOrigin:       "origin",
	freight.FieldDestination:  "destination",
	freight.FieldCargoType:    "cargo_type",
	freight.FieldTruckType:    "truck_type",
	freight.FieldValue:        "value",
	freight.FieldWeight:       "weight",
	freight.FieldRefrigerated: "refrigerated",
	freight.FieldRequiresMopp: "requires_mopp",
	freight.FieldTollIncluded: "toll_included",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause renders the filter as a WHERE clause using $n placeholders
// starting after the given args. NULL values never satisfy a comparison, so
// range predicates exclude negotiable listings.
func whereClause(filter freight.Filter, args []interface{}) (string, []interface{}, error) {
	preds := filter.Predicates()
	if len(preds) == 0 {
		return "", args, nil
	}
	conds := make([]string, 0, len(preds))
	for _, p := range preds {
		col, ok := columns[p.Field]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter field %q", p.Field)
		}
		switch p.Op {
		case freight.OpContains:
			args = append(args, "%"+likeEscaper.Replace(p.Value.(string))+"%")
			conds = append(conds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
		case freight.OpSuffix:
			args = append(args, "%"+likeEscaper.Replace(p.Value.(string)))
			conds = append(conds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
		case freight.OpEquals:
			args = append(args, p.Value)
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		case freight.OpGte:
			args = append(args, p.Value)
			conds = append(conds, fmt.Sprintf("%s >= $%d", col, len(args)))
		case freight.OpLte:
			args = append(args, p.Value)
			conds = append(conds, fmt.Sprintf("%s <= $%d", col, len(args)))
		case freight.OpIsTrue:
			conds = append(conds, col+" IS TRUE")
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %d", p.Op)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}
