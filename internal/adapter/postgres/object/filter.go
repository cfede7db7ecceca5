package object

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/substratehq/substrate/internal/domain"
)

// Field filters and free-text search both reduce to EXISTS subqueries over
// object_modules joined to module_definitions, so they compose with AND and
// never multiply the outer row set.

// filterConditions converts an ObjectFilter into squirrel conditions on the
// outer objects table (aliased o).
func filterConditions(f domain.ObjectFilter) ([]squirrel.Sqlizer, error) {
	var conds []squirrel.Sqlizer

	if f.ObjectTypeID != nil {
		conds = append(conds, squirrel.Eq{"o.object_type_id": *f.ObjectTypeID})
	}

	if f.Search != nil && strings.TrimSpace(*f.Search) != "" {
		conds = append(conds, searchCondition(strings.TrimSpace(*f.Search)))
	}

	for _, ff := range f.Filters {
		cond, err := fieldCondition(ff)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}

	return conds, nil
}

// searchCondition matches objects where any module's data exposes one of the
// well-known search keys with a value containing the query (case-insensitive).
func searchCondition(query string) squirrel.Sqlizer {
	keyChecks := make([]string, 0, len(domain.SearchFieldKeys))
	args := make([]any, 0, len(domain.SearchFieldKeys))
	for _, key := range domain.SearchFieldKeys {
		keyChecks = append(keyChecks, fmt.Sprintf("om.data->>'%s' ILIKE ?", key))
		args = append(args, "%"+escapeLike(query)+"%")
	}

	sql := `EXISTS (
		SELECT 1 FROM object_modules om
		WHERE om.object_id = o.id AND (` + strings.Join(keyChecks, " OR ") + `)
	)`

	return squirrel.Expr(sql, args...)
}

// fieldCondition builds one EXISTS subquery for a single field filter.
// The field key is validated and embedded as a quoted literal; the value is
// always a bind parameter.
func fieldCondition(ff domain.FieldFilter) (squirrel.Sqlizer, error) {
	if !ff.Op.IsValid() {
		return nil, fmt.Errorf("%w: unknown filter operator %q", domain.ErrValidation, ff.Op)
	}
	if err := validateJSONKey(ff.FieldKey); err != nil {
		return nil, err
	}
	if ff.ModuleName == "" {
		return nil, fmt.Errorf("%w: filter module name is required", domain.ErrValidation)
	}

	access := fmt.Sprintf("om.data->>'%s'", ff.FieldKey)

	var valueExpr string
	var arg any
	switch ff.Op {
	case domain.OpEq:
		valueExpr = access + " = ?"
		arg = textValue(ff.Value)
	case domain.OpNeq:
		valueExpr = access + " <> ?"
		arg = textValue(ff.Value)
	case domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte:
		op := map[domain.FilterOp]string{
			domain.OpGt:  ">",
			domain.OpLt:  "<",
			domain.OpGte: ">=",
			domain.OpLte: "<=",
		}[ff.Op]
		if n, ok := numericValue(ff.Value); ok {
			// numeric cast so "9" < "10" compares as numbers
			valueExpr = fmt.Sprintf("(%s)::numeric %s ?", access, op)
			arg = n
		} else {
			valueExpr = fmt.Sprintf("%s %s ?", access, op)
			arg = textValue(ff.Value)
		}
	case domain.OpContains:
		valueExpr = access + " ILIKE ?"
		arg = "%" + escapeLike(textValue(ff.Value)) + "%"
	case domain.OpStartsWith:
		valueExpr = access + " ILIKE ?"
		arg = escapeLike(textValue(ff.Value)) + "%"
	}

	sql := `EXISTS (
		SELECT 1 FROM object_modules om
		JOIN module_definitions md ON md.id = om.module_id
		WHERE om.object_id = o.id AND md.name = ? AND ` + valueExpr + `
	)`

	return squirrel.Expr(sql, ff.ModuleName, arg), nil
}

// validateJSONKey restricts embedded JSONB keys to identifier characters.
// Keys are embedded in SQL text, so anything else is rejected outright.
func validateJSONKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: filter field key is required", domain.ErrValidation)
	}
	for _, r := range key {
		ok := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("%w: invalid filter field key %q", domain.ErrValidation, key)
		}
	}
	return nil
}

// textValue renders a filter value the way ->> renders it: numbers without
// exponent noise, booleans as true/false, everything else via fmt.
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		// JSON numbers decode as float64; trim the ".0" that %v would keep
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// escapeLike escapes LIKE metacharacters in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
