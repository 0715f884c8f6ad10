// Package godatautil turns OData query options ($filter, $orderby, $top,
// $skip) into sqlbuilder clauses against a sqlbuilderutil.Table.
//
// Only a small part of $filter is understood: and/or, the comparison
// operators, and the substringof, contains, startswith and endswith
// functions with one field and one literal.
package godatautil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	sb "fknsrs.biz/p/sqlbuilder"
	"github.com/gost/godata"

	"github.com/niconiahi/olga.media/internal/sqlbuilderutil"
)

var (
	ErrFieldNotFound = fmt.Errorf("field not found")
	ErrUnsupported   = fmt.Errorf("unsupported filter")
)

// ParseQuery reads the OData options out of a request's query string. Other
// parameters are ignored. It returns nil if there are no OData options.
func ParseQuery(values url.Values) (*godata.GoDataQuery, error) {
	odata := url.Values{}
	for k, v := range values {
		if strings.HasPrefix(k, "$") {
			odata[k] = v
		}
	}

	if len(odata) == 0 {
		return nil, nil
	}

	q, err := godata.ParseUrlQuery(odata)
	if err != nil {
		return nil, fmt.Errorf("godatautil.ParseQuery: %w", err)
	}

	return q, nil
}

func MakeCondition(q *godata.GoDataQuery, table *sqlbuilderutil.Table) (sb.AsExpr, error) {
	if q == nil || q.Filter == nil || q.Filter.Tree == nil {
		return nil, nil
	}

	expr, err := makeCondition(q.Filter.Tree, table)
	if err != nil {
		return nil, fmt.Errorf("godatautil.MakeCondition: %w", err)
	}

	return expr, nil
}

var flipped = map[string]string{
	"eq": "eq",
	"ne": "ne",
	"gt": "lt",
	"ge": "le",
	"lt": "gt",
	"le": "ge",
}

var operators = map[string]string{
	"eq": "=",
	"ne": "!=",
	"gt": ">",
	"ge": ">=",
	"lt": "<",
	"le": "<=",
}

func makeCondition(n *godata.ParseNode, table *sqlbuilderutil.Table) (sb.AsExpr, error) {
	switch n.Token.Type {
	case godata.FilterTokenLogical:
		op := strings.ToLower(strings.TrimSpace(n.Token.Value))

		switch op {
		case "and", "or":
			var a []sb.AsExpr
			for _, e := range n.Children {
				expr, err := makeCondition(e, table)
				if err != nil {
					return nil, fmt.Errorf("godatautil.makeCondition: %w", err)
				}
				a = append(a, expr)
			}

			return sb.BooleanOperator(op, a...), nil
		case "eq", "ne", "gt", "ge", "lt", "le":
			c, value, swapped, err := fieldAndValue(n, table)
			if err != nil {
				return nil, fmt.Errorf("godatautil.makeCondition: %s: %w", op, err)
			}

			if swapped {
				op = flipped[op]
			}

			return sb.BinaryOperator(operators[op], c, sb.Bind(value)), nil
		default:
			return nil, fmt.Errorf("godatautil.makeCondition: logical operator %q: %w", op, ErrUnsupported)
		}
	case godata.FilterTokenFunc:
		name := strings.ToLower(strings.TrimSpace(n.Token.Value))

		switch name {
		case "substringof", "contains", "startswith", "endswith":
			c, value, _, err := fieldAndValue(n, table)
			if err != nil {
				return nil, fmt.Errorf("godatautil.makeCondition: %s: %w", name, err)
			}

			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("godatautil.makeCondition: %s needs a string argument: %w", name, ErrUnsupported)
			}

			switch name {
			case "startswith":
				return sb.BinaryOperator("=", sb.Func("instr", c, sb.Bind(s)), sb.Literal("1")), nil
			case "endswith":
				return sb.BinaryOperator("=", sb.Func("substr", c, sb.Literal(strconv.Itoa(-utf8.RuneCountInString(s)))), sb.Bind(s)), nil
			default:
				return sb.Ne(sb.Func("instr", c, sb.Bind(s)), sb.Literal("0")), nil
			}
		default:
			return nil, fmt.Errorf("godatautil.makeCondition: function %s: %w", name, ErrUnsupported)
		}
	default:
		return nil, fmt.Errorf("godatautil.makeCondition: token type %d (%s): %w", n.Token.Type, filterTokenName(n.Token.Type), ErrUnsupported)
	}
}

// fieldAndValue picks the field and the literal out of a two argument node,
// in whichever order they were written. swapped is true when the literal
// came first.
func fieldAndValue(n *godata.ParseNode, table *sqlbuilderutil.Table) (*sb.BasicColumn, interface{}, bool, error) {
	if len(n.Children) != 2 {
		return nil, nil, false, fmt.Errorf("expected two arguments, got %d: %w", len(n.Children), ErrUnsupported)
	}

	field, literal, swapped := n.Children[0], n.Children[1], false
	if field.Token.Type != godata.FilterTokenLiteral {
		field, literal, swapped = literal, field, true
	}

	if field.Token.Type != godata.FilterTokenLiteral {
		return nil, nil, false, fmt.Errorf("no field argument: %w", ErrUnsupported)
	}

	c := table.C(strings.TrimSpace(field.Token.Value))
	if c == nil {
		return nil, nil, false, fmt.Errorf("%q: %w", field.Token.Value, ErrFieldNotFound)
	}

	raw := strings.TrimSpace(literal.Token.Value)

	switch literal.Token.Type {
	case godata.FilterTokenString:
		return c, unquote(raw), swapped, nil
	case godata.FilterTokenInteger:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, false, fmt.Errorf("integer %q: %w", raw, err)
		}
		return c, v, swapped, nil
	case godata.FilterTokenBoolean:
		return c, raw == "true", swapped, nil
	default:
		return nil, nil, false, fmt.Errorf("argument of type %s: %w", filterTokenName(literal.Token.Type), ErrUnsupported)
	}
}

func filterTokenName(tokenType int) string {
	switch tokenType {
	case godata.FilterTokenOpenParen:
		return "OpenParen"
	case godata.FilterTokenCloseParen:
		return "CloseParen"
	case godata.FilterTokenWhitespace:
		return "Whitespace"
	case godata.FilterTokenNav:
		return "Nav"
	case godata.FilterTokenColon:
		return "Colon"
	case godata.FilterTokenComma:
		return "Comma"
	case godata.FilterTokenLogical:
		return "Logical"
	case godata.FilterTokenOp:
		return "Op"
	case godata.FilterTokenFunc:
		return "Func"
	case godata.FilterTokenLambda:
		return "Lambda"
	case godata.FilterTokenNull:
		return "Null"
	case godata.FilterTokenIt:
		return "It"
	case godata.FilterTokenRoot:
		return "Root"
	case godata.FilterTokenFloat:
		return "Float"
	case godata.FilterTokenInteger:
		return "Integer"
	case godata.FilterTokenString:
		return "String"
	case godata.FilterTokenDate:
		return "Date"
	case godata.FilterTokenTime:
		return "Time"
	case godata.FilterTokenDateTime:
		return "DateTime"
	case godata.FilterTokenBoolean:
		return "Boolean"
	case godata.FilterTokenLiteral:
		return "Literal"
	case godata.FilterTokenGeography:
		return "Geography"
	default:
		return "unknown"
	}
}

func MakeOrders(q *godata.GoDataQuery, table *sqlbuilderutil.Table, defaultOrders ...sb.AsOrderingTerm) ([]sb.AsOrderingTerm, error) {
	if q == nil || q.OrderBy == nil || len(q.OrderBy.OrderByItems) == 0 {
		return defaultOrders, nil
	}

	var a []sb.AsOrderingTerm

	for _, item := range q.OrderBy.OrderByItems {
		name := strings.TrimSpace(item.Field.Value)

		c := table.C(name)
		if c == nil {
			return nil, fmt.Errorf("godatautil.MakeOrders: could not find field %q: %w", name, ErrFieldNotFound)
		}

		switch item.Order {
		case "desc":
			a = append(a, sb.OrderDesc(c))
		default:
			a = append(a, sb.OrderAsc(c))
		}
	}

	return a, nil
}

// MakeOffsetLimit applies $skip and $top, never letting $top go past maxTop.
func MakeOffsetLimit(q *godata.GoDataQuery, defaultTop, maxTop int) *sb.OffsetLimitClause {
	skip := 0
	if q != nil && q.Skip != nil && int(*q.Skip) > 0 {
		skip = int(*q.Skip)
	}

	top := defaultTop
	if q != nil && q.Top != nil && int(*q.Top) >= 0 {
		top = int(*q.Top)
	}
	if maxTop > 0 && top > maxTop {
		top = maxTop
	}

	return sb.OffsetLimit(sb.Bind(skip), sb.Bind(top))
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}

	return strings.ReplaceAll(s, "''", "'")
}
