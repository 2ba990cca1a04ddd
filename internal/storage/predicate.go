package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
)

// Field is a searchable product text column.
type Field string

const (
	FieldName        Field = "name"
	FieldBrand       Field = "brand"
	FieldModel       Field = "model"
	FieldEngine      Field = "engine"
	FieldDescription Field = "description"
)

// TextFields are the columns a free-text term is matched against.
var TextFields = []Field{FieldName, FieldBrand, FieldModel, FieldEngine, FieldDescription}

// Predicate is a product filter. The same tree is compiled to SQL by
// SQLStore and evaluated directly by MemoryStore, so both stores agree on
// every strategy the retrieval engine builds.
type Predicate interface {
	isPredicate()
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

// Or matches when any child matches. An empty Or matches nothing.
type Or []Predicate

// Contains matches when Term is a substring of any of Fields, ignoring case
// and accents on both sides ("bujia" finds "Bujía").
type Contains struct {
	Term   string
	Fields []Field
}

// PriceRange bounds price inclusively; nil bounds are open.
type PriceRange struct {
	Min *float64
	Max *float64
}

// StockAtLeast matches stock >= N.
type StockAtLeast struct{ N int }

// StockAtMost matches stock <= N.
type StockAtMost struct{ N int }

// YearEquals matches an exact model year.
type YearEquals struct{ Year int }

func (And) isPredicate()          {}
func (Or) isPredicate()           {}
func (Contains) isPredicate()     {}
func (PriceRange) isPredicate()   {}
func (StockAtLeast) isPredicate() {}
func (StockAtMost) isPredicate()  {}
func (YearEquals) isPredicate()   {}

// SortKey is a product ordering column.
type SortKey string

const (
	SortStock SortKey = "stock"
	SortName  SortKey = "name"
	SortPrice SortKey = "price"
)

// Sort is one ordering term.
type Sort struct {
	Key  SortKey
	Desc bool
}

// ByStockThenName surfaces in-stock items first, then orders by name.
var ByStockThenName = []Sort{{Key: SortStock, Desc: true}, {Key: SortName}}

// Match evaluates p against a product in memory.
func Match(p Predicate, prod Product) bool {
	switch v := p.(type) {
	case nil:
		return true
	case And:
		for _, child := range v {
			if !Match(child, prod) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range v {
			if Match(child, prod) {
				return true
			}
		}
		return false
	case Contains:
		term := foldText(v.Term)
		for _, f := range v.Fields {
			if strings.Contains(foldText(fieldValue(prod, f)), term) {
				return true
			}
		}
		return false
	case PriceRange:
		if v.Min != nil && prod.Price < *v.Min {
			return false
		}
		if v.Max != nil && prod.Price > *v.Max {
			return false
		}
		return true
	case StockAtLeast:
		return prod.Stock >= v.N
	case StockAtMost:
		return prod.Stock <= v.N
	case YearEquals:
		return prod.Year == v.Year
	default:
		return false
	}
}

func foldText(s string) string {
	return strings.ToLower(nlu.FoldAccents(s))
}

func fieldValue(p Product, f Field) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldBrand:
		return p.Brand
	case FieldModel:
		return p.Model
	case FieldEngine:
		return p.Engine
	case FieldDescription:
		return p.Description
	default:
		return ""
	}
}

// SortProducts orders products in place.
func SortProducts(products []Product, order []Sort) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		for _, s := range order {
			var c int
			switch s.Key {
			case SortStock:
				c = compareInt(a.Stock, b.Stock)
			case SortPrice:
				c = compareFloat(a.Price, b.Price)
			case SortName:
				c = strings.Compare(a.Name, b.Name)
			}
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// sqlBuilder accumulates a WHERE clause and its arguments.
type sqlBuilder struct {
	dialect Dialect
	args    []interface{}
}

func (b *sqlBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return b.dialect.placeholder(len(b.args))
}

// where compiles p into a SQL boolean expression.
func (b *sqlBuilder) where(p Predicate) (string, error) {
	switch v := p.(type) {
	case nil:
		return "1=1", nil
	case And:
		return b.join(v, " AND ", "1=1")
	case Or:
		return b.join(v, " OR ", "1=0")
	case Contains:
		if len(v.Fields) == 0 {
			return "1=0", nil
		}
		pattern := "%" + escapeLike(foldText(v.Term)) + "%"
		parts := make([]string, 0, len(v.Fields))
		for _, f := range v.Fields {
			col, err := textColumn(f)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, foldColumn(col), b.arg(pattern)))
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case PriceRange:
		var parts []string
		if v.Min != nil {
			parts = append(parts, "p.price >= "+b.arg(*v.Min))
		}
		if v.Max != nil {
			parts = append(parts, "p.price <= "+b.arg(*v.Max))
		}
		if len(parts) == 0 {
			return "1=1", nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case StockAtLeast:
		return "p.stock >= " + b.arg(v.N), nil
	case StockAtMost:
		return "p.stock <= " + b.arg(v.N), nil
	case YearEquals:
		return "p.year = " + b.arg(v.Year), nil
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func (b *sqlBuilder) join(children []Predicate, sep, empty string) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		s, err := b.where(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func orderBy(order []Sort) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		var col string
		switch s.Key {
		case SortStock:
			col = "p.stock"
		case SortName:
			col = "p.name"
		case SortPrice:
			col = "p.price"
		default:
			return "", fmt.Errorf("unsupported sort key %q", s.Key)
		}
		if s.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		parts = append(parts, col)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func textColumn(f Field) (string, error) {
	switch f {
	case FieldName, FieldBrand, FieldModel, FieldEngine, FieldDescription:
		return "p." + string(f), nil
	default:
		return "", fmt.Errorf("unsupported field %q", f)
	}
}

// sqlFoldPairs are the accented letters folded in SQL. SQLite's LOWER only
// knows ASCII, so upper-case forms are listed as well.
var sqlFoldPairs = [][2]string{
	{"á", "a"}, {"à", "a"}, {"â", "a"}, {"ä", "a"}, {"ã", "a"},
	{"é", "e"}, {"è", "e"}, {"ê", "e"}, {"ë", "e"},
	{"í", "i"}, {"ì", "i"}, {"î", "i"}, {"ï", "i"},
	{"ó", "o"}, {"ò", "o"}, {"ô", "o"}, {"ö", "o"}, {"õ", "o"},
	{"ú", "u"}, {"ù", "u"}, {"û", "u"}, {"ü", "u"},
	{"ñ", "n"}, {"ç", "c"},
	{"Á", "a"}, {"É", "e"}, {"Í", "i"}, {"Ó", "o"}, {"Ú", "u"}, {"Ü", "u"},
	{"Ñ", "n"}, {"Ç", "c"},
}

// foldColumn wraps a text column in LOWER and REPLACE calls so it compares
// like foldText output. Both dialects support the expression.
func foldColumn(col string) string {
	expr := fmt.Sprintf("LOWER(COALESCE(%s, ''))", col)
	for _, p := range sqlFoldPairs {
		expr = fmt.Sprintf("REPLACE(%s, '%s', '%s')", expr, p[0], p[1])
	}
	return expr
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
