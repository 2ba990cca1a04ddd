package retrieval

import (
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

// Strategy names one step of the search cascade.
type Strategy string

// Cascade steps, most to least restrictive.
const (
	StrategyStrict       Strategy = "strict"
	StrategyRelaxedStock Strategy = "relaxed_stock"
	StrategyLoose        Strategy = "loose"
	StrategyGradeOnly    Strategy = "grade_only"
)

// step is one planned query of the cascade.
type step struct {
	strategy Strategy
	filter   storage.Predicate
}

// plan returns the steps to try for criteria, in order. Relaxed-stock is
// omitted when no stock filter was requested because it would repeat the
// strict query verbatim; grade-only is omitted when there are no grades.
func plan(c nlu.SearchCriteria) []step {
	steps := []step{{StrategyStrict, StrictFilter(c)}}
	if c.InStock != nil {
		steps = append(steps, step{StrategyRelaxedStock, RelaxedStockFilter(c)})
	}
	steps = append(steps, step{StrategyLoose, LooseFilter(c)})
	if len(c.Grades) > 0 {
		steps = append(steps, step{StrategyGradeOnly, GradeOnlyFilter(c)})
	}
	return steps
}

// StrictFilter requires every token and every grade, plus all attribute,
// price and stock filters.
func StrictFilter(c nlu.SearchCriteria) storage.Predicate {
	return allTerms(c, true)
}

// RelaxedStockFilter is StrictFilter without the stock condition.
func RelaxedStockFilter(c nlu.SearchCriteria) storage.Predicate {
	return allTerms(c, false)
}

func allTerms(c nlu.SearchCriteria, withStock bool) storage.And {
	clauses := storage.And{}
	for _, tok := range c.Tokens {
		clauses = append(clauses, tokenClause(tok))
	}
	for _, g := range c.Grades {
		clauses = append(clauses, gradeClause(g))
	}
	return append(clauses, attributeFilters(c, withStock)...)
}

// LooseFilter accepts a product that hits any single token or grade spelling.
// Attribute and price filters still apply; stock does not. With no terms at
// all only the attribute filters remain, so the strict result is always a
// subset of the loose one.
func LooseFilter(c nlu.SearchCriteria) storage.Predicate {
	hits := storage.Or{}
	for _, tok := range c.Tokens {
		hits = append(hits, tokenClause(tok))
	}
	for _, g := range c.Grades {
		for _, v := range nlu.GradeVariants(g) {
			hits = append(hits, tokenClause(v))
		}
	}

	clauses := storage.And{}
	if len(hits) > 0 {
		clauses = append(clauses, hits)
	}
	return append(clauses, attributeFilters(c, false)...)
}

// GradeOnlyFilter matches any spelling of any grade and ignores everything
// else. It matches nothing when criteria has no grades.
func GradeOnlyFilter(c nlu.SearchCriteria) storage.Predicate {
	hits := storage.Or{}
	for _, g := range c.Grades {
		for _, v := range nlu.GradeVariants(g) {
			hits = append(hits, tokenClause(v))
		}
	}
	return hits
}

func tokenClause(term string) storage.Predicate {
	return storage.Contains{Term: term, Fields: storage.TextFields}
}

// gradeClause matches one grade in any of its catalog spellings.
func gradeClause(grade string) storage.Predicate {
	variants := nlu.GradeVariants(grade)
	or := make(storage.Or, 0, len(variants))
	for _, v := range variants {
		or = append(or, tokenClause(v))
	}
	return or
}

func attributeFilters(c nlu.SearchCriteria, withStock bool) []storage.Predicate {
	var out []storage.Predicate
	if c.Brand != "" {
		out = append(out, storage.Contains{Term: c.Brand, Fields: []storage.Field{storage.FieldBrand}})
	}
	if c.Model != "" {
		out = append(out, storage.Contains{Term: c.Model, Fields: []storage.Field{storage.FieldModel}})
	}
	if c.Engine != "" {
		out = append(out, storage.Contains{Term: c.Engine, Fields: []storage.Field{storage.FieldEngine}})
	}
	if c.Year > 0 {
		out = append(out, storage.YearEquals{Year: c.Year})
	}
	if c.PriceMin != nil || c.PriceMax != nil {
		out = append(out, storage.PriceRange{Min: c.PriceMin, Max: c.PriceMax})
	}
	if withStock && c.InStock != nil {
		if *c.InStock {
			out = append(out, storage.StockAtLeast{N: 1})
		} else {
			out = append(out, storage.StockAtMost{N: 0})
		}
	}
	return out
}
