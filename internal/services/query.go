package services

import (
	"fmt"
	"strings"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100

	// MaxPage keeps (Page-1)*Limit well inside int range.
	MaxPage = 1_000_000
)

// Page selects a window of a newest-first listing. Limit 0 means no limit.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 0 {
		p.Limit = 0
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	if p.Limit == 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Pages returns the number of pages needed for total rows.
func (p Page) Pages(total int) int {
	if p.Limit == 0 {
		if total == 0 {
			return 0
		}
		return 1
	}
	return (total + p.Limit - 1) / p.Limit
}

// whereBuilder accumulates AND-ed predicates with positional arguments.
// Each "?" in a clause is bound to the argument added with it.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// paginate appends LIMIT/OFFSET placeholders for p and returns the clause.
func (w *whereBuilder) paginate(p Page) string {
	if p.Limit == 0 {
		return ""
	}
	w.args = append(w.args, p.Limit, p.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
