package cms

import (
	"fmt"
	"strings"
)

// DraftsFilter excludes documents living under the drafts path.
const DraftsFilter = `!(_id in path("drafts.**"))`

// Filter is one equality constraint. Value is always sent as a $param,
// never spliced into the query text.
type Filter struct {
	Field string // GROQ path: "featured", "slug.current", "category->name"
	Param string
	Value any
}

// Eq builds an equality filter bound to $param.
func Eq(field, param string, value any) Filter {
	return Filter{Field: field, Param: param, Value: value}
}

// Query describes a document query against the content source.
type Query struct {
	Type          string
	Filters       []Filter
	ExcludeDrafts bool
	OrderBy       string // field ordered descending
	Limit         int    // 0 = no slice
	First         bool   // select a single document ([0])
	Projection    string
}

// GROQ renders the query text and its parameters.
func (q Query) GROQ() (string, map[string]any) {
	var sb strings.Builder
	params := make(map[string]any, len(q.Filters))

	conds := []string{fmt.Sprintf("_type == %q", q.Type)}
	for _, f := range q.Filters {
		conds = append(conds, fmt.Sprintf("%s == $%s", f.Field, f.Param))
		params[f.Param] = f.Value
	}
	if q.ExcludeDrafts {
		conds = append(conds, DraftsFilter)
	}

	sb.WriteString("*[")
	sb.WriteString(strings.Join(conds, " && "))
	sb.WriteString("]")

	if q.OrderBy != "" {
		fmt.Fprintf(&sb, " | order(%s desc)", q.OrderBy)
	}

	switch {
	case q.First:
		sb.WriteString("[0]")
	case q.Limit > 0:
		fmt.Fprintf(&sb, "[0...%d]", q.Limit)
	}

	if q.Projection != "" {
		sb.WriteString(" ")
		sb.WriteString(strings.TrimSpace(q.Projection))
	}

	return sb.String(), params
}

// Param returns the value bound to name, if any.
func (q Query) Param(name string) (any, bool) {
	for _, f := range q.Filters {
		if f.Param == name {
			return f.Value, true
		}
	}
	return nil, false
}
