package bond

import "strings"

// Filter is the client-side filtering contract evaluated over display rows.
// All three predicates AND together; empty values always match.
type Filter struct {
	Term   string `json:"term"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// Matches reports whether the row satisfies every predicate of the filter.
func (f Filter) Matches(row ViewRow) bool {
	return MatchesTerm(row, f.Term) && MatchesStatus(row, f.Status) && MatchesType(row, f.Type)
}

// MatchesTerm reports whether term is a case-insensitive substring of the
// description, principal, job or obligee display fields.
func MatchesTerm(row ViewRow, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{row.Description, row.PrincipalName, row.JobName, row.ObligeeName} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// MatchesStatus reports whether the filter value is a substring of the row's
// status class.
func MatchesStatus(row ViewRow, status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return true
	}
	return strings.Contains(row.StatusClass, status)
}

// MatchesType reports whether the filter value equals the row type,
// case-insensitively.
func MatchesType(row ViewRow, typ string) bool {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return true
	}
	return strings.EqualFold(row.Type, typ)
}
