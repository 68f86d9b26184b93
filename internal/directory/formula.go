package directory

import (
	"fmt"
	"strings"
)

// EmailEqualsFormula matches the record whose Email field equals the given
// address, case-insensitively.
func EmailEqualsFormula(email string) string {
	exact := escapeFormulaValue(email)
	lower := escapeFormulaValue(strings.ToLower(email))
	return fmt.Sprintf("OR({Email} = '%s', LOWER({Email}) = '%s')", exact, lower)
}

// LinkedToFormula matches records whose linked-record field contains the
// given record id.
func LinkedToFormula(field, id string) string {
	return fmt.Sprintf("FIND('%s', {%s})", escapeFormulaValue(id), field)
}

func escapeFormulaValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, "'", `\'`)
}
