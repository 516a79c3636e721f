// Package sqlexec implements C7: validating, running, and decoding the
// SQL statements internal/sqltranslate produces, under a per-query
// timeout and row cap.
package sqlexec

import (
	"fmt"
	"strings"

	"github.com/accented-ai/quadsparql/internal/apperr"
	"github.com/accented-ai/quadsparql/internal/sqllex"
)

// denyListedKeywords are statement keywords that must never appear as
// a top-level token in translator-generated SQL; their presence means
// the query is something other than the read-only SELECT/WITH shape
// the translator is supposed to emit.
var denyListedKeywords = map[string]struct{}{ //nolint:gochecknoglobals
	"DROP": {}, "ALTER": {}, "TRUNCATE": {}, "GRANT": {}, "REVOKE": {}, "CREATE": {},
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "COPY": {}, "VACUUM": {}, "EXECUTE": {}, "CALL": {},
	"DO": {}, "SET": {},
}

// Validate tokenizes sql with sqllex and rejects it if a statement
// separator or a deny-listed keyword appears outside a string/
// dollar-quoted literal — guarding against a translator bug emitting
// more than the single read-only statement it is meant to.
func Validate(sql string) error {
	tokens, err := sqllex.NewLexer(sql).Tokenize()
	if err != nil {
		return apperr.Wrap(apperr.KindTranslationError, "validate generated sql", err)
	}

	for i, tok := range tokens {
		switch tok.Type {
		case sqllex.TokenSemicolon:
			if i != len(tokens)-2 { // trailing ";" immediately before EOF is tolerated
				return apperr.New(apperr.KindTranslationError, "validate generated sql",
					"generated SQL contains more than one statement")
			}
		case sqllex.TokenKeyword:
			if _, denied := denyListedKeywords[strings.ToUpper(tok.Literal)]; denied {
				return apperr.New(apperr.KindTranslationError, "validate generated sql",
					fmt.Sprintf("generated SQL contains forbidden keyword %q at line %d", tok.Literal, tok.Line))
			}
		}
	}

	return nil
}
