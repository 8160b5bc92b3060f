package embed

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

var errInvalidCSS = errors.New("invalid css")

// validateCSS accepts a list of declarations ("color: red; width: 50%") or
// rule blocks wrapping such lists ("p { color: red }").
func validateCSS(src string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}

	inline := !strings.ContainsAny(src, "{}")
	p := css.NewParser(parse.NewInputString(src), inline)

	depth, rules := 0, 0
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			err := p.Err()
			if err == nil {
				return fmt.Errorf("syntax error near %q: %w", data, errInvalidCSS)
			}
			if err != io.EOF {
				return fmt.Errorf("%v: %w", err, errInvalidCSS)
			}
			if depth != 0 {
				return fmt.Errorf("unclosed block: %w", errInvalidCSS)
			}
			if !inline && rules == 0 {
				return fmt.Errorf("braces without a rule block: %w", errInvalidCSS)
			}
			return nil

		case css.CommentGrammar:

		case css.QualifiedRuleGrammar, css.BeginRulesetGrammar:
			if depth > 0 {
				return fmt.Errorf("nested block: %w", errInvalidCSS)
			}
			if !hasContent(p.Values()) {
				return fmt.Errorf("block without selector: %w", errInvalidCSS)
			}
			if gt == css.BeginRulesetGrammar {
				depth++
				rules++
			}

		case css.EndRulesetGrammar:
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced brace: %w", errInvalidCSS)
			}

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			values := p.Values()
			if !hasContent(values) {
				return fmt.Errorf("empty value for %q: %w", data, errInvalidCSS)
			}
			for _, v := range values {
				if v.TokenType == css.BadStringToken || v.TokenType == css.BadURLToken {
					return fmt.Errorf("malformed value for %q: %w", data, errInvalidCSS)
				}
			}

		default:
			return fmt.Errorf("unexpected %s %q: %w", gt, data, errInvalidCSS)
		}
	}
}

func hasContent(tokens []css.Token) bool {
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken && t.TokenType != css.CommentToken {
			return true
		}
	}
	return false
}
