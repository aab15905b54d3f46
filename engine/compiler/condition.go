package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bibkit/marcpick/engine"
)

// condToken matches one condition token: 3 tag characters, 2 variant
// characters, 1 selector character, then an optional regex body running to
// the next literal space or close-parenthesis.
var condToken = regexp.MustCompile(`[0-9A-Za-z@]{3}[0-9A-Za-z@#]{2}[0-9A-Za-z@][^ )]*`)

// Stand-ins for escaped characters so they survive token extraction without
// acting as token or group boundaries.
const (
	escSpace = "\t" // `\ `
	escParen = "\v" // `\)`
)

// CompileCondition parses the condition text into its condition list, the
// boolean-combination AST, and the placeholder skeleton the AST was parsed
// from. Empty (or whitespace-only) text is valid and yields zero conditions
// and a nil AST.
func CompileCondition(text string) ([]engine.Condition, *engine.ComboNode, string, error) {
	s := strings.TrimSpace(text)
	s = strings.NewReplacer("\r", "", "\n", "", `\ `, escSpace, `\)`, escParen).Replace(s)
	if s == "" {
		return nil, nil, "", nil
	}

	tokens := condToken.FindAllString(s, -1)
	conds := make([]engine.Condition, 0, len(tokens))
	for _, tok := range tokens {
		if !isPrintable([]rune(tok[:6])) {
			return nil, nil, "", fmt.Errorf("condition %q has a non-printable label", tok)
		}
		var re *regexp.Regexp
		if len(tok) > 6 {
			body := strings.NewReplacer(escSpace, " ", escParen, ")").Replace(tok[6:])
			var err error
			re, err = regexp.Compile(body)
			if err != nil {
				return nil, nil, "", fmt.Errorf("condition %q: %w", tok, err)
			}
		}
		label := strings.ReplaceAll(strings.ToLower(tok[:6]), string(engine.Ind), " ")
		conds = append(conds, engine.Condition{Label: label, Regex: re})
	}

	skeleton := strings.ToLower(condToken.ReplaceAllString(s, "{}"))
	if strings.Count(skeleton, "{}") != len(conds) {
		return nil, nil, "", fmt.Errorf("placeholder count does not match %d conditions", len(conds))
	}
	combo, err := ParseCombo(skeleton)
	if err != nil {
		return nil, nil, "", err
	}
	return conds, combo, skeleton, nil
}
