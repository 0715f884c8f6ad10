package show

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Show string

const (
	SoneQueVolaba  = Show("sone-que-volaba")
	SeriaIncreible = Show("seria-increible")
)

var ErrUnknownShow = fmt.Errorf("title does not contain a known show name")

func All() []Show {
	return []Show{SoneQueVolaba, SeriaIncreible}
}

func (s Show) Valid() bool {
	switch s {
	case SoneQueVolaba, SeriaIncreible:
		return true
	default:
		return false
	}
}

func (s Show) Title() string {
	switch s {
	case SoneQueVolaba:
		return "Soñé Que Volaba"
	case SeriaIncreible:
		return "Sería Increíble"
	default:
		return string(s)
	}
}

func Parse(s string) (Show, error) {
	if v := Show(strings.TrimSpace(s)); v.Valid() {
		return v, nil
	}

	return "", fmt.Errorf("show.Parse: %q is not a known show", s)
}

// titles are folded before matching, so the patterns only need to cover the
// unaccented spelling and the optional "e" in "soñé"
var (
	seriaIncreiblePattern = regexp.MustCompile(`seria\s+increible`)
	soneQueVolabaPattern  = regexp.MustCompile(`sone?\s+que\s+volaba`)
)

var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

func fold(s string) string {
	tr := foldPool.Get().(transform.Transformer)
	defer foldPool.Put(tr)

	tr.Reset()

	folded, _, err := transform.String(tr, s)
	if err != nil {
		folded = s
	}

	return strings.ToLower(folded)
}

func Classify(title string) (Show, error) {
	folded := fold(title)

	seria := seriaIncreiblePattern.FindStringIndex(folded)
	volaba := soneQueVolabaPattern.FindStringIndex(folded)

	switch {
	case seria == nil && volaba == nil:
		return "", fmt.Errorf("show.Classify: %q: %w", title, ErrUnknownShow)
	case seria == nil:
		return SoneQueVolaba, nil
	case volaba == nil:
		return SeriaIncreible, nil
	case volaba[0] < seria[0]:
		return SoneQueVolaba, nil
	default:
		return SeriaIncreible, nil
	}
}
