package show

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		title string
		show  Show
		err   error
	}{
		{`CONCURSO de ERUCTOS y GALA de DESPEDIDA de GIME ACCARDI | Soñé Que Volaba | COMPLETO 12/10`, SoneQueVolaba, nil},
		{`HOMERO "REDISTRIBUYE las RIQUEZAS" y cómo NO bailar SAMBA | Sería Increíble | COMPLETO 12/10`, SeriaIncreible, nil},
		{"sone que volaba 3/4", SoneQueVolaba, nil},
		{"SOÑE QUE VOLABA", SoneQueVolaba, nil},
		{"son que volaba", SoneQueVolaba, nil},
		{"soñ que volaba", SoneQueVolaba, nil},
		{"Soñé  que volaba", SoneQueVolaba, nil},
		{"seria increible", SeriaIncreible, nil},
		{"SERÍA INCREÍBLE", SeriaIncreible, nil},
		{"Seria Increíble | COMPLETO 21/9", SeriaIncreible, nil},
		{"Sería increíble y soñé que volaba", SeriaIncreible, nil},
		{"Soñé que volaba, sería increíble", SoneQueVolaba, nil},
		{"Olga en vivo | COMPLETO 21/9", "", ErrUnknownShow},
		{"", "", ErrUnknownShow},
		{"sería", "", ErrUnknownShow},
	} {
		t.Run(tc.title, func(t *testing.T) {
			a := assert.New(t)

			s, err := Classify(tc.title)
			if tc.err == nil {
				a.NoError(err)
				a.Equal(tc.show, s)
			} else {
				a.ErrorIs(err, tc.err)
				a.Equal(Show(""), s)
			}
		})
	}
}

func TestValid(t *testing.T) {
	a := assert.New(t)

	for _, s := range All() {
		a.True(s.Valid())

		p, err := Parse(string(s))
		a.NoError(err)
		a.Equal(s, p)
	}

	a.False(Show("olga").Valid())

	_, err := Parse("olga")
	a.Error(err)
}

func TestTitle(t *testing.T) {
	a := assert.New(t)

	a.Equal("Soñé Que Volaba", SoneQueVolaba.Title())
	a.Equal("Sería Increíble", SeriaIncreible.Title())
	a.Equal("olga", Show("olga").Title())

	for _, s := range All() {
		c, err := Classify("ENTREVISTA | " + s.Title() + " | COMPLETO 12/10")
		a.NoError(err)
		a.Equal(s, c, "a show's title classifies as that show")
	}
}
