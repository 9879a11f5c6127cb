package quiz

import (
	"cmp"
	"slices"
	"strings"
)

// ConjugationCell is the outcome for one (form, mode) pair of a drill.
type ConjugationCell struct {
	Form      ConjugationForm `json:"form"`
	Mode      InputMode       `json:"mode"`
	IsMatch   bool            `json:"isMatch"`
	Empty     bool            `json:"empty,omitempty"`
	Converted string          `json:"converted,omitempty"`
}

// ValidateConjugations matches every (form, mode) answer against the
// expected surface for that cell. Cells left empty are still reported, with
// Empty set, so a feedback table can show them. Cells come back in drill
// order: by form, then by mode.
func (v *Validator) ValidateConjugations(answers, expected map[ConjugationForm]map[InputMode]string) []ConjugationCell {
	forms := make([]ConjugationForm, 0, len(answers))
	for f := range answers {
		forms = append(forms, f)
	}
	slices.SortFunc(forms, func(a, b ConjugationForm) int {
		return cmp.Or(cmp.Compare(formRank(a), formRank(b)), strings.Compare(string(a), string(b)))
	})

	var cells []ConjugationCell
	for _, form := range forms {
		byMode := answers[form]
		modes := make([]InputMode, 0, len(byMode))
		for m := range byMode {
			modes = append(modes, m)
		}
		slices.SortFunc(modes, func(a, b InputMode) int {
			return cmp.Or(cmp.Compare(modeRank(a), modeRank(b)), strings.Compare(string(a), string(b)))
		})

		for _, mode := range modes {
			answer := byMode[mode]
			cell := ConjugationCell{Form: form, Mode: mode}
			if strings.TrimSpace(answer) == "" {
				cell.Empty = true
				cells = append(cells, cell)
				continue
			}
			var want []string
			if e, ok := expected[form][mode]; ok {
				want = []string{e}
			}
			mr := v.matcher.Match(answer, want, mode, v.pref)
			cell.IsMatch = mr.IsMatch
			cell.Converted = mr.Converted
			cells = append(cells, cell)
		}
	}

	correct, total := Tally(cells)
	Logger.Debug().Int("correct", correct).Int("total", total).Msg("validated conjugations")
	return cells
}

// Tally counts matched cells.
func Tally(cells []ConjugationCell) (correct, total int) {
	for _, c := range cells {
		if c.IsMatch {
			correct++
		}
	}
	return correct, len(cells)
}
