package visibility

// Position describes where a respondent is within the visible questions.
type Position struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	First    bool    `json:"first"`
	Last     bool    `json:"last"`
}

// ClampIndex forces index into [0, total). An empty list clamps to 0.
func ClampIndex(index, total int) int {
	if total <= 0 || index < 0 {
		return 0
	}
	if index >= total {
		return total - 1
	}
	return index
}

// Progress is (index+1)/total for a clamped index, or 0 for an empty list.
func Progress(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(ClampIndex(index, total)+1) / float64(total)
}

// Locate derives the position for index over a list of total questions.
func Locate(index, total int) Position {
	index = ClampIndex(index, total)
	return Position{
		Index:    index,
		Total:    total,
		Progress: Progress(index, total),
		First:    index == 0,
		Last:     total == 0 || index == total-1,
	}
}

// IndexOf returns the index of questionID within visible, or -1.
func IndexOf[Q Identifiable](visible []Q, questionID int) int {
	for i, q := range visible {
		if q.QuestionID() == questionID {
			return i
		}
	}
	return -1
}

// Reanchor finds the question the respondent was on in a freshly resolved list.
// If it has been hidden, the previous index is clamped into the new bounds.
func Reanchor[Q Identifiable](visible []Q, questionID, previousIndex int) int {
	if i := IndexOf(visible, questionID); i >= 0 {
		return i
	}
	return ClampIndex(previousIndex, len(visible))
}

// NextQuestion returns the index that follows current within visible.
//
// This is the only place skip_to conditions are acted on: the first met
// skip_to whose source is the current question jumps to its target, provided
// the target is visible and ahead of the current question. Otherwise the next
// adjacent question is returned. ok is false at the end of the list.
func NextQuestion[Q Identifiable](visible []Q, current int, answers AnswerSet, conditions []Condition) (next int, ok bool) {
	if len(visible) == 0 {
		return 0, false
	}

	current = ClampIndex(current, len(visible))
	currentID := visible[current].QuestionID()

	for _, c := range conditions {
		if c.Type != SkipTo || c.SourceQuestionID != currentID {
			continue
		}
		if !Evaluate(c, answers.Lookup(currentID)).Met {
			continue
		}
		if target := IndexOf(visible, c.TargetQuestionID); target > current {
			return target, true
		}
	}

	if current+1 < len(visible) {
		return current + 1, true
	}
	return current, false
}

// PreviousQuestion returns the index before current. ok is false at the start.
func PreviousQuestion(current, total int) (prev int, ok bool) {
	current = ClampIndex(current, total)
	if current == 0 {
		return 0, false
	}
	return current - 1, true
}
