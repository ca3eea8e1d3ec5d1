package visibility

// Identifiable is anything that can stand in for a question in the resolver.
type Identifiable interface {
	QuestionID() int
}

// Decision records whether a question is visible and which conditions hid it.
type Decision struct {
	QuestionID   int   `json:"question_id"`
	Visible      bool  `json:"visible"`
	SuppressedBy []int `json:"suppressed_by,omitempty"`
}

// Decide computes the visibility of every question, in input order.
//
// All conditions targeting a question are combined with AND: any unmet show_if
// or any met hide_if hides it. A show_if whose source question is unanswered
// hides the target; a hide_if with an unanswered source does nothing. skip_to
// conditions never affect visibility.
func Decide[Q Identifiable](questions []Q, answers AnswerSet, conditions []Condition) []Decision {
	byTarget := make(map[int][]Condition, len(conditions))
	for _, c := range conditions {
		byTarget[c.TargetQuestionID] = append(byTarget[c.TargetQuestionID], c)
	}

	decisions := make([]Decision, 0, len(questions))
	for _, q := range questions {
		id := q.QuestionID()
		d := Decision{QuestionID: id, Visible: true}

		for _, c := range byTarget[id] {
			if suppresses(c, answers) {
				d.Visible = false
				d.SuppressedBy = append(d.SuppressedBy, c.ID)
			}
		}

		decisions = append(decisions, d)
	}

	return decisions
}

func suppresses(c Condition, answers AnswerSet) bool {
	verdict := Evaluate(c, answers.Lookup(c.SourceQuestionID))

	switch c.Type {
	case ShowIf:
		return verdict.SourceAbsent || !verdict.Met
	case HideIf:
		return !verdict.SourceAbsent && verdict.Met
	default:
		return false
	}
}

// ResolveVisible returns the questions a respondent should currently see,
// keeping their relative order. It is pure: call it again after every answer
// change rather than patching a previous result. The result never shares
// storage with questions.
func ResolveVisible[Q Identifiable](questions []Q, answers AnswerSet, conditions []Condition) []Q {
	if len(conditions) == 0 {
		visible := make([]Q, len(questions))
		copy(visible, questions)
		return visible
	}

	decisions := Decide(questions, answers, conditions)

	visible := make([]Q, 0, len(questions))
	for i, d := range decisions {
		if d.Visible {
			visible = append(visible, questions[i])
		}
	}

	return visible
}

// VisibleIDs is ResolveVisible reduced to question ids.
func VisibleIDs[Q Identifiable](questions []Q, answers AnswerSet, conditions []Condition) []int {
	visible := ResolveVisible(questions, answers, conditions)

	ids := make([]int, 0, len(visible))
	for _, q := range visible {
		ids = append(ids, q.QuestionID())
	}
	return ids
}

// Settle resolves visibility using only answers to visible questions. An
// answer to a hidden question is dropped and the questions are resolved
// again, until no answer is dropped, so a hidden question can never gate
// another one. answers is left untouched; the kept answers are returned.
func Settle[Q Identifiable](questions []Q, answers AnswerSet, conditions []Condition) ([]Q, AnswerSet) {
	kept := make(AnswerSet, len(answers))
	for id, a := range answers {
		kept[id] = a
	}

	for {
		visible := ResolveVisible(questions, kept, conditions)

		shown := make(map[int]bool, len(visible))
		for _, q := range visible {
			shown[q.QuestionID()] = true
		}

		dropped := false
		for id := range kept {
			if !shown[id] {
				delete(kept, id)
				dropped = true
			}
		}

		if !dropped {
			return visible, kept
		}
	}
}
