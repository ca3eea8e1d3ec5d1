package visibility

// Verdict is the outcome of evaluating one condition.
type Verdict struct {
	Met bool
	// SourceAbsent is set when the source question has not been answered;
	// Met is always false in that case.
	SourceAbsent bool
}

// Evaluate checks a single condition against the answer to its source question.
// A nil answer means the source question is unanswered.
func Evaluate(cond Condition, answer *Answer) Verdict {
	v, ok := Normalize(answer)
	if !ok {
		return Verdict{SourceAbsent: true}
	}

	return Verdict{Met: cond.Operator.Apply(v, cond.Value)}
}
