package visibility

import (
	"reflect"
	"testing"
)

// The pet survey: 1 "Do you own a pet?", 2 "What kind?", 3 "Any allergies?",
// 4 "Which allergies?".
func petQuestions() []ID {
	return []ID{1, 2, 3, 4}
}

func ids(qs []ID) []int {
	out := make([]int, 0, len(qs))
	for _, q := range qs {
		out = append(out, int(q))
	}
	return out
}

func TestResolveVisible_NoConditionsIsIdentity(t *testing.T) {
	questions := []ID{3, 1, 2}

	got := ResolveVisible(questions, NewAnswerSet(Answer{QuestionID: 1, Value: "x"}), nil)
	if !reflect.DeepEqual(got, questions) {
		t.Errorf("expected %v unchanged, got %v", questions, got)
	}
}

func TestResolveVisible_ShowIfGating(t *testing.T) {
	conditions := []Condition{
		{ID: 10, SourceQuestionID: 1, TargetQuestionID: 2, Type: ShowIf, Operator: Equals, Value: "Yes"},
	}

	tests := []struct {
		name     string
		answers  AnswerSet
		expected []int
	}{
		{"unanswered", AnswerSet{}, []int{1, 3, 4}},
		{"answered no", NewAnswerSet(Answer{QuestionID: 1, Value: "No"}), []int{1, 3, 4}},
		{"answered Yes", NewAnswerSet(Answer{QuestionID: 1, Value: "Yes"}), []int{1, 2, 3, 4}},
		{"answered yes lowercase", NewAnswerSet(Answer{QuestionID: 1, Text: "yes"}), []int{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(ResolveVisible(petQuestions(), tt.answers, conditions))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ResolveVisible() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResolveVisible_HideIfDefaultsVisible(t *testing.T) {
	conditions := []Condition{
		{ID: 11, SourceQuestionID: 3, TargetQuestionID: 4, Type: HideIf, Operator: Equals, Value: "No"},
	}

	got := ids(ResolveVisible(petQuestions(), AnswerSet{}, conditions))
	if !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Errorf("expected hide_if with unanswered source to keep target visible, got %v", got)
	}

	got = ids(ResolveVisible(petQuestions(), NewAnswerSet(Answer{QuestionID: 3, Value: "no"}), conditions))
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("expected met hide_if to hide target, got %v", got)
	}
}

func TestResolveVisible_ConditionsCombineWithAnd(t *testing.T) {
	conditions := []Condition{
		{ID: 1, SourceQuestionID: 1, TargetQuestionID: 4, Type: ShowIf, Operator: Equals, Value: "Yes"},
		{ID: 2, SourceQuestionID: 3, TargetQuestionID: 4, Type: HideIf, Operator: Equals, Value: "None"},
	}
	answers := NewAnswerSet(
		Answer{QuestionID: 1, Value: "Yes"},
		Answer{QuestionID: 3, Value: "None"},
	)

	got := ids(ResolveVisible(petQuestions(), answers, conditions))
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("expected hide to win over satisfied show, got %v", got)
	}

	decisions := Decide(petQuestions(), answers, conditions)
	if d := decisions[3]; d.Visible || !reflect.DeepEqual(d.SuppressedBy, []int{2}) {
		t.Errorf("expected question 4 suppressed by condition 2, got %+v", d)
	}
}

func TestResolveVisible_SkipToDoesNotAffectVisibility(t *testing.T) {
	conditions := []Condition{
		{ID: 1, SourceQuestionID: 1, TargetQuestionID: 4, Type: SkipTo, Operator: Equals, Value: "No"},
	}

	got := ids(ResolveVisible(petQuestions(), NewAnswerSet(Answer{QuestionID: 1, Value: "No"}), conditions))
	if !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Errorf("expected skip_to to be ignored by the resolver, got %v", got)
	}
}

func TestResolveVisible_UnknownReferences(t *testing.T) {
	conditions := []Condition{
		// Target not in the question list: never matched.
		{ID: 1, SourceQuestionID: 1, TargetQuestionID: 99, Type: ShowIf, Operator: Equals, Value: "Yes"},
		// Source does not exist: same as unanswered.
		{ID: 2, SourceQuestionID: 98, TargetQuestionID: 3, Type: ShowIf, Operator: IsNotEmpty},
		{ID: 3, SourceQuestionID: 97, TargetQuestionID: 2, Type: HideIf, Operator: IsEmpty},
		// Unknown operator fails closed.
		{ID: 4, SourceQuestionID: 1, TargetQuestionID: 4, Type: ShowIf, Operator: "regex", Value: ".*"},
	}

	got := ids(ResolveVisible(petQuestions(), NewAnswerSet(Answer{QuestionID: 1, Value: "Yes"}), conditions))
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("ResolveVisible() = %v, want [1 2]", got)
	}
}

func TestResolveVisible_OrderIndependentOfConditionOrder(t *testing.T) {
	conditions := []Condition{
		{ID: 1, SourceQuestionID: 1, TargetQuestionID: 4, Type: HideIf, Operator: Equals, Value: "No"},
		{ID: 2, SourceQuestionID: 1, TargetQuestionID: 2, Type: ShowIf, Operator: Equals, Value: "Yes"},
		{ID: 3, SourceQuestionID: 2, TargetQuestionID: 3, Type: ShowIf, Operator: IsNotEmpty},
	}
	reversed := []Condition{conditions[2], conditions[1], conditions[0]}
	answers := NewAnswerSet(Answer{QuestionID: 1, Value: "Yes"}, Answer{QuestionID: 2, Value: "Cat"})

	a := ids(ResolveVisible(petQuestions(), answers, conditions))
	b := ids(ResolveVisible(petQuestions(), answers, reversed))
	if !reflect.DeepEqual(a, []int{1, 2, 3, 4}) || !reflect.DeepEqual(a, b) {
		t.Errorf("expected [1 2 3 4] regardless of condition order, got %v and %v", a, b)
	}
}

func TestResolveVisible_Deterministic(t *testing.T) {
	conditions := []Condition{
		{ID: 1, SourceQuestionID: 1, TargetQuestionID: 2, Type: ShowIf, Operator: Equals, Value: "Yes"},
		{ID: 2, SourceQuestionID: 2, TargetQuestionID: 1, Type: HideIf, Operator: IsNotEmpty},
	}
	answers := NewAnswerSet(Answer{QuestionID: 1, Value: "Yes"}, Answer{QuestionID: 2, Value: "Dog"})

	first := ids(ResolveVisible(petQuestions(), answers, conditions))
	for i := 0; i < 10; i++ {
		if got := ids(ResolveVisible(petQuestions(), answers, conditions)); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %v, want %v", i, got, first)
		}
	}
	// The cycle is not detected here; both effects simply apply.
	if !reflect.DeepEqual(first, []int{2, 3, 4}) {
		t.Errorf("expected [2 3 4], got %v", first)
	}
}

func TestResolveVisible_RecomputesAfterAnswerCleared(t *testing.T) {
	conditions := []Condition{
		{ID: 1, SourceQuestionID: 1, TargetQuestionID: 2, Type: ShowIf, Operator: Equals, Value: "Yes"},
	}
	answers := NewAnswerSet(Answer{QuestionID: 1, Value: "Yes"})

	if got := VisibleIDs(petQuestions(), answers, conditions); !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Fatalf("expected target visible, got %v", got)
	}

	delete(answers, 1)
	if got := VisibleIDs(petQuestions(), answers, conditions); !reflect.DeepEqual(got, []int{1, 3, 4}) {
		t.Errorf("expected target hidden after clearing, got %v", got)
	}
}

func TestResolveVisible_DoesNotShareStorage(t *testing.T) {
	questions := make([]ID, 3, 4)
	copy(questions, []ID{1, 2, 3})

	got := ResolveVisible(questions, nil, nil)
	got = append(got, 9)
	got[0] = 7

	if !reflect.DeepEqual(questions, []ID{1, 2, 3}) || questions[:4][3] != 0 {
		t.Errorf("expected input untouched, got %v", questions[:4])
	}
}

func TestSettle(t *testing.T) {
	// 2 is shown when 1 is "Yes"; 3 is shown when 2 has any answer.
	conditions := []Condition{
		{ID: 1, SourceQuestionID: 1, TargetQuestionID: 2, Type: ShowIf, Operator: Equals, Value: "Yes"},
		{ID: 2, SourceQuestionID: 2, TargetQuestionID: 3, Type: ShowIf, Operator: IsNotEmpty},
	}

	tests := []struct {
		name     string
		answers  AnswerSet
		expected []int
		kept     []int
	}{
		{
			name: "stale answer no longer gates",
			answers: NewAnswerSet(
				Answer{QuestionID: 1, Value: "No"},
				Answer{QuestionID: 2, Value: "Cat"},
				Answer{QuestionID: 3, Value: "Sneezing"},
			),
			expected: []int{1, 4},
			kept:     []int{1},
		},
		{
			name: "whole chain open",
			answers: NewAnswerSet(
				Answer{QuestionID: 1, Value: "Yes"},
				Answer{QuestionID: 2, Value: "Cat"},
			),
			expected: []int{1, 2, 3, 4},
			kept:     []int{1, 2},
		},
		{
			name:     "no answers",
			answers:  AnswerSet{},
			expected: []int{1, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(tt.answers)

			visible, kept := Settle(petQuestions(), tt.answers, conditions)
			if got := ids(visible); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected visible %v, got %v", tt.expected, got)
			}

			if len(kept) != len(tt.kept) {
				t.Errorf("expected kept answers %v, got %v", tt.kept, kept)
			}
			for _, id := range tt.kept {
				if _, ok := kept[id]; !ok {
					t.Errorf("expected answer %d to be kept", id)
				}
			}
			if len(tt.answers) != before {
				t.Error("input answers must not be modified")
			}

			// The kept answers resolve to the same list on their own.
			if again := VisibleIDs(petQuestions(), kept, conditions); !reflect.DeepEqual(again, tt.expected) {
				t.Errorf("kept answers resolve to %v, want %v", again, tt.expected)
			}
		})
	}
}
