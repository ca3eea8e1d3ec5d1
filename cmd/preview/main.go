package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/pkg/visibility"
)

func main() {
	file := flag.String("file", "config/sample_survey.yaml", "survey definition to preview")
	index := flag.Int("index", 0, "position of the respondent among the visible questions")
	strict := flag.Bool("strict", false, "fail when the definition has problems, including condition cycles")
	flag.Parse()

	def, err := models.LoadDefinition(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(os.Stdout, def, *index, *strict); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(w io.Writer, def *models.Definition, index int, strict bool) error {
	if problems := def.Problems(); len(problems) > 0 {
		fmt.Fprintln(w, "Problems:")
		for _, p := range problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		if strict {
			return fmt.Errorf("definition has %d problem(s)", len(problems))
		}
		fmt.Fprintln(w)
	}

	answers := visibility.NewAnswerSet(def.Answers...)
	decisions := visibility.Decide(def.Questions, answers, def.Conditions)

	if def.Title != "" {
		fmt.Fprintf(w, "%s\n\n", def.Title)
	}

	fmt.Fprintln(w, "Decisions:")
	for i, d := range decisions {
		q := def.Questions[i]
		state := "visible"
		if !d.Visible {
			state = fmt.Sprintf("hidden by %s", joinIDs(d.SuppressedBy))
		}
		fmt.Fprintf(w, "  [%d] %-40s %s\n", q.ID, q.Text, state)
	}

	visible := visibility.ResolveVisible(def.Questions, answers, def.Conditions)
	pos := visibility.Locate(index, len(visible))

	fmt.Fprintf(w, "\nVisible (%d of %d):\n", len(visible), len(def.Questions))
	for i, q := range visible {
		marker := " "
		if i == pos.Index && pos.Total > 0 {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %d. %s\n", marker, i+1, q.Text)
	}

	fmt.Fprintf(w, "\nProgress: %.0f%%", pos.Progress*100)
	if next, ok := visibility.NextQuestion(visible, pos.Index, answers, def.Conditions); ok {
		fmt.Fprintf(w, ", next: %s", visible[next].Text)
	}
	fmt.Fprintln(w)

	return nil
}

func joinIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("condition %d", id))
	}
	return strings.Join(parts, ", ")
}
