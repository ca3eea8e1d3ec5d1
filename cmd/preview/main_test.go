package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paulexconde/surveyflow/internal/models"
)

const definition = `
title: Pets
questions:
  - id: 1
    text: Do you own a pet?
    type: radio
    order_index: 1
    options:
      - text: "Yes"
      - text: "No"
  - id: 2
    text: What kind?
    type: text
    order_index: 2
  - id: 3
    text: Anything else?
    type: textarea
    order_index: 3
conditions:
  - id: 10
    source: 1
    target: 2
    type: show_if
    operator: equals
    value: "Yes"
answers:
  - question: 1
    value: "No"
`

func TestRun(t *testing.T) {
	def, err := models.ParseDefinition([]byte(definition))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out bytes.Buffer
	if err := run(&out, def, 0, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"hidden by condition 10",
		"Visible (2 of 3):",
		"> 1. Do you own a pet?",
		"Progress: 50%, next: Anything else?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestRun_StrictRejectsCycles(t *testing.T) {
	def, err := models.ParseDefinition([]byte(definition + `
  - question: 2
    text: cat
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def.Conditions = append(def.Conditions, def.Conditions[0])
	def.Conditions[1].ID = 11
	def.Conditions[1].SourceQuestionID, def.Conditions[1].TargetQuestionID = 2, 1

	var out bytes.Buffer
	if err := run(&out, def, 0, true); err == nil {
		t.Fatal("expected strict mode to fail")
	}
	if !strings.Contains(out.String(), "conditions form a cycle") {
		t.Errorf("expected cycle to be reported:\n%s", out.String())
	}

	out.Reset()
	if err := run(&out, def, 0, false); err != nil {
		t.Errorf("expected non-strict mode to continue, got %v", err)
	}
}
