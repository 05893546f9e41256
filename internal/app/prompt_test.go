package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	got := SystemPrompt()
	assert.NotEmpty(t, got)
	assert.Contains(t, got, "internal")
	// Stable across calls.
	assert.Equal(t, got, SystemPrompt())
}

func TestBuildPromptLabelsContexts(t *testing.T) {
	got := BuildPrompt("How do I request vacation?", []string{
		"Vacation requests go through the HR portal.",
		"Approval takes up to three business days.",
	})

	assert.Contains(t, got, "How do I request vacation?")
	assert.Contains(t, got, "Context 1:\nVacation requests go through the HR portal.")
	assert.Contains(t, got, "Context 2:\nApproval takes up to three business days.")
	assert.Contains(t, got, "=== User question ===")
	assert.Contains(t, got, "=== Context from internal documents ===")

	// Question comes before the context section.
	qIdx := strings.Index(got, "How do I request vacation?")
	cIdx := strings.Index(got, "Context 1:")
	assert.Less(t, qIdx, cIdx)
}

func TestBuildPromptNoContexts(t *testing.T) {
	got := BuildPrompt("Who runs payroll?", nil)

	assert.Contains(t, got, "Who runs payroll?")
	assert.Contains(t, got, "=== Context from internal documents ===")
	assert.NotContains(t, got, "Context 1:")
}

func TestBuildPromptKeepsQueryVerbatim(t *testing.T) {
	query := "  spaced   query with === markers ===  "
	got := BuildPrompt(query, []string{"ctx"})
	assert.Contains(t, got, query)
}

func TestBuildTitlePrompt(t *testing.T) {
	got := buildTitlePrompt("I lost my badge, what now?")
	assert.Contains(t, got, "I lost my badge, what now?")
	assert.Contains(t, got, "title")
}
