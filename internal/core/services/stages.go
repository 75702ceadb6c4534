package services

import (
	"fmt"

	"github.com/crewboard/backend/internal/domain"
)

// A stageDef is one step of the simulated drafting pipeline. Stages run in
// list order with staggered start offsets; each is bound to the agent at the
// same position in creation order. produce yields the stage's canned
// outputs for a task; rest is the status the agent settles into afterwards.
type stageDef struct {
	name    string
	rest    domain.AgentStatus
	produce func(content string) []string
}

var stageDefs = []stageDef{
	{
		name: "research",
		rest: domain.AgentStatusIdle,
		produce: func(content string) []string {
			return []string{fmt.Sprintf(
				"I'm researching %q.\n\nKey findings:\n"+
					"- Multi-agent pipelines split drafting into specialized roles\n"+
					"- Real-time delivery works best over a persistent channel\n"+
					"- Relevant documentation and prior art collected for the writer", content)}
		},
	},
	{
		name: "draft",
		rest: domain.AgentStatusStandby,
		produce: func(content string) []string {
			return []string{fmt.Sprintf(
				"Drafting an outline from the research on %q:\n\n"+
					"### Draft Structure\n"+
					"1. Introduction\n2. Background\n3. Core approach\n4. Next steps\n\n"+
					"Writing the introduction section now...", content)}
		},
	},
	{
		name: "edit",
		rest: domain.AgentStatusStandby,
		produce: func(content string) []string {
			return []string{
				"Reviewing the current draft.\n\nSuggestions:\n" +
					"1. Tighten the introduction\n" +
					"2. Add concrete examples to the core section\n" +
					"3. Keep terminology consistent throughout\n\n" +
					"Handing the revised structure back to the writer.",
			}
		},
	},
	{
		name: "validate",
		rest: domain.AgentStatusIdle,
		produce: func(content string) []string {
			return []string{
				"Running quality checks on the final output.\n\n" +
					"Validation results:\n" +
					"- Structure matches the outline\n" +
					"- No unresolved review comments\n" +
					"- Content addresses the submitted task\n\n" +
					"Recommendation: approved.",
			}
		},
	},
}

// defaultAgents seeds the fixed crew when storage is empty. Order matters:
// stage k is bound to agent k.
var defaultAgents = []struct {
	Name, Role, Icon, Color string
}{
	{"Research Agent", "Gathers relevant information from various sources", "ri-search-line", "#0078D4"},
	{"Content Writer", "Creates well-structured, informative content", "ri-file-text-line", "#107C10"},
	{"Editor Agent", "Reviews and improves content quality", "ri-edit-2-line", "#FFB900"},
	{"QA Agent", "Tests and validates final outputs", "ri-test-tube-line", "#E81123"},
}
