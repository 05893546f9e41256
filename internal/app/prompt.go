package app

import (
	"fmt"
	"strings"
)

// systemPersona is the fixed system-role statement for the chat flow.
const systemPersona = `You are RAG Assistant, an internal support agent for company employees. ` +
	`You answer questions about internal procedures, policies, forms, tools and contacts ` +
	`using only the internal documentation supplied to you as context. ` +
	`Stay professional, clear and concise, and always cite the documents you used.`

// SystemPrompt returns the fixed persona used as the system-role message.
// Pure function, no I/O.
func SystemPrompt() string {
	return systemPersona
}

// BuildPrompt assembles the user-role prompt sent to the completion
// service: a fixed policy preamble, the verbatim user query, and the
// retrieved context blocks labeled by position. Pure function, no I/O.
func BuildPrompt(userQuery string, contexts []string) string {
	labeled := make([]string, len(contexts))
	for i, c := range contexts {
		labeled[i] = fmt.Sprintf("Context %d:\n%s", i+1, c)
	}
	contextText := strings.Join(labeled, "\n\n")

	var b strings.Builder
	b.WriteString(`You are an internal assistant answering employee questions from company documentation.

Rules:
1. If the answer is present in the context below, give the most complete answer the context supports. Summarize long procedures into their main steps, keep every factual detail precise, and cite the source document for each claim.
2. If the answer is not present in the context, say clearly that you do not have the information and suggest the internal team to contact (HR, IT, management). Never invent facts.
3. If several context blocks contradict each other, say that several versions exist and describe the differences.
4. Do not use any knowledge outside the supplied context.

Expected answer structure:
1. Brief direct answer to the question.
2. Steps or procedure to follow, if applicable.
3. Related internal link or document, if present in the context.
4. Source citation.

=== User question ===
`)
	b.WriteString(userQuery)
	b.WriteString("\n\n=== Context from internal documents ===\n")
	b.WriteString(contextText)
	b.WriteString("\n")
	return b.String()
}

// buildTitlePrompt asks the model for a short conversation title after
// the first exchange.
func buildTitlePrompt(firstMessage string) string {
	return "Generate a title of at most six words for a conversation that starts with the following message. " +
		"Reply with the title only, no quotes.\n\n" + firstMessage
}
