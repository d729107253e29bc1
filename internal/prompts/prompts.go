// Package prompts composes the model prompts used by the extraction and
// classification collaborators.
package prompts

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/dossier/workflow"
)

const extractionInstructions = `You are a document analysis expert. Given the raw text extracted from a document:

1. Provide a concise summary (2-3 sentences) of what the document is about
2. Extract key entities (names, organizations, dates, amounts, important terms)

Respond with a JSON object: {"summary": string, "entities": [string]}`

const classificationInstructions = `You are a mortgage loan document classification expert. Classify documents
that are part of a mortgage loan application process into one of these categories:

%s

Be precise and consider the document's purpose in a mortgage loan context.
Respond with a JSON object: {"category": string, "confidence": number, "sub_categories": [string], "reasoning": string}`

// Extraction builds the summarization prompt for one document's text.
func Extraction(fileName, text string) string {
	var b strings.Builder
	b.WriteString(extractionInstructions)
	b.WriteString("\n\nDocument filename: ")
	b.WriteString(fileName)
	b.WriteString("\n\nExtracted text:\n")
	b.WriteString(text)
	return b.String()
}

// Classification builds the categorization prompt for one extracted document.
// sample is the truncated leading text of the document.
func Classification(categories []string, doc workflow.ExtractedDocument, sample string) string {
	list := make([]string, len(categories))
	for i, c := range categories {
		list[i] = "- " + c
	}

	entities := "None identified"
	if len(doc.KeyEntities) > 0 {
		entities = strings.Join(doc.KeyEntities, ", ")
	}

	summary := doc.Summary
	if summary == "" {
		summary = "No summary available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, classificationInstructions, strings.Join(list, "\n"))
	b.WriteString("\n\nSummary: ")
	b.WriteString(summary)
	b.WriteString("\n\nKey Entities: ")
	b.WriteString(entities)
	b.WriteString("\n\nSample Text:\n")
	b.WriteString(sample)
	b.WriteString("\n\nClassify this mortgage-related document based solely on its content.")
	return b.String()
}
