package report

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/dossier/workflow"
)

const entityDisplayLimit = 10

// renderMarkdown builds the full report document from a completed run's
// state. Categories and documents render in sorted, stable order so that
// identical states produce identical reports.
func renderMarkdown(state *workflow.State, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Document Analysis Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.Format("January 2, 2006 at 15:04"))

	writeExecutiveSummary(&b, state)
	writeSummaryTable(&b, state.ClassificationSummary)
	writeDocumentDetails(&b, state.ClassifiedDocuments)
	writeErrorAppendix(&b, state.AllErrors())

	return b.String()
}

func writeExecutiveSummary(b *strings.Builder, state *workflow.State) {
	totalDocs := len(state.ClassifiedDocuments)
	totalPages := 0
	reviewed := 0
	for _, doc := range state.ClassifiedDocuments {
		totalPages += doc.Document.PageCount
		if doc.HumanReviewed {
			reviewed++
		}
	}

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(
		b,
		"This report summarizes the analysis of **%d documents** containing a total of **%d pages**. The documents have been classified into **%d categories**.\n\n",
		totalDocs, totalPages, len(state.ClassificationSummary),
	)

	if reviewed > 0 {
		fmt.Fprintf(b, "**%d document(s)** were manually reviewed and classified by a human reviewer.\n\n", reviewed)
	}
}

func writeSummaryTable(b *strings.Builder, summary map[string]workflow.CategorySummary) {
	b.WriteString("## Classification Summary\n\n")
	b.WriteString("| Category | Count | Avg Confidence |\n")
	b.WriteString("| --- | ---: | ---: |\n")

	total := 0
	for _, category := range slices.Sorted(maps.Keys(summary)) {
		info := summary[category]
		total += info.Count
		fmt.Fprintf(b, "| %s | %d | %.0f%% |\n", category, info.Count, info.AvgConfidence*100)
	}
	fmt.Fprintf(b, "| **TOTAL** | **%d** | - |\n\n", total)
}

func writeDocumentDetails(b *strings.Builder, docs []workflow.ClassifiedDocument) {
	b.WriteString("## Detailed Document Analysis\n\n")

	byCategory := make(map[string][]workflow.ClassifiedDocument)
	for _, doc := range docs {
		byCategory[doc.Category] = append(byCategory[doc.Category], doc)
	}

	for _, category := range slices.Sorted(maps.Keys(byCategory)) {
		fmt.Fprintf(b, "### Category: %s\n\n", category)

		for _, doc := range byCategory[category] {
			header := doc.Document.FileName
			if doc.HumanReviewed {
				header += " [Human Reviewed]"
			}
			fmt.Fprintf(b, "#### %s\n\n", header)
			fmt.Fprintf(b, "Pages: %d | Confidence: %.0f%%\n\n", doc.Document.PageCount, doc.Confidence*100)

			if doc.HumanReviewed && doc.OriginalCategory != "" {
				fmt.Fprintf(b, "**Human Review:** Reclassified from %q to %q\n\n", doc.OriginalCategory, doc.Category)
			}
			if doc.Document.Summary != "" {
				fmt.Fprintf(b, "**Summary:** %s\n\n", doc.Document.Summary)
			}
			if len(doc.Document.KeyEntities) > 0 {
				entities := strings.Join(firstN(doc.Document.KeyEntities, entityDisplayLimit), ", ")
				if extra := len(doc.Document.KeyEntities) - entityDisplayLimit; extra > 0 {
					entities += fmt.Sprintf(" (+%d more)", extra)
				}
				fmt.Fprintf(b, "**Key Entities:** %s\n\n", entities)
			}
			if doc.Rationale != "" {
				fmt.Fprintf(b, "**Classification Rationale:** %s\n\n", doc.Rationale)
			}
		}
	}
}

func writeErrorAppendix(b *strings.Builder, errs []workflow.Error) {
	if len(errs) == 0 {
		return
	}

	b.WriteString("## Processing Errors\n\n")
	b.WriteString("| Stage | Severity | Code | Document | Message |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, e := range errs {
		doc := e.Document
		if doc == "" {
			doc = "-"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", e.Stage, e.Severity, e.Code, doc, e.Message)
	}
	b.WriteString("\n")
}

func firstN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
