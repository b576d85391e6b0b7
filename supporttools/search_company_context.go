package supporttools

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/blixt/skillflow/tool"
)

type SearchCompanyContextParams struct {
	Query string `json:"query" description:"Keywords to look for, e.g. \"refund policy\""`
	Limit int    `json:"limit,omitempty" description:"Maximum number of passages to return (default 3)"`
}

type SearchCompanyContextResult struct {
	Query    string   `json:"query"`
	Passages []string `json:"passages"`
}

var (
	reParagraphBreak = regexp.MustCompile(`\n\s*\n`)
	reWord           = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// SearchCompanyContext returns a tool that searches the paragraphs of
// companyContext for the words in a query. Paragraphs that match more words
// come first.
func SearchCompanyContext(companyContext string) tool.Tool {
	paragraphs := splitParagraphs(companyContext)
	return tool.Func(
		"Search company information",
		"Searches the company information for passages about a topic. Use it when the answer needs exact details such as prices, policies or contact information.",
		"search_company_context",
		func(r tool.Runner, p SearchCompanyContextParams) tool.Result {
			words := keywords(p.Query)
			if len(words) == 0 {
				return tool.Error("Search company information", fmt.Errorf("query %q has no searchable words", p.Query))
			}
			limit := p.Limit
			if limit <= 0 {
				limit = 3
			}
			r.Report(fmt.Sprintf("Searching for %s", strings.Join(words, ", ")))

			type match struct {
				index, score int
			}
			var matches []match
			for i, paragraph := range paragraphs {
				lower := strings.ToLower(paragraph)
				score := 0
				for _, word := range words {
					if strings.Contains(lower, word) {
						score++
					}
				}
				if score > 0 {
					matches = append(matches, match{i, score})
				}
			}
			slices.SortStableFunc(matches, func(a, b match) int {
				return b.score - a.score
			})

			passages := []string{}
			for _, m := range matches[:min(limit, len(matches))] {
				passages = append(passages, paragraphs[m.index])
			}
			return tool.Success(
				fmt.Sprintf("Found %d passages about %q", len(passages), p.Query),
				SearchCompanyContextResult{Query: p.Query, Passages: passages},
			)
		})
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, paragraph := range reParagraphBreak.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		if paragraph = strings.TrimSpace(paragraph); paragraph != "" {
			paragraphs = append(paragraphs, paragraph)
		}
	}
	return paragraphs
}

func keywords(query string) []string {
	var words []string
	for _, word := range reWord.FindAllString(strings.ToLower(query), -1) {
		if len([]rune(word)) < 2 || slices.Contains(words, word) {
			continue
		}
		words = append(words, word)
	}
	return words
}
