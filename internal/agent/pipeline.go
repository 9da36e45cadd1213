// Package agent runs the generation pipeline: research queries, web
// research, synthesis, and document drafting.
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/planforge/planforge/internal/llm"
	"github.com/planforge/planforge/internal/mcpclient"
	"github.com/planforge/planforge/internal/packager"
	"github.com/planforge/planforge/internal/prompts"
)

// Pipeline phases, as reported through the progress callback and stored
// on sessions.
const (
	PhaseQueries   = "queries"
	PhaseResearch  = "research"
	PhaseSynthesis = "synthesis"
	PhaseDocuments = "documents"
	PhaseSanitize  = "sanitize"
)

// TextGenerator is the slice of the LLM client the pipeline needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, task llm.Task, prompt string) (string, error)
	GenerateJSON(ctx context.Context, task llm.Task, prompt string, out any) error
}

// Searcher runs web searches through the search helper.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]mcpclient.SearchResult, error)
}

// Formatter normalizes markdown through the markdown helper.
type Formatter interface {
	Format(ctx context.Context, content string) (string, error)
}

// Pipeline turns an idea into the complete document set.
type Pipeline struct {
	LLM      TextGenerator
	Search   Searcher  // nil skips research
	Markdown Formatter // nil skips the formatting pass

	// Progress, when set, receives phase transitions.
	Progress func(phase, detail string)
}

// Queries is the model's research query plan.
type Queries struct {
	Competitor []string `json:"competitor_queries"`
	PainPoint  []string `json:"pain_point_queries"`
}

// Synthesis is the structured research summary feeding document
// generation.
type Synthesis struct {
	CoreProblem           string   `json:"core_problem"`
	TargetAudience        string   `json:"target_audience"`
	KeyFeaturesFound      []string `json:"key_features_found"`
	UserComplaints        []string `json:"user_complaints"`
	MarketGaps            []string `json:"market_gaps"`
	CompetitiveAdvantages []string `json:"competitive_advantages"`
}

// resultsPerQuery keeps the research phase inside search API quotas.
const resultsPerQuery = 3

// Run executes every phase and returns the sanitized document set.
func (p *Pipeline) Run(ctx context.Context, idea string) (packager.Documents, error) {
	queries := p.generateQueries(ctx, idea)
	research := p.conductResearch(ctx, queries)
	synthesis := p.summarize(ctx, idea, research)

	docs, err := p.generateDocuments(ctx, idea, synthesis)
	if err != nil {
		return nil, err
	}
	return p.sanitize(ctx, docs), nil
}

// generateQueries asks the model for a query plan, falling back to
// deterministic queries derived from the idea.
func (p *Pipeline) generateQueries(ctx context.Context, idea string) Queries {
	p.report(PhaseQueries, "planning research queries")

	var q Queries
	err := p.LLM.GenerateJSON(ctx, llm.TaskQueries, prompts.SearchQueries(idea), &q)
	if err == nil && len(q.Competitor)+len(q.PainPoint) > 0 {
		return q
	}
	if err != nil {
		log.Printf("WARNING: agent: query generation failed, using fallback queries: %v", err)
	}
	q.Competitor, q.PainPoint = prompts.FallbackQueries(idea)
	return q
}

// conductResearch runs every query and renders the hits as markdown.
// Search failures degrade to a note; research never aborts the run.
func (p *Pipeline) conductResearch(ctx context.Context, queries Queries) string {
	all := append(append([]string{}, queries.Competitor...), queries.PainPoint...)
	p.report(PhaseResearch, fmt.Sprintf("running %d searches", len(all)))

	if p.Search == nil {
		return "(research skipped: no search service)"
	}

	var b strings.Builder
	failures := 0
	for _, query := range all {
		results, err := p.Search.Search(ctx, query, resultsPerQuery)
		if err != nil {
			failures++
			log.Printf("WARNING: agent: search %q failed: %v", query, err)
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", query)
		for _, r := range results {
			fmt.Fprintf(&b, "- [%s](%s): %s\n", r.Title, r.Link, r.Snippet)
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return fmt.Sprintf("(no research results: %d of %d searches failed)", failures, len(all))
	}
	return b.String()
}

// summarize condenses the research. On total failure it builds a minimal
// synthesis from the idea so generation can still proceed.
func (p *Pipeline) summarize(ctx context.Context, idea, research string) Synthesis {
	p.report(PhaseSynthesis, "synthesizing research")

	var s Synthesis
	err := p.LLM.GenerateJSON(ctx, llm.TaskSummary, prompts.SummarizeResearch(idea, research), &s)
	if err == nil && s.CoreProblem != "" {
		return s
	}
	if err != nil {
		log.Printf("WARNING: agent: synthesis failed, using minimal synthesis: %v", err)
	}
	return Synthesis{
		CoreProblem:    idea,
		TargetAudience: "early adopters of " + idea,
	}
}

// generateDocuments asks for all eight documents in a single call and
// verifies the document set is complete.
func (p *Pipeline) generateDocuments(ctx context.Context, idea string, synthesis Synthesis) (packager.Documents, error) {
	p.report(PhaseDocuments, "drafting planning documents")

	var docs packager.Documents
	err := p.LLM.GenerateJSON(ctx, llm.TaskDocuments,
		prompts.GenerateDocuments(idea, renderSynthesis(synthesis)), &docs)
	if err != nil {
		return nil, fmt.Errorf("agent: generate documents: %w", err)
	}
	if missing := packager.MissingKeys(docs); len(missing) > 0 {
		return nil, fmt.Errorf("agent: model response missing documents: %s", strings.Join(missing, ", "))
	}
	return docs, nil
}

// sanitize cleans every document locally and, when the markdown service
// is reachable, runs its formatting pass too.
func (p *Pipeline) sanitize(ctx context.Context, docs packager.Documents) packager.Documents {
	p.report(PhaseSanitize, "cleaning documents")

	out := make(packager.Documents, len(docs))
	for key, content := range docs {
		content = packager.SanitizeMarkdown(content)
		if p.Markdown != nil {
			formatted, err := p.Markdown.Format(ctx, content)
			if err != nil {
				log.Printf("WARNING: agent: markdown service failed for %s, keeping local cleanup: %v", key, err)
			} else {
				content = formatted
			}
		}
		out[key] = content
	}
	return out
}

func (p *Pipeline) report(phase, detail string) {
	if p.Progress != nil {
		p.Progress(phase, detail)
	}
	log.Printf("agent: %s: %s", phase, detail)
}

// renderSynthesis flattens the synthesis for the document prompt.
func renderSynthesis(s Synthesis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Core problem: %s\n", s.CoreProblem)
	fmt.Fprintf(&b, "Target audience: %s\n", s.TargetAudience)
	writeList(&b, "Key features found in competitors", s.KeyFeaturesFound)
	writeList(&b, "User complaints", s.UserComplaints)
	writeList(&b, "Market gaps", s.MarketGaps)
	writeList(&b, "Competitive advantages", s.CompetitiveAdvantages)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
