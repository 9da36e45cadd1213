package prompts

import (
	"fmt"
	"strings"
)

// SearchQueries asks for research queries for an idea. The response is
// JSON with competitor_queries and pain_point_queries arrays.
func SearchQueries(idea string) string {
	return fmt.Sprintf(`You are a market research expert crafting targeted search queries for a new product idea.

Generate search queries that will:
- Reveal competitor features, pricing, and differentiation
- Surface real user pain points from forums, reviews, and social media
- Identify market gaps and adoption barriers

Rules:
1. Each query must be specific: include product names, platforms, forums, or timeframes.
2. Prefer primary sources (user reviews, reddit, support forums) over marketing copy.
3. No redundant queries.

Return ONLY valid JSON, no commentary:
{
    "competitor_queries": ["query 1", "query 2", "query 3"],
    "pain_point_queries": ["query 1", "query 2", "query 3"]
}

Startup idea:
%s`, idea)
}

// SummarizeResearch asks for a structured synthesis of raw research. The
// response is JSON matching agent.Synthesis.
func SummarizeResearch(idea, research string) string {
	return fmt.Sprintf(`You are a market intelligence analyst synthesizing research for a startup idea.

Extract evidence-based insights from the research below. Where the research is thin, reason from the idea itself and say so.

Return ONLY valid JSON, no commentary:
{
    "core_problem": "the single problem this product solves",
    "target_audience": "who suffers from it most",
    "key_features_found": ["feature competitors ship", "..."],
    "user_complaints": ["recurring complaint", "..."],
    "market_gaps": ["unserved need", "..."],
    "competitive_advantages": ["plausible edge for a newcomer", "..."]
}

Startup idea:
%s

Research:
%s`, idea, research)
}

// GenerateDocuments asks for the complete document set. The response is
// JSON with exactly the eight document keys.
func GenerateDocuments(idea string, synthesis string) string {
	return fmt.Sprintf(`You are a senior product strategist writing an MVP planning package.

Write complete, specific markdown documents for the startup idea below, informed by the research synthesis. Every document starts with a top-level heading. No placeholders like TBD; make concrete, defensible choices.

Return ONLY valid JSON with EXACTLY these keys, each a full markdown document:
{
    "overview_md": "...",
    "features_md": "...",
    "architecture_md": "...",
    "design_md": "...",
    "user_flow_md": "...",
    "roadmap_md": "...",
    "business_model_md": "...",
    "testing_plan_md": "..."
}

Document contents:
- overview_md: product vision, tagline, what is in the package and how to use it
- features_md: MVP feature list with priorities and acceptance criteria
- architecture_md: tech stack, system components, data model, API sketch
- design_md: design principles, UI guidelines, key screens
- user_flow_md: primary user journeys step by step
- roadmap_md: 6-week sprint breakdown with milestones
- business_model_md: pricing, revenue model, unit economics
- testing_plan_md: QA strategy, critical test cases, quality gates

Startup idea:
%s

Research synthesis:
%s`, idea, synthesis)
}

// FallbackQueries derives deterministic research queries when the model
// cannot produce any.
func FallbackQueries(idea string) (competitor, painPoint []string) {
	idea = strings.TrimSpace(idea)
	competitor = []string{
		fmt.Sprintf("%s competitors comparison", idea),
		fmt.Sprintf("%s alternatives pricing", idea),
		fmt.Sprintf("best apps for %s reviews", idea),
	}
	painPoint = []string{
		fmt.Sprintf("%s user complaints reddit", idea),
		fmt.Sprintf("%s problems frustrations forum", idea),
		fmt.Sprintf("why %s apps fail users", idea),
	}
	return competitor, painPoint
}
