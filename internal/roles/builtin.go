package roles

import (
	"fmt"
	"strings"

	"github.com/nevscope/nevscope/pkg/models"
)

// Builtin returns the standard new-energy-vehicle analysis role set.
func Builtin() *Table {
	t := NewTable()
	for _, spec := range []*Spec{
		macroSpec(),
		financeSpec(),
		marketSpec(),
		policySpec(),
		forecastSpec(),
	} {
		// Built-in specs are internally consistent; Register only fails on
		// duplicates.
		if err := t.Register(spec); err != nil {
			panic(err)
		}
	}
	return t
}

func macroSpec() *Spec {
	return &Spec{
		Name:          "macro",
		Description:   "Relates macroeconomic data (GDP, CPI) to industry trends.",
		Datasets:      []string{"gdp", "cpi"},
		FallbackField: "macro_summary",
		EmptyFields: map[string]any{
			"macro_corr_matrix": map[string]any{},
			"key_insights":      []any{},
			"recommendations":   []any{},
		},
		Prompt: func(in PromptInput) string {
			return fmt.Sprintf(`As a macroeconomic analyst, examine how the following GDP and CPI data relate to the new energy vehicle industry.

GDP data overview:
%s

CPI data overview:
%s

Focus on:
1. The correlation between GDP growth and NEV industry development
2. How CPI changes affect consumer willingness to purchase NEVs
3. The potential impact of the macroeconomic environment on the industry overall

Return the analysis as JSON with these fields:
- macro_summary: summary of the macroeconomic environment
- macro_corr_matrix: correlation analysis between macro indicators and industry development
- key_insights: list of key insights
- recommendations: recommendations based on the macro environment`,
				in.Summaries["gdp"], in.Summaries["cpi"])
		},
	}
}

func financeSpec() *Spec {
	return &Spec{
		Name:          "finance",
		Description:   "Analyzes financial metrics of listed NEV companies.",
		Datasets:      []string{"industry", "company"},
		FallbackField: "finance_summary",
		EmptyFields: map[string]any{
			"key_metrics":         map[string]any{},
			"company_comparison":  map[string]any{},
			"investment_insights": "",
			"risk_factors":        "",
		},
		Prompt: func(in PromptInput) string {
			return fmt.Sprintf(`As a financial analyst, examine the financial performance of listed companies in the new energy vehicle industry.

Industry financial data overview:
%s

Company financial data overview:
%s

Focus on:
1. Overall industry profitability trends
2. Balance sheet structure and solvency
3. Growth indicators and investment value
4. Financial performance comparison of leading companies

Return the analysis as JSON with these fields:
- finance_summary: summary of industry financial performance
- key_metrics: analysis of key financial metrics
- company_comparison: comparison of leading companies
- investment_insights: investment value analysis
- risk_factors: risk factor analysis`,
				in.Summaries["industry"], in.Summaries["company"])
		},
	}
}

func marketSpec() *Spec {
	return &Spec{
		Name:          "market",
		Description:   "Analyzes production and sales trends, market structure, and penetration.",
		Datasets:      []string{"production", "charging"},
		FallbackField: "market_trend_summary",
		EmptyFields: map[string]any{
			"penetration_rate":        map[string]any{},
			"manufacturer_analysis":   map[string]any{},
			"infrastructure_insights": "",
			"market_forecast":         "",
		},
		Prompt: func(in PromptInput) string {
			return fmt.Sprintf(`As a market analyst, examine the production and sales trends and structural changes in the new energy vehicle market.

Production and sales data overview:
%s

Charging infrastructure data overview:
%s

Focus on:
1. Seasonal variation and long-term trends in production and sales
2. Market share shifts among leading manufacturers
3. The relationship between charging infrastructure and market growth
4. Penetration rate changes and remaining headroom

Return the analysis as JSON with these fields:
- market_trend_summary: summary of production and sales trends
- penetration_rate: market penetration analysis
- manufacturer_analysis: leading manufacturer analysis
- infrastructure_insights: infrastructure build-out insights
- market_forecast: market trend outlook`,
				in.Summaries["production"], in.Summaries["charging"])
		},
	}
}

func policySpec() *Spec {
	return &Spec{
		Name:        "policy",
		Description: "Assesses the policy environment using macro and industry signals.",
		Requires: []models.Requirement{
			{Role: "macro", Optional: true},
		},
		Datasets:      []string{"gdp", "industry"},
		FallbackField: "policy_insight",
		EmptyFields: map[string]any{
			"impact_analysis":        map[string]any{},
			"policy_recommendations": "",
			"regulatory_risks":       "",
			"future_outlook":         "",
		},
		Prompt: func(in PromptInput) string {
			var b strings.Builder
			fmt.Fprintf(&b, `As a policy analyst, assess how the policy environment affects the new energy vehicle industry.

Macroeconomic data overview:
%s

Industry financial data overview:
%s
`, in.Summaries["gdp"], in.Summaries["industry"])

			if macro, ok := in.Upstream["macro"]; ok {
				if summary, ok := macro["macro_summary"].(string); ok && summary != "" {
					fmt.Fprintf(&b, "\nMacroeconomic environment analysis:\n%s\n", summary)
				}
			}

			b.WriteString(`
Focus on:
1. Synergy between macroeconomic policy and industry policy
2. How industrial policy drives market development
3. Alignment of infrastructure policy with market demand
4. Possible effects of future policy changes

Return the analysis as JSON with these fields:
- policy_insight: policy environment insights
- impact_analysis: policy impact analysis
- policy_recommendations: policy recommendations
- regulatory_risks: regulatory risk analysis
- future_outlook: future policy outlook`)
			return b.String()
		},
	}
}

func forecastSpec() *Spec {
	return &Spec{
		Name:        "forecast",
		Description: "Projects the next-period market trajectory from historical trends.",
		Requires: []models.Requirement{
			{Role: "finance"},
			{Role: "market"},
		},
		Datasets:      []string{"industry", "production"},
		FallbackField: "forecast_summary",
		EmptyFields: map[string]any{
			"growth_forecast":          map[string]any{},
			"market_structure_changes": map[string]any{},
			"technology_impact":        "",
			"risk_factors":             "",
		},
		Prompt: func(in PromptInput) string {
			var b strings.Builder
			fmt.Fprintf(&b, `As a forecasting analyst, project the future trajectory of the new energy vehicle industry from historical data.

Industry financial data overview:
%s

Production and sales data overview:
%s
`, in.Summaries["industry"], in.Summaries["production"])

			if finance, ok := in.Upstream["finance"]; ok {
				if summary, ok := finance["finance_summary"].(string); ok && summary != "" {
					fmt.Fprintf(&b, "\nFinancial performance analysis:\n%s\n", summary)
				}
			}
			if market, ok := in.Upstream["market"]; ok {
				if summary, ok := market["market_trend_summary"].(string); ok && summary != "" {
					fmt.Fprintf(&b, "\nMarket trend analysis:\n%s\n", summary)
				}
			}

			b.WriteString(`
Focus on:
1. Short- and medium-term industry growth projections
2. Likely shifts in market structure
3. The effect of technology development on the market
4. Risk factors and sources of uncertainty

Return the analysis as JSON with these fields:
- forecast_summary: forecast summary
- growth_forecast: growth rate projections
- market_structure_changes: projected market structure shifts
- technology_impact: technology impact analysis
- risk_factors: risk factor analysis`)
			return b.String()
		},
	}
}

// sectionSources maps report sections to the role and result field each one
// draws from, in report order.
var sectionSources = []struct {
	Title string
	Role  string
	Field string
}{
	{"Macroeconomic Environment", "macro", "macro_summary"},
	{"Industry Financial Performance", "finance", "finance_summary"},
	{"Market Production and Sales Trends", "market", "market_trend_summary"},
	{"Policy and Environmental Impact", "policy", "policy_insight"},
	{"Forecast and Outlook", "forecast", "forecast_summary"},
}

// SynthesisSpec returns the report synthesis role. It is not scheduled as a
// graph node; the aggregator runs it after all analysis tasks settle.
func SynthesisSpec() *Spec {
	return &Spec{
		Name:          "report",
		Description:   "Combines all analysis results into a final Markdown report.",
		FallbackField: "report_content",
		Prompt: func(in PromptInput) string {
			var b strings.Builder
			b.WriteString("Write a complete analysis report on the new energy vehicle industry from the following results.\n")

			for _, src := range sectionSources {
				upstream, ok := in.Upstream[src.Role]
				if !ok {
					continue
				}
				summary, _ := upstream[src.Field].(string)
				fmt.Fprintf(&b, "\n%s analysis:\n%s\n", src.Title, summary)
			}
			if len(in.Omitted) > 0 {
				fmt.Fprintf(&b, "\nNo results are available for: %s. Note the gap in the relevant sections instead of inventing content.\n",
					strings.Join(in.Omitted, ", "))
			}

			b.WriteString(`
Structure the report as:
# New Energy Vehicle Industry Analysis Report

## 1. Macroeconomic Environment

## 2. Industry Financial Performance

## 3. Market Production and Sales Trends

## 4. Policy and Environmental Impact

## 5. Forecast and Outlook

## 6. Conclusions and Recommendations
Fill each section from the corresponding analysis above, and close with overall industry trends and investment implications.`)
			return b.String()
		},
	}
}
