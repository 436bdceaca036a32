package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"market-advisor/internal/dto"
)

func (r *geminiAIRepository) promptDecision(input dto.DecisionInput) (string, error) {
	technicalJSON, err := json.Marshal(input.Technical)
	if err != nil {
		return "", fmt.Errorf("failed to marshal technical snapshot: %w", err)
	}

	// Article bodies stay out of the prompt; headline scores are enough signal
	// and keep the token budget predictable.
	sentimentView := struct {
		Score        float64 `json:"score"`
		ArticleCount int     `json:"article_count"`
		Degraded     bool    `json:"degraded"`
	}{
		Score:        input.Sentiment.Score,
		ArticleCount: input.Sentiment.ArticleCount,
		Degraded:     input.Sentiment.Degraded,
	}
	sentimentJSON, err := json.Marshal(sentimentView)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sentiment snapshot: %w", err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"You are a professional %s trading advisor. Produce a trading recommendation for %s over a %d-day horizon.\n\n",
		input.AssetType, input.Asset, input.TimeframeDays,
	))

	sb.WriteString(fmt.Sprintf("Current price: %.4f\n\n", input.CurrentPrice))
	sb.WriteString(fmt.Sprintf("Technical analysis (trend score 0-100, 50 neutral):\n%s\n\n", technicalJSON))
	sb.WriteString(fmt.Sprintf("News sentiment (0-100, 50 neutral):\n%s\n\n", sentimentJSON))
	sb.WriteString(fmt.Sprintf("Investor risk tolerance: %s (%s)\n\n", input.RiskTolerance, riskToleranceDescription(input.RiskTolerance)))

	sb.WriteString(`Rules:
- Choose exactly one decision: "BUY", "SELL" or "HOLD".
- Confidence is your conviction in the decision, between 0.0 and 1.0.
- For BUY and SELL include a target_price and stop_loss consistent with the current price and the support/resistance levels; omit them for HOLD.
- Size the position (SMALL, MEDIUM, LARGE) and rate the risk (LOW, MEDIUM, HIGH) according to the investor's risk tolerance and the asset's volatility.
- When sentiment is degraded, rely on the technical picture and lower your confidence.

Respond ONLY with valid JSON in exactly this shape:
{
    "decision": "BUY" | "SELL" | "HOLD",
    "confidence": 0.0,
    "reasoning": "detailed explanation of the decision",
    "target_price": 0.0,
    "stop_loss": 0.0,
    "position_size": "SMALL" | "MEDIUM" | "LARGE",
    "risk_level": "LOW" | "MEDIUM" | "HIGH"
}
`)

	return sb.String(), nil
}

func riskToleranceDescription(riskTolerance string) string {
	switch riskTolerance {
	case dto.RiskToleranceConservative:
		return "capital preservation first, prefer HOLD unless the signal is very strong"
	case dto.RiskToleranceAggressive:
		return "comfortable with larger drawdowns in exchange for higher upside"
	case dto.RiskToleranceVeryAggressive:
		return "actively seeks high-volatility opportunities, accepts significant risk of loss"
	default:
		return "balanced risk and reward, act only on reasonably clear signals"
	}
}
