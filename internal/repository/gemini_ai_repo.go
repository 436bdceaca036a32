package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/pkg/logger"
	"market-advisor/pkg/ratelimit"
	"market-advisor/pkg/utils"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// AIRepository synthesizes a trading decision from technical and sentiment
// input. Failures surface as dto.ErrDecisionSynthesisFailed.
type AIRepository interface {
	SynthesizeDecision(ctx context.Context, input dto.DecisionInput) (*dto.DecisionOutput, error)
}

type geminiAIRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiAIRepository creates an AIRepository backed by the Google Gemini API.
func NewGeminiAIRepository(cfg *config.Config, log *logger.Logger) (AIRepository, error) {
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	tokenLimiter := ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute)

	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiAIRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
		tokenLimiter:   tokenLimiter,
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiAIRepository) SynthesizeDecision(ctx context.Context, input dto.DecisionInput) (*dto.DecisionOutput, error) {
	prompt, err := r.promptDecision(input)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to build decision prompt", logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", dto.ErrDecisionSynthesisFailed, err)
	}

	text, err := r.sendRequest(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to send request to gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", dto.ErrDecisionSynthesisFailed, err)
	}

	output, err := r.parseResponse(text)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to parse response from gemini", logger.ErrorField(err))
		return nil, fmt.Errorf("%w: %v", dto.ErrDecisionSynthesisFailed, err)
	}

	normalizeDecision(output)
	return output, nil
}

func (r *geminiAIRepository) sendRequest(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)
	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return "", fmt.Errorf("failed to wait for gemini token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for gemini request limit: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.Gemini.Timeout)
	defer cancel()

	resp, err := r.genAiClient.Models.GenerateContent(reqCtx, r.cfg.Gemini.BaseModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("invalid response from Gemini API: no content found")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (r *geminiAIRepository) parseResponse(text string) (*dto.DecisionOutput, error) {
	jsonString := strings.TrimSpace(text)
	jsonString = strings.TrimPrefix(jsonString, "```json")
	jsonString = strings.TrimPrefix(jsonString, "```")
	jsonString = strings.TrimSuffix(jsonString, "```")

	var output dto.DecisionOutput
	if err := json.Unmarshal([]byte(strings.TrimSpace(jsonString)), &output); err != nil {
		return nil, err
	}
	return &output, nil
}

// normalizeDecision enforces the output invariants: a decision is always set
// and confidence stays in [0, 1].
func normalizeDecision(output *dto.DecisionOutput) {
	switch strings.ToUpper(output.Decision) {
	case dto.DecisionBuy:
		output.Decision = dto.DecisionBuy
	case dto.DecisionSell:
		output.Decision = dto.DecisionSell
	default:
		output.Decision = dto.DecisionHold
	}

	output.Confidence = utils.Clamp(output.Confidence, 0, 1)

	switch strings.ToUpper(output.PositionSize) {
	case dto.PositionSmall, dto.PositionMedium, dto.PositionLarge:
		output.PositionSize = strings.ToUpper(output.PositionSize)
	default:
		output.PositionSize = dto.PositionMedium
	}

	switch strings.ToUpper(output.RiskLevel) {
	case dto.RiskLow, dto.RiskMedium, dto.RiskHigh:
		output.RiskLevel = strings.ToUpper(output.RiskLevel)
	default:
		output.RiskLevel = dto.RiskMedium
	}
}
