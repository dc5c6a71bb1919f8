package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/metrics"
	"github.com/aegisai/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel  = "openai/gpt-3.5-turbo"

	llmLatencyAlertMs   = 5000.0
	llmHourlyCostAlert  = 5.0
	tokensPerWordFactor = 1.3
)

// Banking context sent as the system message on every query.
const llmSystemContext = `You are a helpful and professional banking assistant for AegisAI Bank.
Provide accurate, concise information about banking products and services.
Always include appropriate disclaimers for financial advice.
If you're unsure about specific rates or policies, direct users to contact customer service.
Be professional, clear, and customer-focused.`

type modelPricing struct {
	Input  float64
	Output float64
}

// Approximate pricing per 1M tokens.
var llmPricing = map[string]modelPricing{
	"openai/gpt-3.5-turbo":                  {Input: 0.0005, Output: 0.0015},
	"openai/gpt-4":                          {Input: 0.03, Output: 0.06},
	"openai/gpt-oss-120b:free":              {Input: 0, Output: 0},
	"meta-llama/llama-3.1-8b-instruct:free": {Input: 0, Output: 0},
}

// LLMService proxies banking queries to OpenRouter and records
// observability metrics per interaction: latency, tokens, cost,
// hallucination signals, safety and quality scores.
type LLMService struct {
	db     *gorm.DB
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

func NewLLMService(db *gorm.DB) *LLMService {
	model := os.Getenv("OPENROUTER_MODEL")
	if model == "" {
		model = defaultModel
	}

	timeout := 30 * time.Second
	if v := os.Getenv("OPENROUTER_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if apiKey == "" {
		logger.Warn("OPENROUTER_API_KEY not set, LLM queries will fail", nil)
	}

	return &LLMService{
		db:     db,
		apiKey: apiKey,
		apiURL: openRouterURL,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// HallucinationCheck is the result of the heuristic hallucination detector.
type HallucinationCheck struct {
	Detected      bool     `json:"hallucinationDetected"`
	Confidence    float64  `json:"confidence"`
	Indicators    []string `json:"indicatorsFound"`
	HasDisclaimer bool     `json:"hasDisclaimer"`
}

// SafetyCheck is the result of the unsafe-keyword scan.
type SafetyCheck struct {
	Passed         bool     `json:"safetyPassed"`
	Violations     []string `json:"violations"`
	Severity       string   `json:"severity"`
	ViolationCount int      `json:"violationCount"`
}

// QueryResult is returned to the caller after a successful LLM query.
type QueryResult struct {
	Response string         `json:"response"`
	Metrics  map[string]any `json:"metrics"`
	Model    string         `json:"model"`
}

// Query sends a prompt to OpenRouter, scores the response and persists the
// interaction. Failed calls are persisted too, with the error recorded.
func (s *LLMService) Query(prompt, useCase string, userID *string) (*QueryResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key not configured")
	}

	start := time.Now()

	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: llmSystemContext},
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode LLM request: %w", err)
	}

	inputTokens := countTokens(llmSystemContext + prompt)

	req, err := http.NewRequest(http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build LLM request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://aegisai.bank")
	req.Header.Set("X-Title", "AegisAI Banking Assistant")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logFailure(prompt, useCase, userID, time.Since(start), err)
		return nil, fmt.Errorf("OpenRouter request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logFailure(prompt, useCase, userID, time.Since(start), err)
		return nil, fmt.Errorf("failed to read LLM response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("OpenRouter API error: %d - %s", resp.StatusCode, string(raw))
		s.logFailure(prompt, useCase, userID, time.Since(start), apiErr)
		return nil, apiErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logFailure(prompt, useCase, userID, time.Since(start), err)
		return nil, fmt.Errorf("failed to decode LLM response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		noChoices := fmt.Errorf("OpenRouter returned no choices")
		s.logFailure(prompt, useCase, userID, time.Since(start), noChoices)
		return nil, noChoices
	}

	responseText := parsed.Choices[0].Message.Content
	finishReason := parsed.Choices[0].FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	outputTokens := parsed.Usage.CompletionTokens
	if outputTokens == 0 {
		outputTokens = countTokens(responseText)
	}
	totalTokens := parsed.Usage.TotalTokens
	if totalTokens == 0 {
		totalTokens = inputTokens + outputTokens
	}

	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	cost := calculateCost(s.model, inputTokens, outputTokens)

	hallucination := detectHallucination(prompt, responseText)
	safety := checkSafety(responseText)
	quality := qualityScore(responseText, prompt)

	interaction := models.LLMInteraction{
		InteractionID:         uuid.NewString(),
		Timestamp:             time.Now(),
		Model:                 s.model,
		UseCase:               useCase,
		UserID:                userID,
		PromptText:            prompt,
		PromptTokens:          inputTokens,
		ResponseText:          responseText,
		ResponseTokens:        outputTokens,
		FinishReason:          finishReason,
		LatencyMs:             latencyMs,
		TotalTokens:           totalTokens,
		CostUSD:               cost,
		QualityScore:          quality,
		HallucinationDetected: hallucination.Detected,
		SafetyPassed:          safety.Passed,
	}
	if err := s.db.Create(&interaction).Error; err != nil {
		logger.Error("Failed to log LLM interaction", map[string]interface{}{"error": err.Error()})
	}

	metrics.LLMRequestsTotal.WithLabelValues(s.model, "success").Inc()
	metrics.LLMTokensTotal.Add(float64(totalTokens))
	logger.Info("LLM query processed", map[string]interface{}{
		"latency_ms": latencyMs,
		"tokens":     totalTokens,
		"cost_usd":   cost,
	})

	s.checkAlerts(cost, latencyMs, hallucination.Detected)

	return &QueryResult{
		Response: responseText,
		Model:    s.model,
		Metrics: map[string]any{
			"latency_ms":             latencyMs,
			"total_tokens":           totalTokens,
			"cost_usd":               cost,
			"quality_score":          quality,
			"hallucination_detected": hallucination.Detected,
			"safety_passed":          safety.Passed,
		},
	}, nil
}

func (s *LLMService) logFailure(prompt, useCase string, userID *string, elapsed time.Duration, cause error) {
	msg := cause.Error()
	interaction := models.LLMInteraction{
		InteractionID: uuid.NewString(),
		Timestamp:     time.Now(),
		Model:         s.model,
		UseCase:       useCase,
		UserID:        userID,
		PromptText:    prompt,
		LatencyMs:     float64(elapsed.Microseconds()) / 1000,
		Error:         &msg,
	}
	if err := s.db.Create(&interaction).Error; err != nil {
		logger.Error("Failed to log LLM error", map[string]interface{}{"error": err.Error()})
	}

	metrics.LLMRequestsTotal.WithLabelValues(s.model, "error").Inc()
	logger.Error("LLM query failed", map[string]interface{}{"error": msg})
}

// checkAlerts raises alerts for slow responses, suspected hallucinations and
// hourly cost overruns.
func (s *LLMService) checkAlerts(cost, latencyMs float64, hallucination bool) {
	if latencyMs > llmLatencyAlertMs {
		v := latencyMs
		s.createAlert(models.LLMAlertHighLatency, "warning",
			fmt.Sprintf("LLM latency %.0fms exceeded %.0fms threshold", latencyMs, llmLatencyAlertMs), &v)
	}

	if hallucination {
		s.createAlert(models.LLMAlertHallucination, "high",
			"Potential hallucination detected in LLM response", nil)
	}

	cutoff := time.Now().Add(-time.Hour)
	var hourlyCost *float64
	err := s.db.Model(&models.LLMInteraction{}).
		Where("timestamp >= ? AND error IS NULL", cutoff).
		Select("SUM(cost_usd)").
		Scan(&hourlyCost).Error
	if err != nil || hourlyCost == nil {
		return
	}
	if *hourlyCost > llmHourlyCostAlert {
		s.createAlert(models.LLMAlertHighCost, "warning",
			fmt.Sprintf("Hourly LLM cost $%.2f exceeded $%.0f threshold", *hourlyCost, llmHourlyCostAlert), hourlyCost)
	}
}

func (s *LLMService) createAlert(alertType models.LLMAlertType, severity, message string, value *float64) {
	alert := models.LLMAlert{
		Timestamp:    time.Now(),
		AlertType:    alertType,
		Severity:     severity,
		Message:      message,
		CurrentValue: value,
	}
	if err := s.db.Create(&alert).Error; err != nil {
		logger.Error("Failed to create LLM alert", map[string]interface{}{"error": err.Error()})
		return
	}
	logger.Warn("LLM alert created", map[string]interface{}{
		"alert_type": alertType,
		"message":    message,
	})
}

// MetricsSummary aggregates interaction metrics over the last N hours.
func (s *LLMService) MetricsSummary(hours int) map[string]any {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var interactions []models.LLMInteraction
	err := s.db.Where("timestamp >= ? AND error IS NULL", cutoff).Find(&interactions).Error
	if err != nil {
		logger.Error("Failed to load LLM interactions", map[string]interface{}{"error": err.Error()})
	}

	if len(interactions) == 0 {
		return map[string]any{
			"message":           "No LLM interactions in the specified timeframe",
			"time_window_hours": hours,
		}
	}

	total := len(interactions)
	var totalTokens int
	var totalCost, totalLatency, totalQuality float64
	var hallucinations, safetyViolations int
	for _, i := range interactions {
		totalTokens += i.TotalTokens
		totalCost += i.CostUSD
		totalLatency += i.LatencyMs
		totalQuality += i.QualityScore
		if i.HallucinationDetected {
			hallucinations++
		}
		if !i.SafetyPassed {
			safetyViolations++
		}
	}

	return map[string]any{
		"time_window_hours":     hours,
		"total_requests":        total,
		"total_tokens":          totalTokens,
		"total_cost_usd":        totalCost,
		"avg_latency_ms":        totalLatency / float64(total),
		"throughput_rph":        float64(total) / float64(hours),
		"hallucination_rate":    float64(hallucinations) / float64(total),
		"safety_violation_rate": float64(safetyViolations) / float64(total),
		"avg_quality_score":     totalQuality / float64(total),
		"model":                 s.model,
	}
}

// Interactions returns the most recent interactions, newest first.
func (s *LLMService) Interactions(limit int) ([]models.LLMInteraction, error) {
	var interactions []models.LLMInteraction
	err := s.db.Order("timestamp DESC").Limit(limit).Find(&interactions).Error
	return interactions, err
}

// Alerts lists LLM alerts; status "all" includes acknowledged ones.
func (s *LLMService) Alerts(status string, limit int) ([]models.LLMAlert, error) {
	query := s.db.Order("timestamp DESC").Limit(limit)
	if status != "all" {
		query = query.Where("acknowledged = ?", false)
	}

	var alerts []models.LLMAlert
	err := query.Find(&alerts).Error
	return alerts, err
}

// countTokens estimates token count at roughly 1.3 tokens per word.
func countTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * tokensPerWordFactor)
}

// calculateCost prices token usage for the given model, falling back to
// gpt-3.5-turbo pricing for unknown models.
func calculateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := llmPricing[model]
	if !ok {
		pricing = llmPricing[defaultModel]
	}
	return float64(inputTokens)*pricing.Input + float64(outputTokens)*pricing.Output
}

var hallucinationIndicators = []string{
	"i don't have access to",
	"i cannot verify",
	"as an ai",
	"i apologize, but i don't have real-time",
	"i don't have information about",
	"fictional",
	"made up",
	"i cannot provide",
	"i'm not able to",
}

var riskyClaims = []string{
	"guaranteed return",
	"risk-free",
	"definitely will",
	"100% safe",
	"no risk",
	"guaranteed profit",
}

var disclaimerWords = []string{
	"disclaimer", "consult", "financial advisor", "terms apply",
	"subject to", "may vary", "conditions apply",
}

// detectHallucination flags uncertainty markers and risky financial claims
// made without a disclaimer.
func detectHallucination(prompt, response string) HallucinationCheck {
	responseLower := strings.ToLower(response)

	found := []string{}
	for _, indicator := range hallucinationIndicators {
		if strings.Contains(responseLower, indicator) {
			found = append(found, indicator)
		}
	}

	risky := []string{}
	for _, claim := range riskyClaims {
		if strings.Contains(responseLower, claim) {
			risky = append(risky, claim)
		}
	}

	hasDisclaimer := false
	for _, word := range disclaimerWords {
		if strings.Contains(responseLower, word) {
			hasDisclaimer = true
			break
		}
	}

	detected := len(found) > 0 || (len(risky) > 0 && !hasDisclaimer)

	confidence := 0.95
	if detected {
		confidence = 0.6
	}

	return HallucinationCheck{
		Detected:      detected,
		Confidence:    confidence,
		Indicators:    append(found, risky...),
		HasDisclaimer: hasDisclaimer,
	}
}

var unsafeKeywords = []string{
	"hack", "exploit", "fraud", "scam", "illegal",
	"money laundering", "tax evasion", "insider trading",
	"ponzi", "pyramid scheme", "steal", "cheat",
}

// checkSafety scans for fraud-related and harmful-advice keywords.
func checkSafety(text string) SafetyCheck {
	textLower := strings.ToLower(text)

	violations := []string{}
	for _, kw := range unsafeKeywords {
		if strings.Contains(textLower, kw) {
			violations = append(violations, kw)
		}
	}

	severity := "none"
	if len(violations) > 2 {
		severity = "high"
	} else if len(violations) > 0 {
		severity = "medium"
	}

	return SafetyCheck{
		Passed:         len(violations) == 0,
		Violations:     violations,
		Severity:       severity,
		ViolationCount: len(violations),
	}
}

var wordPattern = regexp.MustCompile(`\w+`)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "is": true, "are": true,
	"was": true, "were": true,
}

var professionalWords = []string{"please", "thank you", "contact", "information", "service", "account"}

// qualityScore grades a response on length, structure, punctuation,
// relevance to the prompt and professional tone. Returns a value in [0, 1].
func qualityScore(response, prompt string) float64 {
	if response == "" {
		return 0
	}

	score := 1.0

	length := len(response)
	if length < 50 {
		score -= 0.3
	} else if length > 1500 {
		score -= 0.15
	}

	sentences := strings.Count(response, ".") + strings.Count(response, "!") + strings.Count(response, "?")
	if sentences < 2 {
		score -= 0.2
	}

	first, _ := utf8.DecodeRuneInString(response)
	if !unicode.IsUpper(first) {
		score -= 0.1
	}
	trimmed := strings.TrimSpace(response)
	if trimmed == "" || !strings.ContainsRune(".!?", rune(trimmed[len(trimmed)-1])) {
		score -= 0.1
	}

	promptWords := wordSet(prompt)
	responseWords := wordSet(response)
	if len(promptWords) > 0 {
		matched := 0
		for w := range promptWords {
			if responseWords[w] {
				matched++
			}
		}
		overlap := float64(matched) / float64(len(promptWords))
		if overlap < 0.2 {
			score -= 0.3
		} else if overlap < 0.4 {
			score -= 0.1
		}
	}

	responseLower := strings.ToLower(response)
	professional := 0
	for _, word := range professionalWords {
		if strings.Contains(responseLower, word) {
			professional++
		}
	}
	if professional == 0 {
		score -= 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func wordSet(text string) map[string]bool {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if !stopWords[w] {
			set[w] = true
		}
	}
	return set
}
