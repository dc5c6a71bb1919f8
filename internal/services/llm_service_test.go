package services

import (
	"math"
	"testing"
)

func TestCountTokens(t *testing.T) {
	tests := []struct {
		text     string
		expected int
	}{
		{"", 0},
		{"hello", 1},
		{"one two three four", 5},
		{"what   about    extra spaces", 5},
	}

	for _, tt := range tests {
		if got := countTokens(tt.text); got != tt.expected {
			t.Errorf("countTokens(%q) = %d, expected %d", tt.text, got, tt.expected)
		}
	}
}

func TestCalculateCost(t *testing.T) {
	if got := calculateCost("openai/gpt-4", 100, 50); math.Abs(got-6.0) > 1e-9 {
		t.Errorf("Expected gpt-4 cost 6.0, got %f", got)
	}

	if got := calculateCost("meta-llama/llama-3.1-8b-instruct:free", 1000, 1000); got != 0 {
		t.Errorf("Expected free model cost 0, got %f", got)
	}

	// Unknown models fall back to gpt-3.5-turbo pricing
	if got := calculateCost("some/unknown-model", 100, 50); math.Abs(got-0.125) > 1e-9 {
		t.Errorf("Expected fallback cost 0.125, got %f", got)
	}
}

func TestDetectHallucination(t *testing.T) {
	check := detectHallucination("What is the current rate?", "As an AI, I cannot verify current rates.")
	if !check.Detected {
		t.Error("Expected hallucination for uncertainty indicators")
	}
	if len(check.Indicators) == 0 {
		t.Error("Expected indicators to be reported")
	}

	check = detectHallucination("Should I invest?", "This investment is risk-free with a guaranteed return.")
	if !check.Detected {
		t.Error("Expected hallucination for risky claims without disclaimer")
	}

	check = detectHallucination("Should I invest?",
		"This fund targets a guaranteed return, but returns may vary; consult a financial advisor.")
	if check.Detected {
		t.Error("Risky claims with a disclaimer should not be flagged")
	}
	if !check.HasDisclaimer {
		t.Error("Expected disclaimer to be detected")
	}

	check = detectHallucination("How does interest work?", "Savings accounts typically earn interest monthly.")
	if check.Detected {
		t.Error("Clean response should not be flagged")
	}
	if check.Confidence != 0.95 {
		t.Errorf("Expected confidence 0.95 for clean response, got %f", check.Confidence)
	}
}

func TestCheckSafety(t *testing.T) {
	check := checkSafety("What is my account balance?")
	if !check.Passed {
		t.Error("Expected clean text to pass safety check")
	}
	if check.Severity != "none" {
		t.Errorf("Expected severity none, got %s", check.Severity)
	}

	check = checkSafety("Is this offer a scam?")
	if check.Passed {
		t.Error("Expected single violation to fail safety check")
	}
	if check.Severity != "medium" {
		t.Errorf("Expected severity medium for one violation, got %s", check.Severity)
	}

	check = checkSafety("How to hack accounts, run a scam and steal funds")
	if check.Severity != "high" {
		t.Errorf("Expected severity high for three violations, got %s", check.Severity)
	}
	if check.ViolationCount != 3 {
		t.Errorf("Expected 3 violations, got %d", check.ViolationCount)
	}
}

func TestQualityScore(t *testing.T) {
	if got := qualityScore("", "anything"); got != 0 {
		t.Errorf("Empty response should score 0, got %f", got)
	}

	prompt := "What are the interest rates for savings account deposits?"
	good := "Our savings account interest rates vary by deposit amount. " +
		"Please contact customer service for current rates and account information. " +
		"Rates are subject to change."
	if got := qualityScore(good, prompt); got != 1.0 {
		t.Errorf("Expected full score for well-formed response, got %f", got)
	}

	// A digit-led response misses the capitalization check
	digitLed := "2% is our base savings rate. " + good
	if got := qualityScore(digitLed, prompt); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("Expected 0.9 for digit-led response, got %f", got)
	}

	// Short, unstructured, off-topic text accumulates penalties
	bad := qualityScore("no", prompt)
	if bad >= 0.5 {
		t.Errorf("Expected heavily penalized score, got %f", bad)
	}

	// Scores are clamped to [0, 1]
	if bad < 0 || bad > 1 {
		t.Errorf("Score out of range: %f", bad)
	}
}
