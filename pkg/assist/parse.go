package assist

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var ErrInvalidResponse = errors.New("invalid response from assistant")

// Suggestions is the assistant's advice for one task.
type Suggestions struct {
	Tips        []string `json:"tips"`
	Suggestions []string `json:"suggestions"`
	Approach    string   `json:"approach"`
}

// DayOptimization is the assistant's plan for one day.
type DayOptimization struct {
	Summary          string   `json:"summary"`
	BreakSuggestions []string `json:"breakSuggestions"`
	EnergyManagement []string `json:"energyManagement"`
	ActionableSteps  []string `json:"actionableSteps"`
}

// jsonSpan is greedy: it spans from the first '{' to the last '}'.
var jsonSpan = regexp.MustCompile(`\{[\s\S]*\}`)

// ExtractJSON returns the brace-delimited span of s.
func ExtractJSON(s string) (string, error) {
	span := jsonSpan.FindString(s)
	if span == "" {
		return "", fmt.Errorf("%w: no JSON object found", ErrInvalidResponse)
	}
	return span, nil
}

// ParseSuggestions parses and validates a suggestion reply.
func ParseSuggestions(s string) (*Suggestions, error) {
	span, err := ExtractJSON(s)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Tips        *[]string `json:"tips"`
		Suggestions *[]string `json:"suggestions"`
		Approach    string    `json:"approach"`
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if raw.Tips == nil || raw.Suggestions == nil || raw.Approach == "" {
		return nil, fmt.Errorf("%w: missing tips, suggestions or approach", ErrInvalidResponse)
	}

	return &Suggestions{
		Tips:        *raw.Tips,
		Suggestions: *raw.Suggestions,
		Approach:    raw.Approach,
	}, nil
}

// ParseDayOptimization parses and validates a day optimization reply.
func ParseDayOptimization(s string) (*DayOptimization, error) {
	span, err := ExtractJSON(s)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Summary          string    `json:"summary"`
		BreakSuggestions *[]string `json:"breakSuggestions"`
		EnergyManagement *[]string `json:"energyManagement"`
		ActionableSteps  *[]string `json:"actionableSteps"`
	}
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if raw.Summary == "" || raw.BreakSuggestions == nil || raw.EnergyManagement == nil || raw.ActionableSteps == nil {
		return nil, fmt.Errorf("%w: missing summary, breakSuggestions, energyManagement or actionableSteps", ErrInvalidResponse)
	}

	return &DayOptimization{
		Summary:          raw.Summary,
		BreakSuggestions: *raw.BreakSuggestions,
		EnergyManagement: *raw.EnergyManagement,
		ActionableSteps:  *raw.ActionableSteps,
	}, nil
}
