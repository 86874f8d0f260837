package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Strategy names reported by SmartParse.
const (
	StrategyJSON     = "json"
	StrategyRepaired = "repaired"
	StrategyHJSON    = "hjson"
)

// RepairJSON fixes common hand-editing mistakes: unquoted keys, single quotes,
// trailing commas, comments and unclosed brackets.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
func ParseHJSON(data string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(data), &result); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("hjson re-encode failed: %w", err)
	}
	return string(out), nil
}

// SmartParse decodes input into v, trying progressively more lenient readers:
//  1. standard JSON
//  2. repaired JSON
//  3. Hjson
//
// It returns the strategy that worked. When all fail the strict decoder's error is
// returned, since it is usually the most precise.
func SmartParse(input []byte, v interface{}) (string, error) {
	strictErr := json.Unmarshal(input, v)
	if strictErr == nil {
		return StrategyJSON, nil
	}

	// Syntax is fine but the content was rejected; leniency cannot help.
	var syntaxErr *json.SyntaxError
	if !errors.As(strictErr, &syntaxErr) {
		return "", strictErr
	}

	if repaired, err := RepairJSON(string(input)); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return StrategyRepaired, nil
		}
	}

	if converted, err := ParseHJSON(string(input)); err == nil {
		if err := json.Unmarshal([]byte(converted), v); err == nil {
			return StrategyHJSON, nil
		}
	}

	return "", fmt.Errorf("all parsing strategies failed: %w", strictErr)
}
