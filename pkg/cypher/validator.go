package cypher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/graphchat/pkg/llm"
)

// ValidationRequest is the input of one validation call.
type ValidationRequest struct {
	Question  string
	Schema    string
	Candidate Candidate
}

// Validator checks a candidate against the schema and returns the corrected
// text with any remaining diagnostics. An empty error list means valid.
type Validator interface {
	Validate(ctx context.Context, req ValidationRequest) (Candidate, error)
}

// LLMValidator asks a model, prompted for a JSON object, to review a query.
type LLMValidator struct {
	call   llm.CallFunc
	prompt string
}

// NewLLMValidator uses ValidationPrompt unless prompt is non-empty. call
// should be created with CallerConfig.JSON set.
func NewLLMValidator(call llm.CallFunc, prompt string) *LLMValidator {
	if prompt == "" {
		prompt = ValidationPrompt
	}
	return &LLMValidator{call: call, prompt: prompt}
}

// Validate implements Validator.
func (v *LLMValidator) Validate(ctx context.Context, req ValidationRequest) (Candidate, error) {
	errs, err := json.Marshal(req.Candidate.Errors)
	if err != nil {
		return Candidate{}, fmt.Errorf("marshal errors: %w", err)
	}

	out, err := v.call(ctx, llm.Render(v.prompt, map[string]string{
		"question": req.Question,
		"schema":   req.Schema,
		"cypher":   req.Candidate.Text,
		"errors":   string(errs),
	}))
	if err != nil {
		return Candidate{}, err
	}

	return ParseValidation(out, req.Candidate.Text)
}

// ParseValidation decodes validator output. A missing or blank "cypher" keeps
// previous; a missing "errors" list means no errors.
func ParseValidation(output, previous string) (Candidate, error) {
	var parsed struct {
		Cypher *string `json:"cypher"`
		Errors []any   `json:"errors"`
	}
	body := llm.StripFences(output)
	if start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); start >= 0 && end > start {
		body = body[start : end+1]
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return Candidate{}, fmt.Errorf("%w: %w", ErrMalformedValidation, err)
	}

	c := Candidate{Text: previous, Errors: []string{}}
	if parsed.Cypher != nil && strings.TrimSpace(*parsed.Cypher) != "" {
		c.Text = strings.TrimSpace(*parsed.Cypher)
	}
	for _, e := range parsed.Errors {
		switch v := e.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				c.Errors = append(c.Errors, v)
			}
		case nil:
		default:
			b, _ := json.Marshal(v)
			c.Errors = append(c.Errors, string(b))
		}
	}
	return c, nil
}
