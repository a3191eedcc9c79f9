package arena

import (
	"fmt"
)

// UnknownModelError reports a model id that is not in the catalog.
type UnknownModelError struct {
	ModelID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model: %s", e.ModelID)
}

// PromptTooLongError reports a question exceeding the prompt token budget.
type PromptTooLongError struct {
	Tokens int
	Budget int
}

func (e *PromptTooLongError) Error() string {
	return fmt.Sprintf("prompt is %d tokens, budget is %d", e.Tokens, e.Budget)
}

// UnknownVerdictError reports a vote result outside
// {model1, model2, draw, invalid}.
type UnknownVerdictError struct {
	Verdict string
}

func (e *UnknownVerdictError) Error() string {
	return fmt.Sprintf("unknown verdict: %q", e.Verdict)
}

// ComparisonFailedError reports that a battle could not produce both
// responses. FailedModelID identifies which side failed first.
type ComparisonFailedError struct {
	FailedModelID string
	Err           error
}

func (e *ComparisonFailedError) Error() string {
	return fmt.Sprintf("comparison failed on model %s: %v", e.FailedModelID, e.Err)
}

func (e *ComparisonFailedError) Unwrap() error {
	return e.Err
}
