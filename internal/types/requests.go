package types

import (
	"github.com/go-playground/validator/v10"
)

// GenerationRequest is the body posted to every generation endpoint.
type GenerationRequest struct {
	RiskAssessment RiskAssessmentInput `json:"RiskAssessment"`
}

// RiskAssessmentInput carries the selected work process.
type RiskAssessmentInput struct {
	Description string `json:"description" validate:"required"`
}

// NewGenerationRequest builds a request for the given process description.
func NewGenerationRequest(process string) GenerationRequest {
	return GenerationRequest{RiskAssessment: RiskAssessmentInput{Description: process}}
}

// Validate validates the GenerationRequest using the validator.
func (r *GenerationRequest) Validate() error {
	return newValidator().Struct(r)
}

// ChatRequest is the body posted to the chat endpoint.
type ChatRequest struct {
	Question string `json:"question" validate:"required"`
}

// Validate validates the ChatRequest using the validator.
func (r *ChatRequest) Validate() error {
	return newValidator().Struct(r)
}

// ChatAnswer is the chat endpoint response.
type ChatAnswer struct {
	Answer string    `json:"answer"`
	State  ChatState `json:"state"`
}

// ChatState holds the service-side answer state.
type ChatState struct {
	AnswerText string `json:"answer_text"`
}

// Text returns the answer, falling back to the state text when the top-level
// answer is empty.
func (a ChatAnswer) Text() string {
	if a.Answer != "" {
		return a.Answer
	}
	return a.State.AnswerText
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("riskvalue", func(fl validator.FieldLevel) bool {
		return RiskValue(fl.Field().String()).Valid()
	})
	return v
}
