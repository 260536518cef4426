package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bull/docchat-server/internal/answer"
)

var validate = validator.New()

// request is a JSON body that knows how to describe its own validation failure.
type request interface {
	normalize()
	invalid(errs validator.ValidationErrors) string
}

type createSessionRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	SessionName string `json:"session_name"`
}

func (r *createSessionRequest) normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.SessionName = strings.TrimSpace(r.SessionName)
}

func (r *createSessionRequest) invalid(validator.ValidationErrors) string {
	return "User ID is required"
}

type sessionRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

func (r *sessionRequest) normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.SessionID = strings.TrimSpace(r.SessionID)
}

func (r *sessionRequest) invalid(validator.ValidationErrors) string {
	return msgSessionRequired
}

type askRequest struct {
	Question  string `json:"question" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

func (r *askRequest) normalize() {
	r.Question = strings.TrimSpace(r.Question)
	r.UserID = strings.TrimSpace(r.UserID)
	r.SessionID = strings.TrimSpace(r.SessionID)
}

func (r *askRequest) invalid(validator.ValidationErrors) string {
	return "Question, User ID, and Session ID are required"
}

type questionsRequest struct {
	TechStack  string `json:"tech_stack" validate:"required"`
	Difficulty string `json:"difficulty" validate:"oneof=easy medium hard"`
}

func (r *questionsRequest) normalize() {
	r.TechStack = strings.TrimSpace(r.TechStack)
	r.Difficulty = strings.ToLower(strings.TrimSpace(r.Difficulty))
	if r.Difficulty == "" {
		r.Difficulty = "medium"
	}
}

func (r *questionsRequest) invalid(errs validator.ValidationErrors) string {
	for _, e := range errs {
		if e.Field() == "TechStack" {
			return "Tech stack is required"
		}
	}
	return "Invalid difficulty. Choose from: " + strings.Join(answer.ValidDifficulties, ", ")
}

// check normalizes req and returns the message for the first validation
// failure, or "" when req is valid.
func check(req request) string {
	req.normalize()
	err := validate.Struct(req)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return req.invalid(verrs)
	}
	return err.Error()
}
