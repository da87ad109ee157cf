package orchestratornode

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	statex "github.com/tanpawarit/Ivabot/agent/state"
)

var ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)

var errNilState = errors.New("orchestrator graph state is nil")

type GraphInput struct {
	Session *statex.Session
	Text    string
}

type GraphOutput struct {
	Reply contractx.Reply
}

type GraphState struct {
	Session *statex.Session
	Text    string

	Intent contractx.ClassificationResult
	Reply  contractx.Reply
}

func ValidateRequest(in GraphInput) (*GraphState, error) {
	if in.Session == nil {
		return nil, statex.ErrNilSessionState
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrInvalidMessage
	}
	return &GraphState{Session: in.Session, Text: in.Text}, nil
}
