package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

func ClassifyIntent(
	ctx context.Context,
	in *GraphState,
	classifier contractx.IntentClassifier,
	threshold float64,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrInternal, errNilState)
	}

	result, err := classifier.Classify(ctx, in.Text, threshold)
	if err != nil {
		return nil, err
	}
	in.Intent = result

	log.Info().
		Str("session_id", in.Session.ID).
		Str("intent", result.Intent).
		Float64("score", result.Score).
		Msg("classified intent")
	return in, nil
}
