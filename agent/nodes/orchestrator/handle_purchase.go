package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

// ProductNotFoundReply answers a purchase request that matches no product.
const ProductNotFoundReply = "I couldn't find that specific product. Can you tell me more?"

func HandlePurchase(
	ctx context.Context,
	in *GraphState,
	products contractx.ProductSearcher,
	purchase contractx.PurchaseHandler,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrInternal, errNilState)
	}

	product, err := products.Search(ctx, in.Text)
	if errors.Is(err, contractx.ErrProductNotFound) {
		log.Info().Str("session_id", in.Session.ID).Msg("no product matched purchase request")
		in.Reply = contractx.Reply{
			Type:    contractx.ReplyTypeFallback,
			Content: ProductNotFoundReply,
			Tool:    contractx.IntentPurchase,
		}
		return in, nil
	}
	if err != nil {
		return nil, err
	}

	content, err := purchase.Handle(ctx, in.Session, in.Text, product)
	if err != nil {
		return nil, err
	}
	in.Reply = contractx.Reply{Type: contractx.ReplyTypeSalesPitch, Content: content, Tool: contractx.IntentPurchase}
	return in, nil
}
