package personalize

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/personalizeruntime"
)

// RecommendationsAPI is the subset of the runtime client used for inference.
type RecommendationsAPI interface {
	GetRecommendations(ctx context.Context, params *personalizeruntime.GetRecommendationsInput, optFns ...func(*personalizeruntime.Options)) (*personalizeruntime.GetRecommendationsOutput, error)
}

// Query asks a campaign for items related to ItemID for UserID.
type Query struct {
	CampaignARN string
	ItemID      string
	UserID      string
	NumResults  int32
}

// Recommender calls the inference endpoint.
type Recommender struct {
	api     RecommendationsAPI
	timeout time.Duration
}

// NewRecommender wraps api. A zero timeout means DefaultTimeout.
func NewRecommender(api RecommendationsAPI, timeout time.Duration) *Recommender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Recommender{api: api, timeout: timeout}
}

// Recommend returns the raw recommended item ids in service order, duplicates included.
func (r *Recommender) Recommend(ctx context.Context, q Query) ([]string, error) {
	in := &personalizeruntime.GetRecommendationsInput{
		CampaignArn: aws.String(q.CampaignARN),
	}
	if q.ItemID != "" {
		in.ItemId = aws.String(q.ItemID)
	}
	if q.UserID != "" {
		in.UserId = aws.String(q.UserID)
	}
	if q.NumResults > 0 {
		in.NumResults = aws.Int32(q.NumResults)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	out, err := r.api.GetRecommendations(callCtx, in)
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	ids := make([]string, 0, len(out.ItemList))
	for _, item := range out.ItemList {
		if id := aws.ToString(item.ItemId); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
