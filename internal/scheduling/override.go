package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/reelbook/reelbook/internal/card"
)

//go:generate mockgen -source=override.go -destination=../mocks/scheduling/mock_override.go -package=mock_scheduling

// Override is the capability handed to an external scheduler. It receives
// the same inputs as Schedule plus the built-in fallback result and may
// propose a replacement. Any error is treated as "no override" by the
// caller; implementations must respect ctx cancellation.
type Override interface {
	Propose(ctx context.Context, req Request, fallback card.Card) (card.Card, error)
}

// overrideRequest is the wire form sent to an HTTP scheduler.
type overrideRequest struct {
	UserRef       string    `json:"user_ref"`
	TuneRef       int64     `json:"tune_ref"`
	RepertoireRef int64     `json:"repertoire_ref"`
	Rating        string    `json:"rating"`
	At            time.Time `json:"at"`
	Fallback      proposal  `json:"fallback"`
}

// proposal is the wire form of a scheduling result.
type proposal struct {
	Due           time.Time  `json:"due"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	ScheduledDays int        `json:"scheduled_days"`
	State         string     `json:"state"`
	LastReview    *time.Time `json:"last_review,omitempty"`
}

// HTTPOverride consults an external scheduler over HTTP. Shape mismatches
// and transport errors surface as errors for the service to recover from.
type HTTPOverride struct {
	client *resty.Client
}

// NewHTTPOverride creates an HTTPOverride posting to the given URL.
func NewHTTPOverride(url string, timeout time.Duration) *HTTPOverride {
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetRetryCount(1)
	return &HTTPOverride{client: client}
}

// Propose sends the request and fallback to the external scheduler and
// validates the returned proposal before adopting it.
func (h *HTTPOverride) Propose(ctx context.Context, req Request, fallback card.Card) (card.Card, error) {
	body := overrideRequest{
		UserRef:       req.UserRef,
		TuneRef:       req.TuneRef,
		RepertoireRef: req.RepertoireRef,
		Rating:        req.Rating.String(),
		At:            req.At,
		Fallback: proposal{
			Due:           fallback.Due,
			Stability:     fallback.Stability,
			Difficulty:    fallback.Difficulty,
			ScheduledDays: fallback.ScheduledDays,
			State:         fallback.State.String(),
			LastReview:    fallback.LastReview,
		},
	}

	var result proposal
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("")
	if err != nil {
		return card.Card{}, fmt.Errorf("client.Post() > %w", err)
	}
	if resp.IsError() {
		return card.Card{}, fmt.Errorf("external scheduler returned status %d", resp.StatusCode())
	}

	state, err := card.ParseState(result.State)
	if err != nil {
		return card.Card{}, fmt.Errorf("card.ParseState() > %w", err)
	}
	if result.Due.IsZero() {
		return card.Card{}, fmt.Errorf("external scheduler returned zero due date")
	}

	next := fallback
	next.Due = result.Due
	next.Stability = result.Stability
	next.Difficulty = result.Difficulty
	next.ScheduledDays = result.ScheduledDays
	next.State = state
	if result.LastReview != nil {
		next.LastReview = result.LastReview
	}
	return next, nil
}
