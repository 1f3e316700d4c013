package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/FarmMarket/internal/policy"
	apperrors "github.com/utafrali/FarmMarket/pkg/errors"
)

// ReasonNoQualifyingOrder denies a review from a customer who never ordered the product.
const ReasonNoQualifyingOrder = "NO_QUALIFYING_ORDER"

// authorize consults the policy and records every denial.
func authorize(ctx context.Context, logger *slog.Logger, actor *policy.Actor, action policy.Action, target policy.Target) error {
	d := policy.Authorize(actor, action, target)
	if d.Allowed {
		return nil
	}
	return denied(ctx, logger, actor, action, string(d.Reason), d.Err())
}

// precheck applies the actor-only rules before a target is loaded.
func precheck(ctx context.Context, logger *slog.Logger, actor *policy.Actor, action policy.Action) error {
	d := policy.Precheck(actor, action)
	if d.Allowed {
		return nil
	}
	return denied(ctx, logger, actor, action, string(d.Reason), d.Err())
}

func denied(ctx context.Context, logger *slog.Logger, actor *policy.Actor, action policy.Action, reason string, err error) error {
	authorizationDenials.WithLabelValues(string(action), reason).Inc()

	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	logger.WarnContext(ctx, "authorization denied",
		slog.String("action", string(action)),
		slog.String("reason", reason),
		slog.String("actor_id", actorID),
	)
	return err
}

func noQualifyingOrder(ctx context.Context, logger *slog.Logger, actor *policy.Actor) error {
	return denied(ctx, logger, actor, policy.CreateReview, ReasonNoQualifyingOrder,
		apperrors.Denied(ReasonNoQualifyingOrder, "You must order this product before reviewing"))
}
