/*
review.go - Supervisor review toggles

PURPOSE:
  A supervisor marks a session reviewed or clears the mark. Reviews are
  independent of the engine's operation vocabulary and are persisted as
  their own records keyed (date, sessionId), so that clearing the state
  cache and re-deriving a day does not lose review history. The builder
  re-applies the records onto rebuilt sessions.

SEE ALSO:
  - store.go: ReviewStore interface and ReviewRecord
  - builder.go: applyReviews on rebuild
*/
package schedule

import (
	"context"
	"fmt"
	"time"
)

// ReviewService toggles a session's reviewed flag, keeping the persisted
// review record and the DailyState document in step.
type ReviewService struct {
	Reviews ReviewStore
	States  StateStore
	Builder *Builder

	Now func() time.Time
}

func (rs *ReviewService) now() time.Time {
	if rs.Now != nil {
		return rs.Now()
	}
	return time.Now().UTC()
}

// Review marks a session reviewed. The review record is the durable fact;
// the flag on the DailyState document is the display copy.
func (rs *ReviewService) Review(ctx context.Context, date, sessionID, reviewedBy string) error {
	state, err := rs.Builder.Materialize(ctx, date)
	if err != nil {
		return err
	}
	sess := state.FindSession(sessionID)
	if sess == nil {
		return &NotFoundError{Entity: "session", Key: sessionID}
	}

	rec := ReviewRecord{
		Date:       date,
		SessionID:  sessionID,
		ReviewedBy: reviewedBy,
		ReviewedAt: rs.now(),
	}
	if err := rs.Reviews.UpsertReview(ctx, rec); err != nil {
		return fmt.Errorf("%w: saving review: %v", ErrUnavailable, err)
	}

	sess.Reviewed = true
	sess.ReviewedBy = reviewedBy
	sess.LastModified = rec.ReviewedAt
	if err := rs.States.Store(ctx, state); err != nil {
		if IsRetryable(err) {
			return err
		}
		return fmt.Errorf("%w: persisting state: %v", ErrUnavailable, err)
	}
	return nil
}

// Unreview clears a session's reviewed flag and deletes the review record.
func (rs *ReviewService) Unreview(ctx context.Context, date, sessionID string) error {
	state, err := rs.Builder.Materialize(ctx, date)
	if err != nil {
		return err
	}
	sess := state.FindSession(sessionID)
	if sess == nil {
		return &NotFoundError{Entity: "session", Key: sessionID}
	}

	if err := rs.Reviews.DeleteReview(ctx, date, sessionID); err != nil {
		return fmt.Errorf("%w: deleting review: %v", ErrUnavailable, err)
	}

	sess.Reviewed = false
	sess.ReviewedBy = ""
	sess.LastModified = rs.now()
	if err := rs.States.Store(ctx, state); err != nil {
		if IsRetryable(err) {
			return err
		}
		return fmt.Errorf("%w: persisting state: %v", ErrUnavailable, err)
	}
	return nil
}
