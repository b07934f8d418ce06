package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"onboarding-workers/internal/common/errors"
	"onboarding-workers/internal/common/logger"
	"onboarding-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const subscriptionColumns = `id, applicant_id, package_id, package_type, account_limit, bdt_account_limit, is_active, paid_upto`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		s        models.Subscription
		paidUpto sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.ApplicantID, &s.PackageID, &s.PackageType,
		&s.AccountLimit, &s.BDTAccountLimit, &s.IsActive, &paidUpto); err != nil {
		return nil, err
	}
	if paidUpto.Valid {
		s.PaidUpto = &paidUpto.Time
	}
	return &s, nil
}

// SubscriptionStore reads onboarding subscriptions with a Redis cache-aside
// layer keyed by applicant.
type SubscriptionStore struct {
	db     *sql.DB
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewSubscriptionStore(db *sql.DB, rdb *redis.Client, ttl time.Duration, log logger.Logger) *SubscriptionStore {
	return &SubscriptionStore{
		db:     db,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "subscription-store"}),
	}
}

func subscriptionCacheKey(applicantID string) string {
	return "sub:" + applicantID
}

// ActiveOnboarding returns the active onboarding-package subscription, or nil
// when the applicant has none.
func (s *SubscriptionStore) ActiveOnboarding(ctx context.Context, applicantID string) (*models.Subscription, error) {
	cacheKey := subscriptionCacheKey(applicantID)
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var sub models.Subscription
			if err := json.Unmarshal([]byte(val), &sub); err == nil {
				return &sub, nil
			}
		}
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+`
		   FROM subscriptions
		  WHERE applicant_id = $1 AND is_active AND package_type = $2
		  LIMIT 1`,
		applicantID, string(models.PackageOnboarding),
	)
	sub, err := scanSubscription(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, queryError("get_subscription", applicantID, err)
	}

	if s.redis != nil {
		data, _ := json.Marshal(sub)
		if err := s.redis.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
			s.logger.Debug("subscription cache write failed", map[string]interface{}{
				"applicantId": applicantID,
				"error":       err.Error(),
			})
		}
	}
	return sub, nil
}

// ExtendPaidUpto moves the paid-up-to date so the paid period starts at from.
// A date already beyond from+period is kept.
func (s *SubscriptionStore) ExtendPaidUpto(ctx context.Context, subscriptionID string, from time.Time, period time.Duration) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE subscriptions
		    SET paid_upto = GREATEST(COALESCE(paid_upto, $2::timestamptz), $2::timestamptz + ($3 * interval '1 second'))
		  WHERE id = $1 AND is_active
		 RETURNING `+subscriptionColumns,
		subscriptionID, from, int64(period/time.Second),
	)
	sub, err := scanSubscription(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewResourceNotFoundError("subscriptions", "subscriptionId: "+subscriptionID)
	}
	if err != nil {
		return nil, queryError("extend_paid_upto", "", err)
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, subscriptionCacheKey(sub.ApplicantID)).Err(); err != nil {
			s.logger.Warn("subscription cache invalidation failed", map[string]interface{}{
				"applicantId": sub.ApplicantID,
				"error":       err.Error(),
			})
		}
	}
	return sub, nil
}
