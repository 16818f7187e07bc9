package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"matte/models"
	"matte/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ActionPublisher hands a plan to whatever actually delivers notifications.
type ActionPublisher interface {
	Publish(ctx context.Context, plan models.ActionPlan) error
}

// LogPublisher only records the plan in the log.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogPublisher{logger: logger}
}

func (lp *LogPublisher) Publish(ctx context.Context, plan models.ActionPlan) error {
	for _, action := range plan.Actions {
		fields := logrus.Fields{
			"emergency_id": plan.EmergencyID,
			"user_id":      plan.UserID,
			"action":       action.ActionType(),
		}

		switch a := action.(type) {
		case models.CallAction:
			if a.Target != nil {
				fields["target"] = utils.MaskPhoneNumber(*a.Target)
			}
		case models.SMSAction:
			fields["recipients"] = len(a.Targets)
		case models.LocationShareAction:
			fields["recipients"] = len(a.Targets)
			fields["latitude"] = a.Location.Latitude
			fields["longitude"] = a.Location.Longitude
		}

		lp.logger.WithFields(fields).Info("Emergency action planned")
	}
	return nil
}

// RedisPublisher publishes each plan as JSON on a Redis channel for an
// external delivery service to pick up.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

const DefaultActionChannel = "sos:actions"

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultActionChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

func (rp *RedisPublisher) Publish(ctx context.Context, plan models.ActionPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to encode action plan: %w", err)
	}

	receivers, err := rp.client.Publish(ctx, rp.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish action plan: %w", err)
	}

	logrus.Debugf("Published action plan for emergency %s to %d subscribers", plan.EmergencyID, receivers)
	return nil
}
