package pubsub

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/segmentio/encoding/json"
)

type presenceSnapshot struct {
	Hash  map[string]any `mapstructure:"hash"`
	Count int            `mapstructure:"count"`
	IDs   []string       `mapstructure:"ids"`
}

type memberPayload struct {
	UserID   string `mapstructure:"user_id"`
	UserInfo any    `mapstructure:"user_info"`
}

func decodePayload(data any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

func decodePresenceSnapshot(data any) (presenceSnapshot, error) {
	var payload struct {
		Presence *presenceSnapshot `mapstructure:"presence"`
	}
	if err := decodePayload(data, &payload); err != nil {
		return presenceSnapshot{}, fmt.Errorf("decode presence snapshot: %w", err)
	}
	if payload.Presence == nil {
		return presenceSnapshot{}, errors.New("decode presence snapshot: missing presence")
	}
	return *payload.Presence, nil
}

func decodeMember(data any) (Member, error) {
	var payload memberPayload
	if err := decodePayload(data, &payload); err != nil {
		return Member{}, fmt.Errorf("decode member: %w", err)
	}
	if payload.UserID == "" {
		return Member{}, errors.New("decode member: missing user_id")
	}
	return Member{ID: payload.UserID, Info: payload.UserInfo}, nil
}

// userIDFromChannelData reads user_id out of the channel_data string the
// authorization endpoint returns for presence channels.
func userIDFromChannelData(channelData string) (string, error) {
	if channelData == "" {
		return "", nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(channelData), &raw); err != nil {
		return "", fmt.Errorf("decode channel_data: %w", err)
	}
	var payload memberPayload
	if err := decodePayload(raw, &payload); err != nil {
		return "", fmt.Errorf("decode channel_data: %w", err)
	}
	return payload.UserID, nil
}

func (c *Channel) bindPresenceEvents() {
	c.Bind(InternalSubscriptionSucceeded, func(data any) {
		c.AcknowledgeSubscription(data)
		c.DispatchWithAll(EventSubscriptionSucceeded, c.members)
	})

	c.Bind(InternalMemberAdded, func(data any) {
		member, err := decodeMember(data)
		if err != nil {
			c.logger.WithError(err).Warn("ignoring member_added")
			return
		}
		c.members.Add(member)
		c.DispatchWithAll(EventMemberAdded, member)
	})

	c.Bind(InternalMemberRemoved, func(data any) {
		member, err := decodeMember(data)
		if err != nil {
			c.logger.WithError(err).Warn("ignoring member_removed")
			return
		}
		stored, ok := c.members.Remove(member.ID)
		if ok && member.Info == nil {
			member.Info = stored.Info
		}
		c.DispatchWithAll(EventMemberRemoved, member)
	})
}
