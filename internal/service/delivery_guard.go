package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	// RedisSelectionKeyPrefix namespaces selection dedupe keys
	RedisSelectionKeyPrefix = "booking:selection:"

	// Timeout for individual Redis operations
	redisGuardTimeout = 2 * time.Second
)

// DeliveryGuard suppresses a repeated slot selection from the same sender
// inside a time window. A zero window or nil client disables it.
type DeliveryGuard struct {
	redisClient *redis.Client
	window      time.Duration
	log         *logrus.Logger
}

func NewDeliveryGuard(redisClient *redis.Client, window time.Duration, log *logrus.Logger) *DeliveryGuard {
	return &DeliveryGuard{redisClient: redisClient, window: window, log: log}
}

func (g *DeliveryGuard) Enabled() bool {
	return g != nil && g.redisClient != nil && g.window > 0
}

// FirstDelivery reports whether this is the first (sender, slot) selection in the window.
// Redis failures fail open so the booking still proceeds.
func (g *DeliveryGuard) FirstDelivery(ctx context.Context, sender, slotID string) bool {
	if !g.Enabled() {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, redisGuardTimeout)
	defer cancel()

	key := selectionKey(sender, slotID)
	ok, err := g.redisClient.SetNX(ctx, key, time.Now().Unix(), g.window).Result()
	if err != nil {
		g.log.Warnf("Failed to check selection dedupe key %s: %+v", key, err)
		return true
	}
	return ok
}

// Release forgets a selection so a retry after a failed booking is not suppressed
func (g *DeliveryGuard) Release(ctx context.Context, sender, slotID string) {
	if !g.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, redisGuardTimeout)
	defer cancel()

	if err := g.redisClient.Del(ctx, selectionKey(sender, slotID)).Err(); err != nil {
		g.log.Warnf("Failed to release selection dedupe key: %+v", err)
	}
}

func selectionKey(sender, slotID string) string {
	return fmt.Sprintf("%s%s:%s", RedisSelectionKeyPrefix, sender, slotID)
}
