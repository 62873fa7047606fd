package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newGuard(t *testing.T, window time.Duration) (*DeliveryGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDeliveryGuard(client, window, newTestLogger()), mr
}

func TestDeliveryGuardSuppressesDuplicateInWindow(t *testing.T) {
	guard, mr := newGuard(t, time.Minute)
	ctx := context.Background()

	assert.True(t, guard.FirstDelivery(ctx, "+15550001111", "slot_2026-10-19_09_0"))
	assert.False(t, guard.FirstDelivery(ctx, "+15550001111", "slot_2026-10-19_09_0"))
	assert.True(t, guard.FirstDelivery(ctx, "+15550001111", "slot_2026-10-19_10_1"))
	assert.True(t, guard.FirstDelivery(ctx, "+15550002222", "slot_2026-10-19_09_0"))

	mr.FastForward(2 * time.Minute)
	assert.True(t, guard.FirstDelivery(ctx, "+15550001111", "slot_2026-10-19_09_0"))
}

func TestDeliveryGuardRelease(t *testing.T) {
	guard, mr := newGuard(t, time.Minute)
	ctx := context.Background()

	require.True(t, guard.FirstDelivery(ctx, "+15550001111", "slot_2026-10-19_09_0"))
	guard.Release(ctx, "+15550001111", "slot_2026-10-19_09_0")

	assert.False(t, mr.Exists("booking:selection:+15550001111:slot_2026-10-19_09_0"))
	assert.True(t, guard.FirstDelivery(ctx, "+15550001111", "slot_2026-10-19_09_0"))
}

func TestDeliveryGuardFailsOpen(t *testing.T) {
	guard, mr := newGuard(t, time.Minute)
	mr.Close()

	assert.True(t, guard.FirstDelivery(context.Background(), "+15550001111", "slot_2026-10-19_09_0"))
}

func TestDeliveryGuardDisabled(t *testing.T) {
	guard, _ := newGuard(t, 0)
	assert.False(t, guard.Enabled())
	assert.True(t, guard.FirstDelivery(context.Background(), "+15550001111", "slot"))
	assert.True(t, guard.FirstDelivery(context.Background(), "+15550001111", "slot"))

	var nilGuard *DeliveryGuard
	assert.True(t, nilGuard.FirstDelivery(context.Background(), "+15550001111", "slot"))
}
