package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/instantmusic/realtime/testing/suite"
)

func TestLocalLayer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to every subscriber of the room", func(t *testing.T) {
		// Given: a layer with two subscribers on one room and one on another
		layer := NewLocalLayer()

		var gotA, gotB, gotOther [][]byte
		cancelA, err := layer.Subscribe(ctx, "ABC123", func(frame []byte) { gotA = append(gotA, frame) })
		require.NoError(t, err)
		defer cancelA()

		cancelB, err := layer.Subscribe(ctx, "ABC123", func(frame []byte) { gotB = append(gotB, frame) })
		require.NoError(t, err)
		defer cancelB()

		cancelOther, err := layer.Subscribe(ctx, "ZZZ999", func(frame []byte) { gotOther = append(gotOther, frame) })
		require.NoError(t, err)
		defer cancelOther()

		// When: publishing a frame to the first room
		err = layer.Publish(ctx, "ABC123", []byte(`{"type":"game_started"}`))
		require.NoError(t, err)

		// Then: both room subscribers get it and the other room stays silent
		require.Len(t, gotA, 1)
		require.Len(t, gotB, 1)
		require.Equal(t, `{"type":"game_started"}`, string(gotA[0]))
		require.Empty(t, gotOther)
	})

	t.Run("cancel stops delivery", func(t *testing.T) {
		// Given: a cancelled subscription
		layer := NewLocalLayer()

		var got [][]byte
		cancel, err := layer.Subscribe(ctx, "ABC123", func(frame []byte) { got = append(got, frame) })
		require.NoError(t, err)
		cancel()

		// When: publishing after the cancel
		err = layer.Publish(ctx, "ABC123", []byte(`{"type":"game_started"}`))
		require.NoError(t, err)

		// Then: nothing is delivered
		require.Empty(t, got)
	})
}

func TestRedisLayer_Publish(t *testing.T) {
	ctx, s := suite.New(t)

	layer := NewRedisLayer(s.Logger, s.Storage)

	t.Run("delivers published frames to room subscribers", func(t *testing.T) {
		// Given: a confirmed subscription on a room channel
		frames := make(chan []byte, 4)
		cancel, err := layer.Subscribe(ctx, "ABC123", func(frame []byte) { frames <- frame })
		require.NoError(t, err)
		defer cancel()

		// When: publishing a frame to the room
		err = layer.Publish(ctx, "ABC123", []byte(`{"type":"player_joined"}`))
		require.NoError(t, err)

		// Then: the subscriber receives it
		select {
		case frame := <-frames:
			require.Equal(t, `{"type":"player_joined"}`, string(frame))
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for frame from redis layer")
		}
	})

	t.Run("cancelled subscription receives nothing", func(t *testing.T) {
		// Given: a subscription that has been cancelled
		frames := make(chan []byte, 4)
		cancel, err := layer.Subscribe(ctx, "DEF456", func(frame []byte) { frames <- frame })
		require.NoError(t, err)
		cancel()

		// When: publishing to the room afterwards
		err = layer.Publish(ctx, "DEF456", []byte(`{"type":"player_joined"}`))
		require.NoError(t, err)

		// Then: no frame arrives
		select {
		case <-frames:
			t.Fatal("received frame on cancelled subscription")
		case <-time.After(500 * time.Millisecond):
		}
	})
}
