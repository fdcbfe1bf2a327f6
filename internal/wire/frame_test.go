package wire_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/wire"
)

type payload struct {
	Text string
	Tags []string
}

func roundTrip(t *testing.T, cfg wire.Config, size int) payload {
	t.Helper()
	codec := wire.NewCodec(cfg)
	msg := payload{Text: strings.Repeat("a", size), Tags: []string{"x", "y"}}

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, wire.KindOut, msg))

	var got payload
	k, err := codec.Decode(&buf, &got)
	require.NoError(t, err)
	require.Equal(t, wire.KindOut, k)
	return got
}

func TestFramingRoundTripAcrossSplitBoundary(t *testing.T) {
	cfg := wire.Config{SplitThreshold: 256, CompressionThreshold: 1 << 20}
	for _, size := range []int{1, 200, 255, 256, 257, 2560} {
		got := roundTrip(t, cfg, size)
		require.Equal(t, strings.Repeat("a", size), got.Text)
	}
}

func TestCompressionAppliesAboveThresholdOnly(t *testing.T) {
	cfg := wire.Config{SplitThreshold: 1 << 20, CompressionThreshold: 128}
	codec := wire.NewCodec(cfg)

	var small, large bytes.Buffer
	require.NoError(t, codec.Encode(&small, wire.KindOut, payload{Text: "short"}))
	require.NoError(t, codec.Encode(&large, wire.KindOut, payload{Text: strings.Repeat("b", 4096)}))

	smallFlags := small.Bytes()[1]
	largeFlags := large.Bytes()[1]
	require.Equal(t, byte(0), smallFlags&1, "small payload must not be compressed")
	require.Equal(t, byte(1), largeFlags&1, "large payload must be compressed")

	var got payload
	_, err := codec.Decode(&large, &got)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("b", 4096), got.Text)
}

func TestCompressedFramesAreNeverSplit(t *testing.T) {
	cfg := wire.Config{SplitThreshold: 64, CompressionThreshold: 64}
	codec := wire.NewCodec(cfg)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, wire.KindOut, payload{Text: strings.Repeat("c", 8192)}))

	flags := buf.Bytes()[1]
	require.Equal(t, byte(0), flags&2, "compressed frame must not carry the multi flag")
}

func TestDecodeMultipleSequentialMessages(t *testing.T) {
	cfg := wire.DefaultConfig()
	codec := wire.NewCodec(cfg)
	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, wire.KindCommand, payload{Text: "first"}))
	require.NoError(t, codec.Encode(&buf, wire.KindHello, payload{Text: "second"}))

	var first, second payload
	k1, err := codec.Decode(&buf, &first)
	require.NoError(t, err)
	require.Equal(t, wire.KindCommand, k1)
	require.Equal(t, "first", first.Text)

	k2, err := codec.Decode(&buf, &second)
	require.NoError(t, err)
	require.Equal(t, wire.KindHello, k2)
	require.Equal(t, "second", second.Text)
}
