package grpcwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated for compressibility, repeated for compressibility")
	for _, c := range []*Compression{identityCompression(), gzipCompression(), deflateCompression(), snappyCompression()} {
		compressed, err := c.Compress(payload)
		require.NoError(t, err, c.ID)
		decompressed, err := c.Decompress(compressed)
		require.NoError(t, err, c.ID)
		assert.Equal(t, payload, decompressed, c.ID)
	}
}

func TestDefaultRegistryHasAllAlgorithms(t *testing.T) {
	r := DefaultRegistry()
	for _, id := range []CompressionID{CompressionIdentity, CompressionGzip, CompressionDeflate, CompressionSnappy} {
		_, ok := r.Lookup(id)
		assert.True(t, ok, id)
	}
}

func TestNoCompressionAlwaysChoosesIdentity(t *testing.T) {
	n := NoCompression()
	compression, err := n.Choose([]CompressionID{CompressionGzip, CompressionSnappy})
	require.NoError(t, err)
	assert.Equal(t, CompressionIdentity, compression.ID)
	assert.Equal(t, "identity", n.AcceptEncodingHeader())
}

func TestRequireCompressionFailsWithoutPeerSupport(t *testing.T) {
	n, err := RequireCompression(DefaultRegistry(), CompressionGzip)
	require.NoError(t, err)

	_, err = n.Choose([]CompressionID{CompressionSnappy, CompressionIdentity})
	var negErr *CompressionNegotiationFailedError
	require.ErrorAs(t, err, &negErr)
	assert.Equal(t, []CompressionID{CompressionSnappy, CompressionIdentity}, negErr.PeerOffer)
}

func TestRequireCompressionSucceedsWhenOffered(t *testing.T) {
	n, err := RequireCompression(DefaultRegistry(), CompressionGzip)
	require.NoError(t, err)

	compression, err := n.Choose([]CompressionID{CompressionGzip})
	require.NoError(t, err)
	assert.Equal(t, CompressionGzip, compression.ID)
}

func TestPreferOrderPicksFirstSupportedByPeer(t *testing.T) {
	n, err := PreferOrder(DefaultRegistry(), CompressionGzip, CompressionSnappy, CompressionIdentity)
	require.NoError(t, err)

	compression, err := n.Choose([]CompressionID{CompressionSnappy, CompressionIdentity})
	require.NoError(t, err)
	assert.Equal(t, CompressionSnappy, compression.ID)
}

func TestPreferOrderRejectsUnregisteredID(t *testing.T) {
	_, err := PreferOrder(NewRegistry(), CompressionGzip)
	assert.Error(t, err)
}

func TestNegotiationChooseMemoizesFirstResult(t *testing.T) {
	n, err := PreferOrder(DefaultRegistry(), CompressionGzip, CompressionSnappy, CompressionIdentity)
	require.NoError(t, err)

	_, ok := n.Chosen()
	assert.False(t, ok)

	first, err := n.Choose([]CompressionID{CompressionSnappy})
	require.NoError(t, err)
	assert.Equal(t, CompressionSnappy, first.ID)

	// A later call with a different peer offer doesn't change the
	// outcome: the connection already settled on snappy.
	second, err := n.Choose([]CompressionID{CompressionGzip})
	require.NoError(t, err)
	assert.Equal(t, CompressionSnappy, second.ID)

	chosen, ok := n.Chosen()
	require.True(t, ok)
	assert.Equal(t, CompressionSnappy, chosen.ID)
}

func TestParseAcceptEncoding(t *testing.T) {
	ids := parseAcceptEncoding("gzip, snappy,identity")
	assert.Equal(t, []CompressionID{CompressionGzip, CompressionSnappy, CompressionIdentity}, ids)
	assert.Nil(t, parseAcceptEncoding(""))
}
