package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsMessages(t *testing.T) {
	pub := New()

	id1, err := pub.Publish(context.Background(), "grades", map[string]string{"url": "acme.dev"})
	require.NoError(t, err)
	id2, err := pub.Publish(context.Background(), "grades", map[string]string{"url": "other.dev"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "grades", msgs[0].Topic)
	assert.Equal(t, map[string]string{"url": "acme.dev"}, msgs[0].Payload)
}
