package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleettrack/core/fleet"
	"github.com/kilianp07/fleettrack/core/ingest"
	"github.com/kilianp07/fleettrack/core/ledger"
	"github.com/kilianp07/fleettrack/infra/logger"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestOnMessageFeedsCoordinator(t *testing.T) {
	dir := fleet.NewMemoryDirectory()
	cart := fleet.NewCart("CART-09", "ezgo")
	require.NoError(t, dir.Create(context.Background(), cart))
	require.NoError(t, dir.SetBattery(context.Background(), cart.ID, 55))
	coord := ingest.NewCoordinator(dir, ledger.NewMemoryStore(dir), nil, nil, logger.NopLogger{})

	ing := &Ingestor{cfg: Config{Topic: "fleet/location/+"}, coord: coord, log: logger.NopLogger{}}
	ing.onMessage(nil, fakeMessage{
		topic:   "fleet/location/CART-09",
		payload: []byte(`{"latitude": 4.5, "longitude": -3.25}`),
	})

	got, err := dir.Get(context.Background(), cart.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Position)
	assert.Equal(t, 4.5, got.Position.Latitude)
	assert.Equal(t, float64(55), got.Battery, "device report without battery inherits last-known value")
}

func TestOnMessageBadPayloadIgnored(t *testing.T) {
	dir := fleet.NewMemoryDirectory()
	cart := fleet.NewCart("CART-09", "ezgo")
	require.NoError(t, dir.Create(context.Background(), cart))
	coord := ingest.NewCoordinator(dir, ledger.NewMemoryStore(dir), nil, nil, logger.NopLogger{})

	ing := &Ingestor{cfg: Config{Topic: "fleet/location/+"}, coord: coord, log: logger.NopLogger{}}
	ing.onMessage(nil, fakeMessage{topic: "fleet/location/CART-09", payload: []byte(`{`)})
	// Missing coordinates are rejected by the coordinator, not applied.
	ing.onMessage(nil, fakeMessage{topic: "fleet/location/CART-09", payload: []byte(`{"battery": 70}`)})

	got, err := dir.Get(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Position)
	assert.Equal(t, float64(100), got.Battery)
}

func TestClientOptionsTLSRequiresFiles(t *testing.T) {
	_, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", UseTLS: true})
	assert.Error(t, err)
}
