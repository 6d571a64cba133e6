package fedex_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/fedex"
	"github.com/tournevent/shipgate/pkg/shipper/transport"
	"github.com/tournevent/shipgate/pkg/xmlnode"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, cfg fedex.Config, poster transport.Poster) *fedex.Client {
	t.Helper()
	c, err := fedex.NewWithPoster(cfg, poster, otelzap.New(zap.NewNop()), nil)
	require.NoError(t, err)
	return c
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := fedex.New(fedex.Config{Key: "key-1", Account: "510087000"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, shipper.ErrConfiguration)

	var cfgErr *shipper.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "fedex", cfgErr.Carrier)
	assert.Equal(t, []string{"Password", "MeterNumber"}, cfgErr.Missing)
}

func TestNew_UseMock(t *testing.T) {
	cfg := testConfig
	cfg.UseMock = true
	c, err := fedex.New(cfg, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	rates, err := c.FindRates(ctx, newShipment(t, nil), shipper.Options{})
	require.NoError(t, err)
	require.True(t, rates.Success)
	assert.Len(t, rates.Rates, 3)

	label, err := c.CreateLabel(ctx, newShipment(t, nil), shipper.Options{})
	require.NoError(t, err)
	require.True(t, label.Success)
	assert.Equal(t, []byte("mock label"), label.Label.Data)
	assert.True(t, strings.HasPrefix(label.Label.TrackingNumber, "7"))
	assert.Len(t, label.Label.TrackingNumber, 12)

	track, err := c.Track(ctx, "123456789012", shipper.Options{})
	require.NoError(t, err)
	require.True(t, track.Success)
	require.Len(t, track.Tracking.Events, 2)
	assert.Equal(t, "Picked up", track.Tracking.Events[0].Description)

	closed, err := c.CloseManifest(ctx, shipper.Options{})
	require.NoError(t, err)
	require.True(t, closed.Success)
	assert.Equal(t, "1", closed.Ack.Reference)
	assert.Equal(t, []byte("mock manifest"), closed.Ack.Document)
}

func TestClient_Operations(t *testing.T) {
	c := newTestClient(t, testConfig, transport.NewMockPoster())

	assert.Equal(t, "fedex", c.Name())
	for _, op := range []shipper.Operation{
		shipper.OpRate, shipper.OpLabel, shipper.OpTrack, shipper.OpValidateAddress,
		shipper.OpUploadImage, shipper.OpCloseManifest,
	} {
		assert.True(t, shipper.Supports(c, op), string(op))
	}
	assert.False(t, shipper.Supports(c, shipper.OpRefund))
	assert.False(t, shipper.Supports(c, shipper.OpPickup))
}

func TestClient_Unsupported(t *testing.T) {
	m := transport.NewMockPoster()
	c := newTestClient(t, testConfig, m)

	_, err := c.Refund(context.Background(), []string{"794809073910"}, shipper.Options{})
	assert.ErrorIs(t, err, shipper.ErrIncompleteCoverage)
	assert.Zero(t, m.Calls())
}

func TestCreateLabel_Request(t *testing.T) {
	m := fedex.NewMockPoster()
	c := newTestClient(t, testConfig, m)

	resp, err := c.CreateLabel(context.Background(), newShipment(t, nil), shipper.Options{})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Label.Postage)
	assert.Equal(t, int64(1241), resp.Label.Postage.Cents())

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "https://ws.fedex.com:443/xml", reqs[0].URL)
	assert.Equal(t, transport.ContentTypeXML, reqs[0].ContentType)

	root, err := xmlnode.Parse(reqs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, "ProcessShipmentRequest", root.Tag)
}

func TestClient_TestEndpoint(t *testing.T) {
	m := fedex.NewMockPoster()
	c := newTestClient(t, testConfig, m)

	_, err := c.Track(context.Background(), "1", shipper.Options{Test: true})
	require.NoError(t, err)

	cfg := testConfig
	cfg.Test = true
	c = newTestClient(t, cfg, m)
	_, err = c.Track(context.Background(), "1", shipper.Options{})
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, "https://wsbeta.fedex.com:443/xml", req.URL)
	}
}

func TestCreateLabel_Rejected(t *testing.T) {
	m := transport.NewMockPoster([]byte(`<ProcessShipmentReply><Notifications><Severity>ERROR</Severity><Code>2434</Code><Message>Invalid service type</Message></Notifications></ProcessShipmentReply>`))
	c := newTestClient(t, testConfig, m)
	s := newShipment(t, nil)

	resp, err := c.CreateLabel(context.Background(), s, shipper.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, shipper.KindCarrierError, resp.Kind)

	recorded := s.Record(resp)
	assert.Equal(t, "ERROR - 2434: Invalid service type", recorded.ErrorMessage())
	assert.Empty(t, recorded.Tracking())
}

func TestCreateLabel_TransportFailure(t *testing.T) {
	m := transport.NewMockPoster()
	m.SimulateErrors = true
	c := newTestClient(t, testConfig, m)

	resp, err := c.CreateLabel(context.Background(), newShipment(t, nil), shipper.Options{})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, shipper.ErrTransport)
	assert.ErrorIs(t, err, shipper.ErrServiceUnavailable)
	assert.Equal(t, 1, m.Calls())
}

func TestTrack_RequiredOptions(t *testing.T) {
	m := transport.NewMockPoster()
	c := newTestClient(t, testConfig, m)
	ctx := context.Background()

	_, err := c.Track(ctx, "", shipper.Options{})
	var optErr *shipper.RequiredOptionError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "tracking_number", optErr.Option)
	assert.ErrorIs(t, err, shipper.ErrRequiredOption)

	_, err = c.Track(ctx, "123", shipper.Options{PackageIdentifierType: "pallet"})
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "package_identifier_type", optErr.Option)
	assert.Equal(t, "oneof", optErr.Rule)

	assert.Zero(t, m.Calls())
}

func TestUploadImage(t *testing.T) {
	m := fedex.NewMockPoster()
	c := newTestClient(t, testConfig, m)

	_, err := c.UploadImage(context.Background(), "", []byte("png"), shipper.Options{})
	assert.ErrorIs(t, err, shipper.ErrRequiredOption)
	assert.Zero(t, m.Calls())

	resp, err := c.UploadImage(context.Background(), "IMAGE_1", []byte("png"), shipper.Options{})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, "IMAGE_1", resp.Ack.Reference)
}

func TestValidateAddress(t *testing.T) {
	c := newTestClient(t, testConfig, fedex.NewMockPoster())

	resp, err := c.ValidateAddress(context.Background(), newShipment(t, nil).Destination(), shipper.Options{})
	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.Equal(t, shipper.AddressCommercial, resp.Address.AddressType)
}

func TestCloseManifest_StopsWhenSmartPostCloseFails(t *testing.T) {
	m := transport.NewMockPoster([]byte(`<SmartPostCloseReply><Notifications><Severity>ERROR</Severity><Code>3</Code><Message>Hub closed</Message></Notifications></SmartPostCloseReply>`))
	c := newTestClient(t, testConfig, m)

	resp, err := c.CloseManifest(context.Background(), shipper.Options{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, 1, m.Calls(), "ground close is skipped")
}

func TestClient_MalformedResponse(t *testing.T) {
	m := transport.NewMockPoster([]byte("<html>Bad Gateway</html>"))
	c := newTestClient(t, testConfig, m)

	resp, err := c.ValidateAddress(context.Background(), shipper.Location{CountryCode: "US"}, shipper.Options{})
	assert.Nil(t, resp)
	var malformed *shipper.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, shipper.OpValidateAddress, malformed.Operation)
}
