package pwa

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var existingSubscription = &Subscription{
	Endpoint: "https://push.example.com/existing",
	Keys:     SubscriptionKeys{P256dh: "p256", Auth: "auth"},
}

func TestSubscriberReusesExistingSubscription(t *testing.T) {
	container := newFakeContainer()
	container.controller = &fakeWorker{}
	container.pushManager.existing = existingSubscription
	endpoint := &fakeEndpoint{key: "unused"}

	subscriber := NewSubscriber(container, endpoint, testManifest, nil)
	state := subscriber.OnLoad(context.Background())

	assert.Equal(t, Subscribed, state)
	assert.Empty(t, container.pushManager.subscribeCalls, "subscribe must not be called when a subscription exists")
	assert.Equal(t, []string{"POST"}, endpoint.calls)
	assert.Same(t, existingSubscription, endpoint.posted[0])
	assert.Equal(t, []string{WorkerScriptURL}, container.registered)
}

func TestSubscriberCreatesSubscriptionWithServerKey(t *testing.T) {
	rawKey := []byte{0x04, 0xfb, 0xff, 0xbf, 0x10, 0x20}
	issued := &Subscription{Endpoint: "https://push.example.com/new"}

	container := newFakeContainer()
	container.controller = &fakeWorker{}
	container.pushManager.issued = issued
	endpoint := &fakeEndpoint{key: base64.RawURLEncoding.EncodeToString(rawKey)}

	subscriber := NewSubscriber(container, endpoint, testManifest, nil)
	state := subscriber.OnLoad(context.Background())

	require.Equal(t, Subscribed, state)
	assert.Equal(t, []string{"GET", "POST"}, endpoint.calls)
	require.Len(t, container.pushManager.subscribeCalls, 1)
	options := container.pushManager.subscribeCalls[0]
	assert.True(t, options.UserVisibleOnly)
	assert.Equal(t, rawKey, options.ApplicationServerKey)
	assert.Same(t, issued, endpoint.posted[0])
	assert.Same(t, issued, subscriber.Subscription())
}

func TestSubscriberSyncsManifestToController(t *testing.T) {
	container := newFakeContainer()
	worker := &fakeWorker{}
	container.controller = worker
	container.pushManager.existing = existingSubscription

	subscriber := NewSubscriber(container, &fakeEndpoint{}, testManifest, nil)
	subscriber.OnLoad(context.Background())

	messages := worker.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, NewManifestSyncMessage(testManifest), messages[0])
	assert.Equal(t, Delivered, subscriber.ManifestSync().State())
}

func TestSubscriberDefersManifestSyncUntilControllerChange(t *testing.T) {
	container := newFakeContainer()
	container.pushManager.existing = existingSubscription

	subscriber := NewSubscriber(container, &fakeEndpoint{}, testManifest, nil)
	subscriber.OnLoad(context.Background())
	require.Equal(t, AwaitingController, subscriber.ManifestSync().State())

	worker := &fakeWorker{}
	container.setController(worker)
	container.setController(worker)

	assert.Len(t, worker.Messages(), 1)
	assert.Zero(t, container.ListenerCount())
}

func TestSubscriberRegistrationFailureIsNonFatal(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	container := newFakeContainer()
	container.registerErr = errors.New("insecure context")
	endpoint := &fakeEndpoint{}

	subscriber := NewSubscriber(container, endpoint, testManifest, zap.New(core))
	state := subscriber.OnLoad(context.Background())

	assert.Equal(t, Unregistered, state)
	assert.ErrorContains(t, subscriber.Err(), "insecure context")
	assert.Empty(t, endpoint.calls)
	assert.Nil(t, subscriber.ManifestSync())
	assert.Equal(t, 1, logs.FilterMessage("Service worker registration failed").Len())
}

func TestSubscriberChainFailuresDegrade(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*fakeContainer, *fakeEndpoint)
		wantErr  string
		wantGets int
	}{
		{
			name:    "get subscription",
			setup:   func(c *fakeContainer, _ *fakeEndpoint) { c.pushManager.getErr = errors.New("denied") },
			wantErr: "denied",
		},
		{
			name:     "fetch key",
			setup:    func(_ *fakeContainer, e *fakeEndpoint) { e.fetchErr = errors.New("offline") },
			wantErr:  "offline",
			wantGets: 1,
		},
		{
			name:     "bad key",
			setup:    func(_ *fakeContainer, e *fakeEndpoint) { e.key = "!!!" },
			wantErr:  "decode application server key",
			wantGets: 1,
		},
		{
			name: "subscribe",
			setup: func(c *fakeContainer, e *fakeEndpoint) {
				e.key = "BAA"
				c.pushManager.subscribeErr = errors.New("permission denied")
			},
			wantErr:  "permission denied",
			wantGets: 1,
		},
		{
			name: "post",
			setup: func(c *fakeContainer, e *fakeEndpoint) {
				c.pushManager.existing = existingSubscription
				e.postErr = errors.New("status 500")
			},
			wantErr: "status 500",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			container := newFakeContainer()
			container.controller = &fakeWorker{}
			endpoint := &fakeEndpoint{}
			tc.setup(container, endpoint)

			subscriber := NewSubscriber(container, endpoint, testManifest, nil)
			state := subscriber.OnLoad(context.Background())

			assert.Equal(t, Failed, state)
			assert.ErrorContains(t, subscriber.Err(), tc.wantErr)
			gets := 0
			for _, call := range endpoint.calls {
				if call == "GET" {
					gets++
				}
			}
			assert.Equal(t, tc.wantGets, gets)
		})
	}
}

func TestSubscriberOnLoadRunsOnce(t *testing.T) {
	container := newFakeContainer()
	container.controller = &fakeWorker{}
	container.pushManager.existing = existingSubscription
	endpoint := &fakeEndpoint{}

	subscriber := NewSubscriber(container, endpoint, testManifest, nil)
	subscriber.OnLoad(context.Background())
	subscriber.OnLoad(context.Background())

	assert.Len(t, container.registered, 1)
	assert.Len(t, endpoint.posted, 1)
}

func TestSubscriberCloseCancelsPendingSync(t *testing.T) {
	container := newFakeContainer()
	container.pushManager.existing = existingSubscription

	subscriber := NewSubscriber(container, &fakeEndpoint{}, testManifest, nil)
	subscriber.OnLoad(context.Background())
	subscriber.Close()

	assert.Equal(t, Cancelled, subscriber.ManifestSync().State())
	assert.Zero(t, container.ListenerCount())
}
