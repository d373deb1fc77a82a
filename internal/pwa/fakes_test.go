package pwa

import (
	"context"
	"sync"
)

type fakeWorker struct {
	mu       sync.Mutex
	messages []interface{}
	err      error
}

func (w *fakeWorker) PostMessage(message interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, message)
	return w.err
}

func (w *fakeWorker) Messages() []interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]interface{}(nil), w.messages...)
}

type fakeContainer struct {
	mu          sync.Mutex
	controller  Worker
	listeners   map[int]func()
	nextID      int
	registerErr error
	readyErr    error
	registered  []string
	pushManager *fakePushManager
}

func newFakeContainer() *fakeContainer {
	return &fakeContainer{listeners: map[int]func(){}, pushManager: &fakePushManager{}}
}

func (c *fakeContainer) Register(_ context.Context, scriptURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered = append(c.registered, scriptURL)
	return c.registerErr
}

func (c *fakeContainer) Ready(context.Context) (Registration, error) {
	if c.readyErr != nil {
		return nil, c.readyErr
	}
	return fakeRegistration{manager: c.pushManager}, nil
}

func (c *fakeContainer) Controller() Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *fakeContainer) OnControllerChange(listener func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *fakeContainer) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

// setController 模拟 worker 接管页面并派发 controllerchange。
func (c *fakeContainer) setController(worker Worker) {
	c.mu.Lock()
	c.controller = worker
	listeners := make([]func(), 0, len(c.listeners))
	for _, listener := range c.listeners {
		listeners = append(listeners, listener)
	}
	c.mu.Unlock()

	for _, listener := range listeners {
		listener()
	}
}

type fakeRegistration struct {
	manager *fakePushManager
}

func (r fakeRegistration) PushManager() PushManager {
	return r.manager
}

type fakePushManager struct {
	mu             sync.Mutex
	existing       *Subscription
	getErr         error
	subscribeErr   error
	subscribeCalls []SubscribeOptions
	issued         *Subscription
}

func (m *fakePushManager) GetSubscription(context.Context) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing, m.getErr
}

func (m *fakePushManager) Subscribe(_ context.Context, options SubscribeOptions) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeCalls = append(m.subscribeCalls, options)
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	return m.issued, nil
}

type fakeEndpoint struct {
	key      string
	fetchErr error
	postErr  error
	calls    []string
	posted   []*Subscription
}

func (e *fakeEndpoint) FetchKey(context.Context) (string, error) {
	e.calls = append(e.calls, "GET")
	return e.key, e.fetchErr
}

func (e *fakeEndpoint) PostSubscription(_ context.Context, subscription *Subscription) error {
	e.calls = append(e.calls, "POST")
	e.posted = append(e.posted, subscription)
	return e.postErr
}
