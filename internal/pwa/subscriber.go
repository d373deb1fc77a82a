package pwa

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// WorkerScriptURL 是后台 worker 脚本的固定路径。
const WorkerScriptURL = "/entry.worker.js"

// SubscriberState 描述订阅流程的进度。
type SubscriberState int

const (
	Unregistered SubscriberState = iota
	Registered
	Subscribed
	// Failed 表示 worker 已就绪但订阅链路出错，页面功能不受影响。
	Failed
)

func (s SubscriberState) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Registered:
		return "registered"
	case Subscribed:
		return "subscribed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("SubscriberState(%d)", int(s))
	}
}

var errNoSubscription = errors.New("push manager returned no subscription")

// Subscriber 在页面 load 时注册 worker、同步资源清单并建立推送订阅。
// 推送是尽力而为的功能，所有错误都被记录后吞掉。
type Subscriber struct {
	container WorkerContainer
	endpoint  KeyEndpoint
	manifest  AssetManifest
	logger    *zap.Logger
	scriptURL string

	once         sync.Once
	mu           sync.Mutex
	state        SubscriberState
	err          error
	subscription *Subscription
	manifestSync *Delivery
}

// NewSubscriber 构造 Subscriber，logger 为空时不输出日志。
func NewSubscriber(container WorkerContainer, endpoint KeyEndpoint, manifest AssetManifest, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		container: container,
		endpoint:  endpoint,
		manifest:  manifest,
		logger:    logger,
		scriptURL: WorkerScriptURL,
	}
}

// OnLoad 处理页面 load 事件，只执行一次，返回流程结束时的状态。
func (s *Subscriber) OnLoad(ctx context.Context) SubscriberState {
	s.once.Do(func() {
		s.run(ctx)
	})
	return s.State()
}

func (s *Subscriber) run(ctx context.Context) {
	if s.container == nil {
		return
	}

	if err := s.container.Register(ctx, s.scriptURL); err != nil {
		s.logger.Error("Service worker registration failed", zap.String("script", s.scriptURL), zap.Error(err))
		s.fail(Unregistered, err)
		return
	}

	registration, err := s.container.Ready(ctx)
	if err != nil {
		s.logger.Error("Service worker never became ready", zap.Error(err))
		s.fail(Unregistered, err)
		return
	}
	s.setState(Registered)

	delivery := Deliver(s.container, NewManifestSyncMessage(s.manifest))
	s.mu.Lock()
	s.manifestSync = delivery
	s.mu.Unlock()

	subscription, err := s.subscribe(ctx, registration)
	if err != nil {
		s.logger.Warn("push subscription setup failed", zap.Error(err))
		s.fail(Failed, err)
		return
	}

	s.mu.Lock()
	s.subscription = subscription
	s.state = Subscribed
	s.mu.Unlock()
	s.logger.Debug("push subscription reported", zap.String("endpoint", subscription.Endpoint))
}

// subscribe 复用已有订阅，否则取公钥新建，最后把订阅上报给服务端。
func (s *Subscriber) subscribe(ctx context.Context, registration Registration) (*Subscription, error) {
	manager := registration.PushManager()

	subscription, err := manager.GetSubscription(ctx)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	if subscription == nil {
		rawKey, err := s.endpoint.FetchKey(ctx)
		if err != nil {
			return nil, err
		}
		key, err := DecodeBase64URL(rawKey)
		if err != nil {
			return nil, fmt.Errorf("decode application server key: %w", err)
		}
		subscription, err = manager.Subscribe(ctx, SubscribeOptions{
			UserVisibleOnly:      true,
			ApplicationServerKey: key,
		})
		if err != nil {
			return nil, fmt.Errorf("subscribe: %w", err)
		}
		if subscription == nil {
			return nil, errNoSubscription
		}
	}

	if err := s.endpoint.PostSubscription(ctx, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

func (s *Subscriber) setState(state SubscriberState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Subscriber) fail(state SubscriberState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.err = err
}

// State 返回当前状态。
func (s *Subscriber) State() SubscriberState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err 返回导致流程停止的错误。
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscription 返回最终上报的订阅。
func (s *Subscriber) Subscription() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscription
}

// ManifestSync 返回资源清单同步的投递句柄，worker 未就绪时为 nil。
func (s *Subscriber) ManifestSync() *Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifestSync
}

// Close 取消仍在等待 controller 的清单同步。
func (s *Subscriber) Close() {
	if delivery := s.ManifestSync(); delivery != nil {
		delivery.Cancel()
	}
}
