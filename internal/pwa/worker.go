package pwa

import "context"

// Worker 是当前控制页面的后台 worker。
type Worker interface {
	PostMessage(message interface{}) error
}

// WorkerContainer 对应 navigator.serviceWorker。
type WorkerContainer interface {
	Register(ctx context.Context, scriptURL string) error
	Ready(ctx context.Context) (Registration, error)
	// Controller 在页面尚未被 worker 控制时返回 nil。
	Controller() Worker
	// OnControllerChange 注册 controllerchange 监听，返回的函数用于移除监听。
	OnControllerChange(listener func()) (remove func())
}

// Registration 对应 ServiceWorkerRegistration。
type Registration interface {
	PushManager() PushManager
}

// SubscribeOptions 对应 pushManager.subscribe 的参数。
type SubscribeOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

// PushManager 对应 registration.pushManager。
type PushManager interface {
	// GetSubscription 在没有订阅时返回 (nil, nil)。
	GetSubscription(ctx context.Context) (*Subscription, error)
	Subscribe(ctx context.Context, options SubscribeOptions) (*Subscription, error)
}
