package pwa

import "sync"

// Session 跟踪一次页面生命周期内是否已发生过首次导航。
type Session struct {
	mu      sync.Mutex
	mounted bool
}

// NewSession 返回尚未经历任何导航的会话。
func NewSession() *Session {
	return &Session{}
}

// TakeMount 第一次调用返回 true，之后永远返回 false。
func (s *Session) TakeMount() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		return false
	}
	s.mounted = true
	return true
}

// Navigator 在每次提交的客户端导航后通知 worker。
type Navigator struct {
	container WorkerContainer
	session   *Session
	manifest  AssetManifest
}

// NewNavigator 构造 Navigator。container 为 nil 表示运行环境不支持 worker。
func NewNavigator(container WorkerContainer, session *Session, manifest AssetManifest) *Navigator {
	if session == nil {
		session = NewSession()
	}
	return &Navigator{container: container, session: session, manifest: manifest}
}

// Notify 发送一条 REMIX_NAVIGATION 消息。无论是否支持 worker，首次导航标记都会被消费。
// 返回的 teardown 会移除尚未触发的 controllerchange 监听，应在下一次导航前调用。
func (n *Navigator) Notify(location Location, matches []RouteMatch) (teardown func()) {
	isMount := n.session.TakeMount()
	if n.container == nil {
		return func() {}
	}

	message := NewNavigationMessage(isMount, location, matches, n.manifest)
	delivery := Deliver(n.container, message)
	return delivery.Cancel
}
