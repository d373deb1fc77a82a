package pwa

const (
	// MessageSyncManifest 通知 worker 同步当前构建的资源清单。
	MessageSyncManifest = "SYNC_REMIX_MANIFEST"
	// MessageNavigation 通知 worker 发生了一次客户端导航。
	MessageNavigation = "REMIX_NAVIGATION"
	// PostSubscriptionType 是上报订阅时的 type 字段取值。
	PostSubscriptionType = "POST_SUBSCRIPTION"
)

// AssetManifest 是本次构建需要缓存的资源列表。
type AssetManifest struct {
	Version string   `json:"version"`
	Assets  []string `json:"assets"`
}

// Location 描述导航后的地址。
type Location struct {
	Pathname string      `json:"pathname"`
	Search   string      `json:"search"`
	Hash     string      `json:"hash"`
	State    interface{} `json:"state"`
	Key      string      `json:"key"`
}

// RouteMatch 是当前命中的一条路由。
type RouteMatch struct {
	ID       string            `json:"id"`
	Pathname string            `json:"pathname"`
	Params   map[string]string `json:"params"`
}

// ManifestSyncMessage 对应 {type: "SYNC_REMIX_MANIFEST", manifest}。
type ManifestSyncMessage struct {
	Type     string        `json:"type"`
	Manifest AssetManifest `json:"manifest"`
}

// NavigationMessage 对应 {type: "REMIX_NAVIGATION", isMount, location, matches, manifest}。
type NavigationMessage struct {
	Type     string        `json:"type"`
	IsMount  bool          `json:"isMount"`
	Location Location      `json:"location"`
	Matches  []RouteMatch  `json:"matches"`
	Manifest AssetManifest `json:"manifest"`
}

// NewManifestSyncMessage 构造资源同步消息。
func NewManifestSyncMessage(manifest AssetManifest) ManifestSyncMessage {
	return ManifestSyncMessage{Type: MessageSyncManifest, Manifest: manifest}
}

// NewNavigationMessage 构造导航消息，matches 为空时序列化为 []。
func NewNavigationMessage(isMount bool, location Location, matches []RouteMatch, manifest AssetManifest) NavigationMessage {
	if matches == nil {
		matches = []RouteMatch{}
	}
	return NavigationMessage{
		Type:     MessageNavigation,
		IsMount:  isMount,
		Location: location,
		Matches:  matches,
		Manifest: manifest,
	}
}

// SubscriptionKeys 是浏览器生成的加密参数，均为 URL-safe base64。
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription 与 PushSubscription.toJSON() 的结构一致。
type Subscription struct {
	Endpoint       string           `json:"endpoint"`
	ExpirationTime *int64           `json:"expirationTime"`
	Keys           SubscriptionKeys `json:"keys"`
}

// SubscriptionEnvelope 是 POST /resources/subscribe 的请求体。
type SubscriptionEnvelope struct {
	Subscription *Subscription `json:"subscription"`
	Type         string        `json:"type"`
}
