package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/pointlog/internal/db"
	"github.com/pointlog/internal/observability"
	"github.com/pointlog/internal/pwa"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidSubscription 表示上报的订阅缺少 endpoint 或密钥格式不正确
	ErrInvalidSubscription = errors.New("invalid push subscription")
	// ErrVAPIDKeysMissing 表示尚未生成或配置 VAPID 密钥
	ErrVAPIDKeysMissing = errors.New("vapid keys are not configured")
)

const (
	p256dhKeyLength = 65
	authKeyLength   = 16
	defaultPushTTL  = 60 * 60
)

// VAPIDKeys 是 URL-safe base64（无填充）编码的密钥对。
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
}

// Notification 是推送给浏览器的消息体，由 worker 负责展示。
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// BroadcastResult 汇总一次群发的结果。
type BroadcastResult struct {
	Sent    int `json:"sent"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// PushService 负责 VAPID 密钥、订阅存储与推送发送。
type PushService struct {
	db         *gorm.DB
	settings   *SystemSettingService
	logger     *zap.Logger
	subject    string
	httpClient webpush.HTTPClient
	keys       VAPIDKeys
}

// NewPushService 构造 PushService，subject 为 VAPID 联系方式（mailto: 或 https:）。
func NewPushService(gdb *gorm.DB, settings *SystemSettingService, logger *zap.Logger, subject string) *PushService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushService{
		db:         gdb,
		settings:   settings,
		logger:     logger,
		subject:    normalizeSubject(subject),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetHTTPClient 替换推送使用的 HTTP 客户端，主要面向测试场景。
func (s *PushService) SetHTTPClient(client webpush.HTTPClient) {
	if client == nil {
		s.httpClient = &http.Client{Timeout: 15 * time.Second}
		return
	}
	s.httpClient = client
}

// EnsureVAPIDKeys 按 配置 → 数据库 → 新生成 的顺序确定密钥，新生成的密钥会持久化。
func (s *PushService) EnsureVAPIDKeys(configured VAPIDKeys) (VAPIDKeys, error) {
	if configured.PublicKey != "" && configured.PrivateKey != "" {
		s.keys = configured
		return s.keys, nil
	}

	publicKey, hasPublic, err := s.settings.Get(db.SettingKeyVAPIDPublicKey)
	if err != nil {
		return VAPIDKeys{}, err
	}
	privateKey, hasPrivate, err := s.settings.Get(db.SettingKeyVAPIDPrivateKey)
	if err != nil {
		return VAPIDKeys{}, err
	}
	if hasPublic && hasPrivate && publicKey != "" && privateKey != "" {
		s.keys = VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey}
		return s.keys, nil
	}

	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return VAPIDKeys{}, fmt.Errorf("generate vapid keys: %w", err)
	}
	if err := s.settings.SetMany(map[string]string{
		db.SettingKeyVAPIDPublicKey:  publicKey,
		db.SettingKeyVAPIDPrivateKey: privateKey,
	}); err != nil {
		return VAPIDKeys{}, err
	}
	s.logger.Info("generated new VAPID key pair")

	s.keys = VAPIDKeys{PublicKey: publicKey, PrivateKey: privateKey}
	return s.keys, nil
}

// PublicKey 返回供浏览器订阅使用的公钥。
func (s *PushService) PublicKey() (string, error) {
	if s.keys.PublicKey == "" {
		return "", ErrVAPIDKeysMissing
	}
	return s.keys.PublicKey, nil
}

// SaveSubscription 按 endpoint 幂等保存订阅，created 表示是否为新记录。
func (s *PushService) SaveSubscription(subscription *pwa.Subscription, userID *uint) (*db.PushSubscription, bool, error) {
	if err := validateSubscription(subscription); err != nil {
		return nil, false, err
	}
	owner, err := s.resolveOwner(userID)
	if err != nil {
		return nil, false, err
	}

	var existing db.PushSubscription
	err = s.db.Where("endpoint = ?", subscription.Endpoint).First(&existing).Error
	switch {
	case err == nil:
		existing.P256dh = subscription.Keys.P256dh
		existing.Auth = subscription.Keys.Auth
		if owner != nil {
			existing.UserID = owner
		}
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, false, fmt.Errorf("update push subscription: %w", err)
		}
		observability.RecordSubscriptionStored(false)
		return &existing, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		record := db.PushSubscription{
			Key:      uuid.NewString(),
			Endpoint: subscription.Endpoint,
			P256dh:   subscription.Keys.P256dh,
			Auth:     subscription.Keys.Auth,
			UserID:   owner,
		}
		if err := s.db.Create(&record).Error; err != nil {
			return nil, false, fmt.Errorf("create push subscription: %w", err)
		}
		observability.RecordSubscriptionStored(true)
		return &record, true, nil
	default:
		return nil, false, fmt.Errorf("find push subscription: %w", err)
	}
}

// resolveOwner 确认订阅归属的用户仍然存在，用户已被删除时按匿名订阅保存。
func (s *PushService) resolveOwner(userID *uint) (*uint, error) {
	if userID == nil {
		return nil, nil
	}
	var count int64
	if err := s.db.Model(&db.User{}).Where("id = ?", *userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check subscription owner: %w", err)
	}
	if count == 0 {
		s.logger.Info("subscription owner no longer exists, storing anonymously", zap.Uint("user_id", *userID))
		return nil, nil
	}
	return userID, nil
}

// CountSubscriptions 返回已保存的订阅数量。
func (s *PushService) CountSubscriptions() (int64, error) {
	var count int64
	if err := s.db.Model(&db.PushSubscription{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count push subscriptions: %w", err)
	}
	return count, nil
}

// Broadcast 逐个向全部订阅发送通知；推送服务返回 404/410 的订阅会被删除。
func (s *PushService) Broadcast(ctx context.Context, notification Notification) (BroadcastResult, error) {
	var result BroadcastResult
	if s.keys.PublicKey == "" || s.keys.PrivateKey == "" {
		return result, ErrVAPIDKeysMissing
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return result, fmt.Errorf("encode notification: %w", err)
	}

	var subscriptions []db.PushSubscription
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&subscriptions).Error; err != nil {
		return result, fmt.Errorf("list push subscriptions: %w", err)
	}

	topic := strings.ReplaceAll(uuid.NewString(), "-", "")
	for _, record := range subscriptions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		status, err := s.send(ctx, record, payload, topic)
		switch {
		case err != nil:
			result.Failed++
			observability.RecordPushDelivery("failed")
			s.logger.Warn("push delivery failed", zap.Uint("subscription_id", record.ID), zap.Error(err))
		case status == http.StatusNotFound || status == http.StatusGone:
			if delErr := s.db.WithContext(ctx).Unscoped().Delete(&db.PushSubscription{}, record.ID).Error; delErr != nil {
				return result, fmt.Errorf("delete expired subscription: %w", delErr)
			}
			result.Removed++
			observability.RecordPushDelivery("gone")
			s.logger.Info("removed expired push subscription", zap.Uint("subscription_id", record.ID), zap.Int("status", status))
		case status >= 200 && status < 300:
			result.Sent++
			observability.RecordPushDelivery("sent")
		default:
			result.Failed++
			observability.RecordPushDelivery("failed")
			s.logger.Warn("push service rejected notification", zap.Uint("subscription_id", record.ID), zap.Int("status", status))
		}
	}

	return result, nil
}

func (s *PushService) send(ctx context.Context, record db.PushSubscription, payload []byte, topic string) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: record.Endpoint,
		Keys: webpush.Keys{
			P256dh: record.P256dh,
			Auth:   record.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subject,
		Topic:           topic,
		TTL:             defaultPushTTL,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  s.keys.PublicKey,
		VAPIDPrivateKey: s.keys.PrivateKey,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// webpush 会为非 https: 的 subject 自动补上 mailto: 前缀
func normalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	return strings.TrimPrefix(subject, "mailto:")
}

func validateSubscription(subscription *pwa.Subscription) error {
	if subscription == nil {
		return fmt.Errorf("%w: missing subscription", ErrInvalidSubscription)
	}

	endpoint, err := url.Parse(strings.TrimSpace(subscription.Endpoint))
	if err != nil || endpoint.Host == "" || (endpoint.Scheme != "https" && endpoint.Scheme != "http") {
		return fmt.Errorf("%w: endpoint must be an absolute http(s) URL", ErrInvalidSubscription)
	}

	p256dh, err := pwa.DecodeBase64URL(subscription.Keys.P256dh)
	if err != nil || len(p256dh) != p256dhKeyLength {
		return fmt.Errorf("%w: p256dh must be a %d-byte public key", ErrInvalidSubscription, p256dhKeyLength)
	}
	auth, err := pwa.DecodeBase64URL(subscription.Keys.Auth)
	if err != nil || len(auth) != authKeyLength {
		return fmt.Errorf("%w: auth must be a %d-byte secret", ErrInvalidSubscription, authKeyLength)
	}
	return nil
}
