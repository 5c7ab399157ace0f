package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"pricing-sync-service/internal/models"
	"pricing-sync-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExternalBooking is a reservation as reported by a channel's API, before
// it is mapped into a local Booking.
type ExternalBooking struct {
	Reference string          `json:"reference"`
	RoomID    int64           `json:"room_id"`
	CheckIn   time.Time       `json:"check_in"`
	CheckOut  time.Time       `json:"check_out"`
	Amount    decimal.Decimal `json:"amount"`
}

// ChannelAdapter is the per-channel integration surface. The concrete wire
// protocol is channel-specific; the engine only needs these two operations.
type ChannelAdapter interface {
	PushAvailability(ctx context.Context, conn models.ChannelConnection, records []models.InventoryRecord) error
	PullNewBookings(ctx context.Context, conn models.ChannelConnection, since time.Time) ([]ExternalBooking, error)
}

// AdapterRegistry resolves an adapter by channel type
type AdapterRegistry struct {
	adapters map[string]ChannelAdapter
}

// NewAdapterRegistry creates an empty adapter registry
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]ChannelAdapter)}
}

// Register binds an adapter to a channel type
func (r *AdapterRegistry) Register(channelType string, adapter ChannelAdapter) {
	r.adapters[channelType] = adapter
}

// ForChannel returns the adapter for a channel type
func (r *AdapterRegistry) ForChannel(channelType string) (ChannelAdapter, error) {
	adapter, ok := r.adapters[channelType]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for channel type %s", channelType)
	}
	return adapter, nil
}

// TokenCache holds a channel API credential with its expiry and refreshes
// it on demand. It is owned by the adapter instance and injected at
// construction; nothing here lives in package-level state.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	fetch     func(ctx context.Context) (string, time.Time, error)
}

// NewTokenCache creates a token cache around a fetch function
func NewTokenCache(fetch func(ctx context.Context) (string, time.Time, error)) *TokenCache {
	return &TokenCache{fetch: fetch}
}

// Token returns the cached credential, refreshing it when expired. A small
// safety margin avoids handing out a token that dies mid-request.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.token != "" && time.Now().Add(30*time.Second).Before(tc.expiresAt) {
		return tc.token, nil
	}

	token, expiresAt, err := tc.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh channel token: %w", err)
	}

	tc.token = token
	tc.expiresAt = expiresAt
	return token, nil
}

// RESTAdapter speaks a generic JSON-over-HTTP dialect shared by the
// channels we integrate today: OAuth client-credentials token endpoint,
// an inventory PUT per property, and a reservations GET with a since
// parameter.
type RESTAdapter struct {
	channelType string
	baseURL     string
	httpClient  *http.Client
	tokens      *TokenCache
	logger      *zap.Logger
}

// NewRESTAdapter creates a REST adapter for one channel
func NewRESTAdapter(channelType, baseURL, clientID, clientSecret string, timeout time.Duration) *RESTAdapter {
	client := &http.Client{Timeout: timeout}

	a := &RESTAdapter{
		channelType: channelType,
		baseURL:     baseURL,
		httpClient:  client,
		logger:      util.GetLogger(),
	}
	a.tokens = NewTokenCache(func(ctx context.Context) (string, time.Time, error) {
		return a.fetchToken(ctx, clientID, clientSecret)
	})
	return a
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (a *RESTAdapter) fetchToken(ctx context.Context, clientID, clientSecret string) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/oauth/token", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, err
	}

	return tr.AccessToken, time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second), nil
}

type pushPayload struct {
	HotelID int64        `json:"hotel_id"`
	Records []pushRecord `json:"records"`
}

type pushRecord struct {
	RoomID   int64  `json:"room_id"`
	StayDate string `json:"stay_date"`
	Price    string `json:"price"`
	Status   string `json:"status"`
}

// PushAvailability uploads the inventory window for the connection's hotel
func (a *RESTAdapter) PushAvailability(ctx context.Context, conn models.ChannelConnection, records []models.InventoryRecord) error {
	start := time.Now()
	defer func() {
		util.ChannelRequestLatency.WithLabelValues(a.channelType, "push").Observe(time.Since(start).Seconds())
	}()

	token, err := a.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload := pushPayload{
		HotelID: conn.HotelID,
		Records: make([]pushRecord, 0, len(records)),
	}
	for _, r := range records {
		payload.Records = append(payload.Records, pushRecord{
			RoomID:   r.RoomID,
			StayDate: r.StayDate.Format("2006-01-02"),
			Price:    r.Price.StringFixed(2),
			Status:   r.Status,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/properties/%d/inventory", a.baseURL, conn.HotelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inventory push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("inventory push returned %d", resp.StatusCode)
	}

	a.logger.Debug("Inventory pushed to channel",
		zap.String("channel", a.channelType),
		zap.Int64("hotel_id", conn.HotelID),
		zap.Int("records", len(records)))
	return nil
}

// PullNewBookings fetches reservations created on the channel since the
// given watermark
func (a *RESTAdapter) PullNewBookings(ctx context.Context, conn models.ChannelConnection, since time.Time) ([]ExternalBooking, error) {
	start := time.Now()
	defer func() {
		util.ChannelRequestLatency.WithLabelValues(a.channelType, "pull").Observe(time.Since(start).Seconds())
	}()

	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/properties/%d/reservations?since=%s",
		a.baseURL, conn.HotelID, url.QueryEscape(since.UTC().Format(time.RFC3339)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("booking pull failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("booking pull returned %d", resp.StatusCode)
	}

	var bookings []ExternalBooking
	if err := json.NewDecoder(resp.Body).Decode(&bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}
