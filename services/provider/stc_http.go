package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"busmitra/models"
	"busmitra/utils"

	"go.uber.org/zap"
)

// placeInfo is the backend's internal identity for a stop.
type placeInfo struct {
	ID   string
	Code string
	Name string
}

// STCHTTPAdapter talks to the state transport corporation's online
// reservation gateway.
type STCHTTPAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewSTCHTTPAdapter builds an adapter against the given gateway base URL.
func NewSTCHTTPAdapter(baseURL string, timeout time.Duration) *STCHTTPAdapter {
	return &STCHTTPAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  utils.GetLogger(),
	}
}

// lookupPlace resolves a free-text place name to the backend's ID and code.
// The gateway answers place lookups as "488:DHA:DHARMAPURI^..."; first match wins.
func (a *STCHTTPAdapter) lookupPlace(ctx context.Context, name string, isOrigin bool) (*placeInfo, error) {
	action := "LoadTOPlaceList"
	matchParam := "matchEndPlace"
	if isOrigin {
		action = "LoadFromPlaceList"
		matchParam = "matchStartPlace"
	}

	form := url.Values{}
	form.Set("hiddenAction", action)
	form.Set(matchParam, name)

	body, err := a.postForm(ctx, form)
	if err != nil {
		return nil, NewTransientError("place_lookup", err)
	}

	raw := strings.TrimSpace(string(body))
	var first string
	for _, item := range strings.Split(raw, "^") {
		if item != "" {
			first = item
			break
		}
	}
	if first == "" {
		return nil, NewBusinessError("place_lookup", fmt.Sprintf("no place match for %q", name))
	}

	parts := strings.Split(first, ":")
	if len(parts) < 3 {
		return nil, NewBusinessError("place_lookup", fmt.Sprintf("invalid place format: %q", first))
	}
	return &placeInfo{ID: parts[0], Code: parts[1], Name: parts[2]}, nil
}

// Search resolves both places, then runs the service search. An empty result
// list is a valid answer, not an error.
func (a *STCHTTPAdapter) Search(ctx context.Context, q SearchQuery) ([]models.TripOption, error) {
	from, err := a.lookupPlace(ctx, q.Origin, true)
	if err != nil {
		return nil, err
	}
	to, err := a.lookupPlace(ctx, q.Destination, false)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("hiddenAction", "SearchService")
	form.Set("hiddenStartPlaceID", from.ID)
	form.Set("hiddenEndPlaceID", to.ID)
	form.Set("txtStartPlaceCode", from.Code)
	form.Set("txtEndPlaceCode", to.Code)
	form.Set("hiddenStartPlaceName", from.Name)
	form.Set("hiddenEndPlaceName", to.Name)
	form.Set("txtJourneyDate", q.Date)
	form.Set("languageType", "E")

	body, err := a.postForm(ctx, form)
	if err != nil {
		return nil, NewTransientError("search", err)
	}

	var result struct {
		Services []models.TripOption `json:"services"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, NewTransientError("search", fmt.Errorf("decode search response: %w", err))
	}
	a.logger.Debug("provider search completed",
		zap.String("from", from.Name), zap.String("to", to.Name),
		zap.Int("services", len(result.Services)))
	return result.Services, nil
}

// Hold places a seat hold for the trip.
func (a *STCHTTPAdapter) Hold(ctx context.Context, tripID string, passengers int, token string) (*models.HoldResult, error) {
	var resp struct {
		HoldRef   string    `json:"holdRef"`
		ExpiresAt time.Time `json:"expiresAt"`
		Rejected  string    `json:"rejected,omitempty"`
	}
	err := a.postJSON(ctx, "hold", token, map[string]interface{}{
		"tripId":     tripID,
		"passengers": passengers,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Rejected != "" {
		return nil, NewBusinessError("hold", resp.Rejected)
	}
	return &models.HoldResult{Ref: resp.HoldRef, ExpiresAt: resp.ExpiresAt}, nil
}

// Pay charges a held reservation provider-side.
func (a *STCHTTPAdapter) Pay(ctx context.Context, holdRef, method string, amountINR int, token string) (string, error) {
	var resp struct {
		PaymentRef string `json:"paymentRef"`
		Declined   string `json:"declined,omitempty"`
	}
	err := a.postJSON(ctx, "pay", token, map[string]interface{}{
		"holdRef":   holdRef,
		"method":    method,
		"amountInr": amountINR,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Declined != "" {
		return "", NewBusinessError("pay", resp.Declined)
	}
	return resp.PaymentRef, nil
}

// Confirm finalises a paid hold.
func (a *STCHTTPAdapter) Confirm(ctx context.Context, holdRef, paymentRef, token string) (string, error) {
	var resp struct {
		BookingRef string `json:"bookingRef"`
		Rejected   string `json:"rejected,omitempty"`
	}
	err := a.postJSON(ctx, "confirm", token, map[string]interface{}{
		"holdRef":    holdRef,
		"paymentRef": paymentRef,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Rejected != "" {
		return "", NewBusinessError("confirm", resp.Rejected)
	}
	return resp.BookingRef, nil
}

// CancelHold releases a hold. Failures are for the caller to log; the hold
// expires naturally as a safety net.
func (a *STCHTTPAdapter) CancelHold(ctx context.Context, holdRef string) error {
	var resp struct{}
	return a.postJSON(ctx, "cancelHold", "", map[string]interface{}{
		"holdRef": holdRef,
	}, &resp)
}

func (a *STCHTTPAdapter) postForm(ctx context.Context, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (a *STCHTTPAdapter) postJSON(ctx context.Context, action, token string, payload map[string]interface{}, out interface{}) error {
	payload["hiddenAction"] = action
	if token != "" {
		payload["idempotencyToken"] = token
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(buf))
	if err != nil {
		return NewTransientError(action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Idempotency-Key", token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return NewTransientError(action, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return NewTransientError(action, fmt.Errorf("gateway returned status %d", resp.StatusCode))
	default:
		return NewBusinessError(action, fmt.Sprintf("gateway returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewTransientError(action, fmt.Errorf("decode %s response: %w", action, err))
	}
	return nil
}
