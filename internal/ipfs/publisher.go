package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/mr-tron/base58"
	"golang.org/x/time/rate"

	"github.com/vigia-app/vigia/internal/config"
)

// UploadKind classifies content publishing failures.
type UploadKind int

const (
	// UploadInvalidInput means the payload failed local validation. No store
	// request was made.
	UploadInvalidInput UploadKind = iota + 1
	// UploadStoreUnavailable means the store session could not be established.
	UploadStoreUnavailable
	// UploadTransferFailed means the transfer itself failed after a session
	// was in place.
	UploadTransferFailed
)

// UploadError is a discriminated content publishing failure.
type UploadError struct {
	Kind UploadKind
	Err  error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case UploadInvalidInput:
		return fmt.Sprintf("invalid upload input: %v", e.Err)
	case UploadStoreUnavailable:
		return fmt.Sprintf("content store unavailable: %v", e.Err)
	default:
		return fmt.Sprintf("content transfer failed: %v", e.Err)
	}
}

func (e *UploadError) Unwrap() error { return e.Err }

// Publisher pushes report images to the IPFS-backed content store and hands
// back their content identifiers. The store session is established lazily on
// the first upload and reused afterwards.
type Publisher struct {
	client  *http.Client
	baseURL string
	token   string
	space   string
	limiter *rate.Limiter

	mu           sync.Mutex
	sessionReady bool
}

// NewPublisher creates a publisher against the store at baseURL.
func NewPublisher(client *http.Client, baseURL, token string) *Publisher {
	return &Publisher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		space:   config.StoreSpaceName,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimitStore), config.RateLimitStore),
	}
}

// Upload validates and publishes an image, returning its content identifier.
// Validation happens entirely locally; an invalid payload never produces a
// store request.
func (p *Publisher) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := validatePayload(data, contentType); err != nil {
		return "", &UploadError{Kind: UploadInvalidInput, Err: err}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", &UploadError{Kind: UploadTransferFailed, Err: err}
	}

	if err := p.ensureSession(ctx); err != nil {
		return "", &UploadError{Kind: UploadStoreUnavailable, Err: err}
	}

	cid, err := p.push(ctx, data, contentType)
	if err != nil {
		return "", &UploadError{Kind: UploadTransferFailed, Err: err}
	}

	if err := ValidateCID(cid); err != nil {
		return "", &UploadError{Kind: UploadTransferFailed, Err: err}
	}

	slog.Info("image published", "cid", cid, "bytes", len(data), "contentType", contentType)
	return cid, nil
}

// validatePayload enforces the size cap and MIME allow-list.
func validatePayload(data []byte, contentType string) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	if len(data) > config.MaxUploadBytes {
		return fmt.Errorf("payload is %d bytes, limit is %d", len(data), config.MaxUploadBytes)
	}
	for _, allowed := range config.AllowedImageTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("content type %q not allowed", contentType)
}

// ensureSession establishes the store session once. A failed attempt leaves
// the publisher unprovisioned so the next upload retries.
func (p *Publisher) ensureSession(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sessionReady {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"space": p.space})
	if err != nil {
		return fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/session", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: session returned status %d: %s", config.ErrStoreUnavailable, resp.StatusCode, string(body))
	}

	p.sessionReady = true
	slog.Info("content store session established", "space", p.space)
	return nil
}

// push transfers the payload and parses the returned identifier.
func (p *Publisher) push(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("X-Store-Space", p.space)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		CID string `json:"cid"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse upload response: %w", err)
	}
	if result.CID == "" {
		return "", fmt.Errorf("upload response missing cid")
	}

	return result.CID, nil
}

// ValidateCID checks the shape of a content identifier. CIDv0 identifiers are
// base58 multihashes starting with Qm; CIDv1 identifiers use the base32
// bafy prefix.
func ValidateCID(cid string) error {
	switch {
	case strings.HasPrefix(cid, "Qm"):
		decoded, err := base58.Decode(cid)
		if err != nil {
			return fmt.Errorf("%w: %v", config.ErrInvalidCID, err)
		}
		// sha2-256 multihash: 2 prefix bytes plus a 32 byte digest.
		if len(decoded) != 34 {
			return fmt.Errorf("%w: multihash length %d", config.ErrInvalidCID, len(decoded))
		}
		return nil
	case strings.HasPrefix(cid, "bafy"):
		if len(cid) < 10 {
			return fmt.Errorf("%w: truncated identifier", config.ErrInvalidCID)
		}
		return nil
	default:
		return fmt.Errorf("%w: unrecognized prefix in %q", config.ErrInvalidCID, cid)
	}
}

// GatewayURL resolves a content identifier to its public gateway URL. An empty
// identifier resolves to the placeholder image.
func GatewayURL(cid string) string {
	if cid == "" {
		return config.PlaceholderImage
	}
	return strings.Replace(config.IPFSGatewayFormat, "%CID%", cid, 1)
}
