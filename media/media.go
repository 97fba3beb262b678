package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/irsalhamdi/course-platform/config"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// chunkSize is the fixed chunked-upload size requested from the provider.
const chunkSize = 2 << 20

// Uploader pushes files to the Cloudinary upload API using signed
// requests, so no unsigned preset has to be configured on the account.
type Uploader struct {
	client    *resty.Client
	baseURL   string
	cloudName string
	apiKey    string
	apiSecret string
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

func New(cfg config.Cloudinary) *Uploader {
	return &Uploader{
		client:    resty.New().SetTimeout(2 * time.Minute),
		baseURL:   defaultBaseURL,
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}
}

// SetBaseURL overrides the upload endpoint. Used in tests.
func (u *Uploader) SetBaseURL(url string) {
	u.baseURL = url
}

// sign builds the SHA-1 signature Cloudinary expects over the request
// parameters and the account secret.
func (u *Uploader) sign(params string) string {
	h := sha1.Sum([]byte(params + u.apiSecret))
	return hex.EncodeToString(h[:])
}

// Upload streams the file to Cloudinary and returns the served URL.
// resourceType is either "image" or "video".
func (u *Uploader) Upload(ctx context.Context, file io.Reader, filename string, resourceType string) (string, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	var out uploadResponse
	resp, err := u.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, file).
		SetFormData(map[string]string{
			"api_key":    u.apiKey,
			"timestamp":  ts,
			"signature":  u.sign("timestamp=" + ts),
			"chunk_size": strconv.Itoa(chunkSize),
		}).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("%s/%s/%s/upload", u.baseURL, u.cloudName, resourceType))
	if err != nil {
		return "", fmt.Errorf("uploading %s to cloudinary: %w", resourceType, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("cloudinary upload failed with status %d: %s", resp.StatusCode(), out.Error.Message)
	}

	return out.SecureURL, nil
}
