package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const mymemoryBaseURL = "https://api.mymemory.translated.net"

// MyMemoryService translates through the free MyMemory HTTP API.
type MyMemoryService struct {
	email   string
	baseURL string
	client  *http.Client
}

// NewMyMemoryService returns a MyMemoryService. email is optional and raises
// the daily character quota when supplied.
func NewMyMemoryService(email string) *MyMemoryService {
	return &MyMemoryService{
		email:   email,
		baseURL: mymemoryBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

func (s *MyMemoryService) Translate(ctx context.Context, req Request) (string, error) {
	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "en"
	}

	apiURL := fmt.Sprintf("%s/get?q=%s&langpair=%s",
		s.baseURL,
		url.QueryEscape(req.Text),
		url.QueryEscape(sourceLang+"|"+req.TargetLang))
	if s.email != "" {
		apiURL += "&de=" + url.QueryEscape(s.email)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceError, err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var body struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		ResponseStatus  int    `json:"responseStatus"`
		ResponseDetails string `json:"responseDetails"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrServiceError, err)
	}

	if body.ResponseStatus != 200 {
		return "", fmt.Errorf("%w: %s (%d)", ErrServiceError, body.ResponseDetails, body.ResponseStatus)
	}

	return body.ResponseData.TranslatedText, nil
}

func (s *MyMemoryService) IsAvailable(ctx context.Context) error {
	return nil
}
