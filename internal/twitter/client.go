// Package twitter is a minimal Twitter v2 API client covering the two
// operations the runner needs: publishing a tweet (optionally as a reply)
// and fetching an account's recent tweets since a watermark.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/mikage/tweetrunner/pkg/models"
)

const defaultBaseURL = "https://api.twitter.com"

// Fetch at most this many tweets per call; keeps the call inside the free
// rate-limit window even when several reply rules share a schedule.
const fetchPageSize = 5

// ErrCredentialsMissing marks an account whose credential set is incomplete.
// The loops skip that account only; the run continues.
var ErrCredentialsMissing = fmt.Errorf("missing twitter api credentials")

// Post is one normalized tweet.
type Post struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Client is an OAuth1 user-context Twitter v2 API client for one account.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client signing requests with the account's
// credentials. It fails with ErrCredentialsMissing when any credential
// field is absent.
func NewClient(account models.Account, logger *slog.Logger) (*Client, error) {
	creds := account.Credentials
	if !creds.Complete() {
		return nil, fmt.Errorf("%w for %s", ErrCredentialsMissing, account.AccountName)
	}

	oauthCfg := oauth1.NewConfig(creds.APIKey, creds.APIKeySecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	httpClient := oauthCfg.Client(oauth1.NoContext, token)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
		logger:     logger.With("component", "twitter", "account", account.AccountName),
	}, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

type tweetRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
}

// PublishPost creates a tweet and returns its remote id. A non-empty
// replyToID publishes the text as a reply to that tweet instead of a
// top-level post. Failures carry the APIError taxonomy.
func (c *Client) PublishPost(ctx context.Context, text, replyToID string) (string, error) {
	reqBody := tweetRequest{Text: text}
	if replyToID != "" {
		reqBody.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: replyToID}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tweet request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create tweet request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &APIError{Kind: KindTransient, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var result struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || result.Data.ID == "" {
		return "", &APIError{
			Kind:       KindInvalidResponse,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("no tweet data in response: %s", truncate(string(respBody), 200)),
		}
	}

	c.logger.Debug("tweet published", "tweet_id", result.Data.ID, "reply_to", replyToID)
	return result.Data.ID, nil
}

// FetchRecentPosts returns the handle's newest tweets since sinceID (or the
// most recent few when sinceID is empty), newest first, excluding retweets
// and replies. The response payload is normalized defensively; see
// NormalizePosts. Rate-limit failures are classified as KindRateLimited so
// callers can defer instead of erroring.
func (c *Client) FetchRecentPosts(ctx context.Context, handle, sinceID string) ([]Post, error) {
	userID, err := c.lookupUserID(ctx, handle)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("max_results", fmt.Sprintf("%d", fetchPageSize))
	params.Set("exclude", "retweets,replies")
	params.Set("tweet.fields", "created_at")
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}

	endpoint := fmt.Sprintf("%s/2/users/%s/tweets?%s", c.baseURL, userID, params.Encode())
	respBody, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	posts := NormalizePosts(respBody, c.logger)
	c.logger.Debug("tweets fetched", "handle", handle, "since_id", sinceID, "count", len(posts))
	return posts, nil
}

func (c *Client) lookupUserID(ctx context.Context, handle string) (string, error) {
	endpoint := c.baseURL + "/2/users/by/username/" + url.PathEscape(handle)
	respBody, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || result.Data.ID == "" {
		return "", &APIError{
			Kind:    KindInvalidResponse,
			Message: fmt.Sprintf("user %s not found in response: %s", handle, truncate(string(respBody), 200)),
		}
	}
	return result.Data.ID, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindTransient, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// classifyStatus maps an error response onto the taxonomy. Duplicate
// detection inspects the body: the API signals it as a 403 whose detail
// mentions duplicate content.
func classifyStatus(status int, body []byte) *APIError {
	msg := truncate(string(body), 300)
	switch {
	case status == http.StatusTooManyRequests:
		return &APIError{Kind: KindRateLimited, StatusCode: status, Message: msg}
	case status == http.StatusForbidden && strings.Contains(strings.ToLower(msg), "duplicate"):
		return &APIError{Kind: KindDuplicateContent, StatusCode: status, Message: msg}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{Kind: KindAuthFailure, StatusCode: status, Message: msg}
	default:
		return &APIError{Kind: KindTransient, StatusCode: status, Message: msg}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
