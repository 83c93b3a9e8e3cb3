package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/config"
)

// searchPageSize is the maxResults sent on each search request.
const searchPageSize = 100

// AuthenticationError is returned when JIRA rejects the configured credentials.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("JIRA authentication failed (%d): %s", e.StatusCode, e.Message)
}

// APIError is a JIRA answer with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("JIRA API returned %d: %s", e.StatusCode, e.Body)
}

// errNotFound is returned by get when JIRA answers 404.
var errNotFound = errors.New("not found")

// Client is a JIRA REST API client. Searches go to /rest/api/3/search/jql,
// falling back to v2 on servers without it; issue reads use v2.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient creates a new JIRA client from the given config.
func NewClient(cfg config.Config) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.Token))
	baseURL := strings.TrimRight(cfg.URL, "/")
	return &Client{
		baseURL:    baseURL,
		authHeader: "Basic " + creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Authenticate verifies the credentials against /myself and returns the
// authenticated user.
func (c *Client) Authenticate(ctx context.Context) (*User, error) {
	var user User
	err := c.get(ctx, "/rest/api/2/myself", nil, &user)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}
	return &user, nil
}

// FindSprintIssues returns the keys of all issues in the project whose fix
// version is the given version name, in key order. A fix version JIRA does
// not know yet matches no issues.
func (c *Client) FindSprintIssues(ctx context.Context, projectKey, version string) ([]string, error) {
	jql := SprintJQL(projectKey, version)

	keys, err := c.searchJQL(ctx, jql)
	if errors.Is(err, errNotFound) {
		// Server and Data Center have no /search/jql.
		keys, err = c.searchLegacy(ctx, jql)
	}
	if unknownFixVersion(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("searching issues: %w", err)
	}
	return keys, nil
}

// searchJQL pages through /rest/api/3/search/jql by nextPageToken.
func (c *Client) searchJQL(ctx context.Context, jql string) ([]string, error) {
	var keys []string
	token := ""
	for {
		params := url.Values{}
		params.Set("jql", jql)
		params.Set("fields", "key")
		params.Set("maxResults", strconv.Itoa(searchPageSize))
		if token != "" {
			params.Set("nextPageToken", token)
		}

		var page SearchResponse
		if err := c.get(ctx, "/rest/api/3/search/jql", params, &page); err != nil {
			return nil, err
		}

		for _, issue := range page.Issues {
			keys = append(keys, issue.Key)
		}

		if page.IsLast || page.NextPageToken == "" || page.NextPageToken == token {
			break
		}
		token = page.NextPageToken
	}
	return keys, nil
}

// searchLegacy pages through /rest/api/2/search by startAt.
func (c *Client) searchLegacy(ctx context.Context, jql string) ([]string, error) {
	var keys []string
	startAt := 0
	for {
		params := url.Values{}
		params.Set("jql", jql)
		params.Set("fields", "key")
		params.Set("validateQuery", "warn")
		params.Set("startAt", strconv.Itoa(startAt))
		params.Set("maxResults", strconv.Itoa(searchPageSize))

		var page SearchResponse
		if err := c.get(ctx, "/rest/api/2/search", params, &page); err != nil {
			return nil, err
		}

		for _, issue := range page.Issues {
			keys = append(keys, issue.Key)
		}

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}
	return keys, nil
}

// unknownFixVersion reports whether JIRA rejected a search because the fix
// version named in the JQL does not exist.
func unknownFixVersion(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	var body struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	if json.Unmarshal([]byte(apiErr.Body), &body) != nil {
		return false
	}
	for _, msg := range body.ErrorMessages {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "does not exist for the field 'fixversion'") {
			return true
		}
	}
	return false
}

// SprintJQL builds the search query for a sprint version.
func SprintJQL(projectKey, version string) string {
	return fmt.Sprintf(`project = "%s" AND fixVersion = "%s" ORDER BY key ASC`,
		escapeJQL(projectKey), escapeJQL(version))
}

func escapeJQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// GetIssue fetches a single issue by key. A missing issue returns nil, nil.
// If the embedded worklog is truncated, the full worklog is fetched.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var issue Issue
	err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key), nil, &issue)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching issue %s: %w", key, err)
	}

	if issue.Fields.Worklog.Truncated() {
		worklogs, err := c.GetWorklogs(ctx, key)
		if err != nil {
			return nil, err
		}
		issue.Fields.Worklog = worklogs
	}

	return &issue, nil
}

// GetWorklogs fetches the complete worklog of an issue.
func (c *Client) GetWorklogs(ctx context.Context, key string) (*Worklogs, error) {
	var worklogs Worklogs
	if err := c.get(ctx, "/rest/api/2/issue/"+url.PathEscape(key)+"/worklog", nil, &worklogs); err != nil {
		return nil, fmt.Errorf("fetching worklog of %s: %w", key, err)
	}
	return &worklogs, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return errNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		body, _ := io.ReadAll(resp.Body)
		return &AuthenticationError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	default:
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
