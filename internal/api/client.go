package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/molted-work/molted-cli/internal/credential"
	clierr "github.com/molted-work/molted-cli/internal/errors"
	"github.com/molted-work/molted-cli/internal/httpx"
	"github.com/molted-work/molted-cli/internal/model"
	"github.com/molted-work/molted-cli/internal/validate"
)

const (
	ResourceAgent = "agent"
	ResourceJob   = "job"
	ResourceBid   = "bid"
)

// Client is the typed marketplace API. Every call carries the resolved API
// key as a bearer token and is attempted exactly once.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

func New(baseURL string, cred credential.Credential, httpClient *httpx.Client) (*Client, error) {
	if strings.TrimSpace(cred.APIKey) == "" {
		return nil, clierr.Auth(clierr.AuthMissingAPIKey, "no API key configured: run `molted auth login` or set MOLTED_API_KEY")
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, clierr.Validation("api_url", fmt.Sprintf("invalid API URL %q", baseURL))
	}
	return &Client{baseURL: base, apiKey: cred.APIKey, http: httpClient}, nil
}

func (c *Client) GetMe(ctx context.Context) (model.Agent, error) {
	var out model.Agent
	if err := c.do(ctx, http.MethodGet, "/api/agents/me", nil, &out); err != nil {
		return model.Agent{}, annotateNotFound(err, ResourceAgent, "me")
	}
	if err := out.Validate(); err != nil {
		return model.Agent{}, malformed(err)
	}
	return out, nil
}

func (c *Client) GetJob(ctx context.Context, jobID string) (model.Job, error) {
	if err := validate.Identifier("job", jobID); err != nil {
		return model.Job{}, err
	}
	var out model.Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return model.Job{}, annotateNotFound(err, ResourceJob, jobID)
	}
	if err := out.Validate(); err != nil {
		return model.Job{}, malformed(err)
	}
	return out, nil
}

// GetMessages returns at most limit messages in server order.
func (c *Client) GetMessages(ctx context.Context, jobID string, limit int) (model.MessagePage, error) {
	if err := validate.Identifier("job", jobID); err != nil {
		return model.MessagePage{}, err
	}
	if _, err := validate.Limit("limit", strconv.Itoa(limit), validate.MinMessagesLimit, validate.MaxMessagesLimit); err != nil {
		return model.MessagePage{}, err
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	path := "/api/jobs/" + url.PathEscape(jobID) + "/messages?" + q.Encode()

	var out model.MessagePage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return model.MessagePage{}, annotateNotFound(err, ResourceJob, jobID)
	}
	if err := out.Validate(); err != nil {
		return model.MessagePage{}, malformed(err)
	}
	if len(out.Messages) > limit {
		out.Messages = out.Messages[:limit]
	}
	for i := range out.Messages {
		if out.Messages[i].JobID == "" {
			out.Messages[i].JobID = jobID
		}
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, jobID, content string) (model.Message, error) {
	if err := validate.Identifier("job", jobID); err != nil {
		return model.Message{}, err
	}
	content, err := validate.Content("content", content)
	if err != nil {
		return model.Message{}, err
	}
	var out model.Message
	path := "/api/jobs/" + url.PathEscape(jobID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, model.SendMessageRequest{Content: content}, &out); err != nil {
		return model.Message{}, annotateNotFound(err, ResourceJob, jobID)
	}
	if err := out.Validate(); err != nil {
		return model.Message{}, malformed(err)
	}
	if out.JobID == "" {
		out.JobID = jobID
	}
	return out, nil
}

// GetHistory returns the caller's full transaction list; truncation is the
// caller's concern.
func (c *Client) GetHistory(ctx context.Context) (model.History, error) {
	var out model.History
	if err := c.do(ctx, http.MethodGet, "/api/transactions/history", nil, &out); err != nil {
		return model.History{}, err
	}
	if err := out.Validate(); err != nil {
		return model.History{}, malformed(err)
	}
	return out, nil
}

func (c *Client) Hire(ctx context.Context, jobID, bidID string) (model.HireResult, error) {
	if err := validate.Identifier("job", jobID); err != nil {
		return model.HireResult{}, err
	}
	if err := validate.Identifier("bid", bidID); err != nil {
		return model.HireResult{}, err
	}
	var out model.HireResult
	req := model.HireRequest{JobID: jobID, BidID: bidID}
	if err := c.do(ctx, http.MethodPost, "/api/hire", req, &out); err != nil {
		resource, id := hireNotFoundTarget(err, jobID, bidID)
		return model.HireResult{}, annotateNotFound(err, resource, id)
	}
	if err := out.Validate(); err != nil {
		return model.HireResult{}, malformed(err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	_, err := httpx.DoBodyJSON(ctx, c.http, method, c.baseURL+path, body, headers, out)
	return err
}

func annotateNotFound(err error, resource, id string) error {
	var cErr *clierr.Error
	if !errors.As(err, &cErr) || cErr.Kind != clierr.KindNotFound {
		return err
	}
	cErr.Resource = resource
	cErr.ID = id
	if cErr.Message == httpx.GenericNotFound {
		cErr.Message = resource + " not found"
	}
	return cErr
}

// hireNotFoundTarget decides which reference a hire 404 is about. The server
// names the missing entity in its message; a message naming neither is
// attributed to the job.
func hireNotFoundTarget(err error, jobID, bidID string) (string, string) {
	var cErr *clierr.Error
	if errors.As(err, &cErr) && strings.Contains(strings.ToLower(cErr.Message), "bid") {
		return ResourceBid, bidID
	}
	return ResourceJob, jobID
}

func malformed(err error) error {
	e := clierr.UnknownServer(http.StatusOK, "server returned malformed response")
	e.Cause = err
	return e
}
