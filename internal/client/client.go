// Package client is the Go client of the coupon tracker REST API.
//
// Every call is a single request: nothing is retried, and timeouts are those
// of the underlying http.Client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// TokenSource supplies the bearer token. An empty token sends no header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Detail returns the backend detail of err, or "" when there is none.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// Client talks to <base>/api.
type Client struct {
	apiRoot string
	http    *http.Client
	tokens  TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource attaches bearer tokens from ts.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		apiRoot: strings.TrimRight(baseURL, "/") + "/api",
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCoupons fetches one page of coupons, team scoped when q.Team is set.
func (c *Client) ListCoupons(ctx context.Context, q CouponQuery) (*CouponPage, error) {
	var page CouponPage
	if err := c.do(ctx, http.MethodGet, teamPath(q.Team, "/coupons"), q.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CouponNames returns the distinct coupon names.
func (c *Client) CouponNames(ctx context.Context, team string) ([]string, error) {
	var body struct {
		CouponNames []string `json:"coupon_names"`
	}
	if err := c.do(ctx, http.MethodGet, teamPath(team, "/coupon-names"), nil, nil, &body); err != nil {
		return nil, err
	}
	return body.CouponNames, nil
}

// StoreNames returns the distinct store names.
func (c *Client) StoreNames(ctx context.Context, team string) ([]string, error) {
	var body struct {
		Stores []string `json:"stores"`
	}
	if err := c.do(ctx, http.MethodGet, teamPath(team, "/stores"), nil, nil, &body); err != nil {
		return nil, err
	}
	return body.Stores, nil
}

// GetCoupon fetches one coupon.
func (c *Client) GetCoupon(ctx context.Context, id int64) (*Coupon, error) {
	var out Coupon
	if err := c.do(ctx, http.MethodGet, couponPath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCoupon creates a coupon, inside team when it is set.
func (c *Client) CreateCoupon(ctx context.Context, team string, in Coupon) (*Coupon, error) {
	in.ID = 0
	var out Coupon
	if err := c.do(ctx, http.MethodPost, teamPath(team, "/coupons"), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCoupon replaces the coupon fields.
func (c *Client) UpdateCoupon(ctx context.Context, id int64, in Coupon) (*Coupon, error) {
	var out Coupon
	if err := c.do(ctx, http.MethodPut, couponPath(id, ""), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCoupon deletes a coupon.
func (c *Client) DeleteCoupon(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, couponPath(id, ""), nil, nil, nil)
}

// UseCoupon redeems a coupon.
func (c *Client) UseCoupon(ctx context.Context, id int64) (*Coupon, error) {
	var out Coupon
	if err := c.do(ctx, http.MethodPatch, couponPath(id, "/use"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignIssuer assigns the coupon to the issuer with email.
func (c *Client) AssignIssuer(ctx context.Context, id int64, email, name string) (*Coupon, error) {
	body := map[string]string{"issuer_email": email, "issuer_name": name}
	var out Coupon
	if err := c.do(ctx, http.MethodPatch, couponPath(id, "/assign-issuer"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CouponImage downloads the PNG of a coupon. size 0 uses the server default.
func (c *Client) CouponImage(ctx context.Context, id int64, size int) ([]byte, error) {
	var q url.Values
	if size > 0 {
		q = url.Values{"size": {strconv.Itoa(size)}}
	}
	var raw bytes.Buffer
	if err := c.do(ctx, http.MethodGet, couponPath(id, "/image"), q, nil, &raw); err != nil {
		return nil, err
	}
	return raw.Bytes(), nil
}

// Statistics fetches the statistics report.
func (c *Client) Statistics(ctx context.Context, team string) (*Statistics, error) {
	var out Statistics
	if err := c.do(ctx, http.MethodGet, teamPath(team, "/statistics"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIssuers lists every issuer.
func (c *Client) ListIssuers(ctx context.Context) ([]Issuer, error) {
	var body struct {
		Issuers []Issuer `json:"issuers"`
	}
	if err := c.do(ctx, http.MethodGet, "/issuers", nil, nil, &body); err != nil {
		return nil, err
	}
	return body.Issuers, nil
}

// CreateIssuer registers an issuer.
func (c *Client) CreateIssuer(ctx context.Context, in IssuerInput) (*Issuer, error) {
	var out Issuer
	if err := c.do(ctx, http.MethodPost, "/issuers", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIssuer changes name and phone of the issuer with email.
func (c *Client) UpdateIssuer(ctx context.Context, email string, in IssuerInput) (*Issuer, error) {
	in.Email = ""
	var out Issuer
	if err := c.do(ctx, http.MethodPut, "/issuers/"+url.PathEscape(email), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIssuer removes an issuer and its assignments.
func (c *Client) DeleteIssuer(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodDelete, "/issuers/"+url.PathEscape(email), nil, nil, nil)
}

// Login exchanges an issuer name and email for an access token.
func (c *Client) Login(ctx context.Context, name, email string) (*LoginResult, error) {
	body := map[string]string{"name": name, "email": email}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/issuer/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the logged-in issuer.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/issuer/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssuerCoupons lists the coupons of the logged-in issuer.
func (c *Client) IssuerCoupons(ctx context.Context) ([]Coupon, error) {
	var body struct {
		Coupons []Coupon `json:"coupons"`
	}
	if err := c.do(ctx, http.MethodGet, "/issuer/coupons", nil, nil, &body); err != nil {
		return nil, err
	}
	return body.Coupons, nil
}

// do sends one request. out may be nil, a *bytes.Buffer for raw bodies, or a JSON target.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, method, path, query, in)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	switch target := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *bytes.Buffer:
		_, err = target.ReadFrom(resp.Body)
		return err
	default:
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return nil
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, in any) (*http.Request, error) {
	target := c.apiRoot + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("load token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// decodeError reads {"detail": ...}. A detail that is not a string is kept as raw JSON.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &body) != nil || len(body.Detail) == 0 {
		return apiErr
	}
	var detail string
	if json.Unmarshal(body.Detail, &detail) == nil {
		apiErr.Detail = detail
	} else {
		apiErr.Detail = string(body.Detail)
	}
	return apiErr
}

func teamPath(team, path string) string {
	if team = strings.TrimSpace(team); team != "" {
		return "/teams/" + url.PathEscape(team) + path
	}
	return path
}

func couponPath(id int64, suffix string) string {
	return "/coupons/" + strconv.FormatInt(id, 10) + suffix
}
