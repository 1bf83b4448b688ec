package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jesser-selmi/idos-front/internal/request"
	"github.com/jesser-selmi/idos-front/internal/shared/response"
	"github.com/jesser-selmi/idos-front/internal/user"
)

const listPageSize = 100

func (c *Client) SubmitRequest(ctx context.Context, in request.CreateRequestInput) (request.RequestResponse, error) {
	var out request.RequestResponse
	err := c.do(ctx, http.MethodPost, "/requests", in, &out, nil)
	return out, err
}

func (c *Client) ListOwnRequests(ctx context.Context) ([]request.RequestResponse, error) {
	return listAll[request.RequestResponse](ctx, c, "/requests/mine", nil)
}

func (c *Client) ListRequests(ctx context.Context, filter request.ListFilter) ([]request.RequestResponse, error) {
	q := url.Values{}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	return listAll[request.RequestResponse](ctx, c, "/requests", q)
}

func (c *Client) GetRequest(ctx context.Context, id string) (request.RequestResponse, error) {
	var out request.RequestResponse
	err := c.do(ctx, http.MethodGet, "/requests/"+url.PathEscape(id), nil, &out, nil)
	return out, err
}

func (c *Client) ReviewRequest(ctx context.Context, id string, action request.Action) (request.RequestResponse, error) {
	var out request.RequestResponse
	err := c.do(ctx, http.MethodPatch, "/requests/"+url.PathEscape(id)+"/status",
		request.ReviewRequestInput{Action: string(action)}, &out, nil)
	return out, err
}

func (c *Client) ListUsers(ctx context.Context) ([]user.UserResponse, error) {
	return listAll[user.UserResponse](ctx, c, "/users", nil)
}

func (c *Client) Me(ctx context.Context) (user.UserResponse, error) {
	var out user.UserResponse
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &out, nil)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, in user.CreateUserRequest) (user.UserResponse, error) {
	var out user.UserResponse
	err := c.do(ctx, http.MethodPost, "/users", in, &out, nil)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, in user.UpdateUserRequest) (user.UserResponse, error) {
	var out user.UserResponse
	err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), in, &out, nil)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	return c.do(ctx, http.MethodPut, "/users/me/password", user.ChangePasswordRequest{
		NewPassword:     newPassword,
		ConfirmPassword: confirm,
	}, nil, nil)
}

// listAll follows the pagination meta until every page is read.
func listAll[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("page_size", strconv.Itoa(listPageSize))

	var all []T
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))

		var items []T
		var meta response.PaginationMeta
		if err := c.do(ctx, http.MethodGet, path+"?"+q.Encode(), nil, &items, &meta); err != nil {
			return nil, err
		}
		all = append(all, items...)

		if len(items) == 0 || page >= meta.TotalPages {
			break
		}
	}

	if all == nil {
		all = []T{}
	}
	return all, nil
}
