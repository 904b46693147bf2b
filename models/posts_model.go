package models

import "time"

// Post ties a route to the user who created it until ExpireAt.
type Post struct {
	ID        string    `json:"id"`
	RouteID   string    `json:"routeId"`
	UserID    string    `json:"userId"`
	ExpireAt  time.Time `json:"expireAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreatePostRequest is the body accepted by POST /posts. Both fields are
// kept untyped so that wrong JSON types surface as validation errors.
type CreatePostRequest struct {
	RouteID  any `json:"routeId"`
	ExpireAt any `json:"expireAt"`
}

// CreatedPost is the projection returned after a successful create.
type CreatedPost struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostFilter narrows a post listing. Empty strings and a nil Expired mean
// the corresponding filter is not applied.
type PostFilter struct {
	RouteID string
	UserID  string
	Expired *bool
	Now     time.Time
}

// Message is the {"msg": ...} envelope used by every non-entity response.
type Message struct {
	Msg any `json:"msg"`
}
