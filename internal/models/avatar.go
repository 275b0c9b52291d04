package models

// Avatar is a catalog entry. The stored reference on a profile is URL.
type Avatar struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender Gender `json:"gender"`
	URL    string `json:"url"`
}

type AssignAvatarRequest struct {
	Gender string `json:"gender"`
}
