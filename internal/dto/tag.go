package dto

import "strings"

// TagRequest attaches a tag to an event
type TagRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

// NormalizeTagName trims and lower-cases a tag name
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// TagResponse represents a tag
type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
