package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExploreTag marks a pin as eligible for the explore feed.
const ExploreTag = "Explorepage"

// SlideshowCategories are the tags shown on the unauthenticated landing slideshow.
var SlideshowCategories = []string{"Traval", "Anime", "Car", "Act"}

// Pin is an image post.
type Pin struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Title        string               `json:"title" bson:"title"`
	Link         string               `json:"link,omitempty" bson:"link,omitempty"`
	ImgSource    string               `json:"img_source" bson:"img_source"`
	Description  string               `json:"description,omitempty" bson:"description,omitempty"`
	Extras       string               `json:"extras,omitempty" bson:"extras,omitempty"`
	Tags         []string             `json:"tags" bson:"tags"`
	AllowComment bool                 `json:"allow_comment" bson:"allow_comment"`
	Comments     []primitive.ObjectID `json:"comments" bson:"comments"`
	Likes        []primitive.ObjectID `json:"likes" bson:"likes"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// PinDetail is a Pin with its comments and likes resolved.
type PinDetail struct {
	Pin
	Comments []Comment `json:"comments"`
	Likes    []User    `json:"likes"`
}

// UniqueTags returns tags with duplicates removed, keeping first occurrences in order.
func UniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// RelatedTags returns the pin's tags without the explore sentinel.
func (p Pin) RelatedTags() []string {
	var out []string
	for _, tag := range p.Tags {
		if tag != ExploreTag {
			out = append(out, tag)
		}
	}
	return out
}
