// Defines the normalized work-item model shared by the whole pipeline.

package item

import "time"

// Priority is a normalized priority bucket.
type Priority string

// Priority buckets, highest first.
const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// DefaultStatus is used when a record carries no status value. Raw status
// values are otherwise preserved verbatim.
const DefaultStatus = "Not Started"

// Person is a normalized user reference.
type Person struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Item is one normalized record. ParentID is the sole authoritative
// relation; Children is derived by BuildRelationships and is never edited
// by hand.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Priority  *Priority `json:"priority,omitempty"`
	Progress  *float64  `json:"progress,omitempty"`
	Owner     *Person   `json:"owner,omitempty"`
	Assignees []Person  `json:"assignees,omitempty"`
	ParentID  string    `json:"parentId,omitempty"`
	Children  []string  `json:"children,omitempty"`
	DueDate   string    `json:"dueDate,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Source    string    `json:"source,omitempty"`

	CreatedTime    time.Time `json:"createdTime"`
	LastEditedTime time.Time `json:"lastEditedTime"`
	URL            string    `json:"url,omitempty"`
}

// Orphan records an item whose declared parent is absent from the working
// set. Orphans are not errors; the item stays valid standalone.
type Orphan struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parentId"`
}
