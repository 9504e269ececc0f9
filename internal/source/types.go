// Defines the upstream workspace API wire types.

package source

import (
	"time"
)

// Property value kinds recognized by the normalization pipeline. Anything
// else is carried as KindOther and treated as opaque.
const (
	KindTitle       = "title"
	KindRichText    = "rich_text"
	KindSelect      = "select"
	KindStatus      = "status"
	KindMultiSelect = "multi_select"
	KindNumber      = "number"
	KindDate        = "date"
	KindPeople      = "people"
	KindRelation    = "relation"
	KindOther       = "other"
)

// QueryResponse is a single page of a paginated source query.
type QueryResponse struct {
	Object     string   `json:"object"`
	Results    []Record `json:"results"`
	NextCursor *string  `json:"next_cursor"`
	HasMore    bool     `json:"has_more"`
}

// Record is one raw record as returned by the upstream API: identity,
// timestamps, and a property bag whose field names are user-defined.
type Record struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	URL            string                   `json:"url"`
	CreatedTime    time.Time                `json:"created_time"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// PropertyValue is a tagged union over property kinds. Only the payload
// field matching Type is populated; the rest stay at their zero value.
type PropertyValue struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`

	Title       []RichText      `json:"title,omitempty"`
	RichText    []RichText      `json:"rich_text,omitempty"`
	Select      *SelectValue    `json:"select,omitempty"`
	Status      *SelectValue    `json:"status,omitempty"`
	MultiSelect []SelectValue   `json:"multi_select,omitempty"`
	Number      *float64        `json:"number,omitempty"`
	Date        *DateValue      `json:"date,omitempty"`
	People      []Person        `json:"people,omitempty"`
	Relation    []RelationValue `json:"relation,omitempty"`
}

// Kind returns the recognized kind for the value, folding every
// unrecognized type string into KindOther.
func (pv *PropertyValue) Kind() string {
	switch pv.Type {
	case KindTitle, KindRichText, KindSelect, KindStatus, KindMultiSelect,
		KindNumber, KindDate, KindPeople, KindRelation:
		return pv.Type
	default:
		return KindOther
	}
}

// RichText is one formatted text run.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent is the plain content of a text run.
type TextContent struct {
	Content string `json:"content"`
}

// SelectValue is a select or status property value.
type SelectValue struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateValue is a date property value. Start and End are ISO 8601 strings.
type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// Person is an upstream user reference.
type Person struct {
	Object    string         `json:"object,omitempty"`
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	AvatarURL *string        `json:"avatar_url,omitempty"`
	Person    *PersonDetails `json:"person,omitempty"`
}

// PersonDetails contains person-specific details.
type PersonDetails struct {
	Email string `json:"email"`
}

// RelationValue is a reference to another record.
type RelationValue struct {
	ID string `json:"id"`
}

// Error is an upstream API error response body.
type Error struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
