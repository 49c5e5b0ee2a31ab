package domain

import "time"

// Document keys in object storage. Each key holds one whole JSON document:
// an array of records, except DocSalon which is a single object.
const (
	DocStylists = "stylists.json"
	DocStyles   = "styles.json"
	DocMenu     = "menu.json"
	DocNews     = "news.json"
	DocSalon    = "salon.json"
	DocMessages = "messages.json"
)

// Stylist is one staff member shown on the public site and managed by admins.
type Stylist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Instagram string    `json:"instagram,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Stylist) RecordID() string { return s.ID }

// StylistPatch is an explicit partial update: nil fields are left untouched.
type StylistPatch struct {
	Name      *string `json:"name,omitempty"`
	Role      *string `json:"role,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	Instagram *string `json:"instagram,omitempty"`
}

// StyleImage is one gallery entry, optionally attributed to a stylist.
type StyleImage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category,omitempty"`
	ImageURL  string    `json:"image_url"`
	StylistID string    `json:"stylist_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s StyleImage) RecordID() string { return s.ID }

type StyleImagePatch struct {
	Title     *string `json:"title,omitempty"`
	Category  *string `json:"category,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	StylistID *string `json:"stylist_id,omitempty"`
}

// MenuItem is one service on the salon menu.
type MenuItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	PriceYen        int       `json:"price_yen"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (m MenuItem) RecordID() string { return m.ID }

type MenuItemPatch struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	Category        *string `json:"category,omitempty"`
	PriceYen        *int    `json:"price_yen,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
}

// NewsItem is one announcement on the public news feed.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

func (n NewsItem) RecordID() string { return n.ID }

type NewsItemPatch struct {
	Title       *string    `json:"title,omitempty"`
	Body        *string    `json:"body,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// SalonInfo is the single-object document holding store-wide details.
type SalonInfo struct {
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	OpeningHours string `json:"opening_hours,omitempty"`
	HolidayNote  string `json:"holiday_note,omitempty"`
	Access       string `json:"access,omitempty"`
}

// ContactMessage is one contact-form submission appended to DocMessages.
type ContactMessage struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

func (c ContactMessage) RecordID() string { return c.ID }
