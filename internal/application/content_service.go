package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/metrics"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
	"gitlab.com/lumiere-salon/api/salon-cms-service/pkg/contextkeys"
)

// ErrRecordNotFound reports that no record with the requested id exists inside
// the target document. Handlers map it to HTTP 404.
var ErrRecordNotFound = errors.New("record not found in document")

// ErrValidation wraps field-level validation failures. Handlers map it to HTTP 400.
var ErrValidation = errors.New("validation failed")

// record is any entry of an array-shaped document.
type record interface {
	RecordID() string
}

// ContentService implements record-level CRUD over the document store. Every
// mutation goes through the store's conditional update so concurrent admin
// edits to the same collection never overwrite each other's records.
//
// The service owns id assignment and id uniqueness within a document; the
// store below it stays schema-free.
type ContentService struct {
	logger domain.Logger
	store  *DocumentStore
	events domain.EventPublisher // optional, may be nil

	now func() time.Time // overridable for tests
}

// NewContentService creates a new ContentService.
func NewContentService(logger domain.Logger, store *DocumentStore, events domain.EventPublisher) *ContentService {
	if logger == nil {
		panic("logger is nil in NewContentService")
	}
	if store == nil {
		panic("document store is nil in NewContentService")
	}
	return &ContentService{
		logger: logger,
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// newRecordID derives a millisecond-timestamp id, bumping while taken so ids
// stay unique within the document even for records created in the same moment.
func (s *ContentService) newRecordID(taken func(id string) bool) string {
	candidate := s.now().UnixMilli()
	for taken(strconv.FormatInt(candidate, 10)) {
		candidate++
	}
	return strconv.FormatInt(candidate, 10)
}

func (s *ContentService) publishContentEvent(ctx context.Context, collection, action, recordID string) {
	metrics.IncrementContentEventPublished(collection, action)
	if s.events == nil {
		return
	}
	event := domain.ContentEvent{
		Collection: collection,
		Action:     action,
		RecordID:   recordID,
		OccurredAt: s.now(),
	}
	if actor, ok := ctx.Value(contextkeys.AdminIDKey).(string); ok {
		event.Actor = actor
	}
	if err := s.events.PublishContentEvent(ctx, event); err != nil {
		// Best effort: the mutation already committed.
		s.logger.Warn(ctx, "Failed to publish content event", "collection", collection, "action", action, "error", err.Error())
	}
}

// listRecords returns the whole collection; an absent document is an empty one.
func listRecords[T record](ctx context.Context, s *ContentService, key string) ([]T, error) {
	records, err := Get[[]T](ctx, s.store, key)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return []T{}, nil
	}
	return records, err
}

// createRecord appends the record produced by build, which receives the unique id
// assigned against the collection state the commit actually lands on.
func createRecord[T record](ctx context.Context, s *ContentService, key string, build func(id string) T) (T, error) {
	var created T
	_, err := Update(ctx, s.store, key, func(current []T) ([]T, error) {
		id := s.newRecordID(func(candidate string) bool {
			for _, r := range current {
				if r.RecordID() == candidate {
					return true
				}
			}
			return false
		})
		created = build(id)
		return append(current, created), nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

// patchRecord applies apply to the record with the given id.
func patchRecord[T record](ctx context.Context, s *ContentService, key, id string, apply func(T) T) (T, error) {
	var patched T
	_, err := Update(ctx, s.store, key, func(current []T) ([]T, error) {
		for i, r := range current {
			if r.RecordID() == id {
				patched = apply(r)
				current[i] = patched
				return current, nil
			}
		}
		return nil, fmt.Errorf("%w: id %q in %q", ErrRecordNotFound, id, key)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return patched, nil
}

// deleteRecord removes the record with the given id.
func deleteRecord[T record](ctx context.Context, s *ContentService, key, id string) error {
	_, err := Update(ctx, s.store, key, func(current []T) ([]T, error) {
		for i, r := range current {
			if r.RecordID() == id {
				return append(current[:i], current[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: id %q in %q", ErrRecordNotFound, id, key)
	})
	return err
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// --- Stylists ---

// StylistInput carries the validated fields of a new stylist.
type StylistInput struct {
	Name      string
	Role      string
	Bio       string
	ImageURL  string
	Instagram string
}

func (s *ContentService) ListStylists(ctx context.Context) ([]domain.Stylist, error) {
	return listRecords[domain.Stylist](ctx, s, domain.DocStylists)
}

func (s *ContentService) CreateStylist(ctx context.Context, input StylistInput) (domain.Stylist, error) {
	if input.Name == "" {
		return domain.Stylist{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	created, err := createRecord(ctx, s, domain.DocStylists, func(id string) domain.Stylist {
		return domain.Stylist{
			ID:        id,
			Name:      input.Name,
			Role:      input.Role,
			Bio:       input.Bio,
			ImageURL:  input.ImageURL,
			Instagram: input.Instagram,
			CreatedAt: s.now(),
		}
	})
	if err != nil {
		return domain.Stylist{}, err
	}
	s.publishContentEvent(ctx, "stylists", "created", created.ID)
	return created, nil
}

func (s *ContentService) UpdateStylist(ctx context.Context, id string, patch domain.StylistPatch) (domain.Stylist, error) {
	if patch.Name != nil && *patch.Name == "" {
		return domain.Stylist{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	patched, err := patchRecord(ctx, s, domain.DocStylists, id, func(r domain.Stylist) domain.Stylist {
		applyString(&r.Name, patch.Name)
		applyString(&r.Role, patch.Role)
		applyString(&r.Bio, patch.Bio)
		applyString(&r.ImageURL, patch.ImageURL)
		applyString(&r.Instagram, patch.Instagram)
		return r
	})
	if err != nil {
		return domain.Stylist{}, err
	}
	s.publishContentEvent(ctx, "stylists", "updated", id)
	return patched, nil
}

func (s *ContentService) DeleteStylist(ctx context.Context, id string) error {
	if err := deleteRecord[domain.Stylist](ctx, s, domain.DocStylists, id); err != nil {
		return err
	}
	s.publishContentEvent(ctx, "stylists", "deleted", id)
	return nil
}

// --- Styles ---

type StyleImageInput struct {
	Title     string
	Category  string
	ImageURL  string
	StylistID string
}

func (s *ContentService) ListStyles(ctx context.Context) ([]domain.StyleImage, error) {
	return listRecords[domain.StyleImage](ctx, s, domain.DocStyles)
}

func (s *ContentService) CreateStyle(ctx context.Context, input StyleImageInput) (domain.StyleImage, error) {
	if input.Title == "" {
		return domain.StyleImage{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.ImageURL == "" {
		return domain.StyleImage{}, fmt.Errorf("%w: image_url is required", ErrValidation)
	}
	created, err := createRecord(ctx, s, domain.DocStyles, func(id string) domain.StyleImage {
		return domain.StyleImage{
			ID:        id,
			Title:     input.Title,
			Category:  input.Category,
			ImageURL:  input.ImageURL,
			StylistID: input.StylistID,
			CreatedAt: s.now(),
		}
	})
	if err != nil {
		return domain.StyleImage{}, err
	}
	s.publishContentEvent(ctx, "styles", "created", created.ID)
	return created, nil
}

func (s *ContentService) UpdateStyle(ctx context.Context, id string, patch domain.StyleImagePatch) (domain.StyleImage, error) {
	if patch.Title != nil && *patch.Title == "" {
		return domain.StyleImage{}, fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if patch.ImageURL != nil && *patch.ImageURL == "" {
		return domain.StyleImage{}, fmt.Errorf("%w: image_url cannot be empty", ErrValidation)
	}
	patched, err := patchRecord(ctx, s, domain.DocStyles, id, func(r domain.StyleImage) domain.StyleImage {
		applyString(&r.Title, patch.Title)
		applyString(&r.Category, patch.Category)
		applyString(&r.ImageURL, patch.ImageURL)
		applyString(&r.StylistID, patch.StylistID)
		return r
	})
	if err != nil {
		return domain.StyleImage{}, err
	}
	s.publishContentEvent(ctx, "styles", "updated", id)
	return patched, nil
}

func (s *ContentService) DeleteStyle(ctx context.Context, id string) error {
	if err := deleteRecord[domain.StyleImage](ctx, s, domain.DocStyles, id); err != nil {
		return err
	}
	s.publishContentEvent(ctx, "styles", "deleted", id)
	return nil
}

// --- Menu ---

type MenuItemInput struct {
	Name            string
	Description     string
	Category        string
	PriceYen        int
	DurationMinutes int
}

func (s *ContentService) ListMenu(ctx context.Context) ([]domain.MenuItem, error) {
	return listRecords[domain.MenuItem](ctx, s, domain.DocMenu)
}

func (s *ContentService) CreateMenuItem(ctx context.Context, input MenuItemInput) (domain.MenuItem, error) {
	if input.Name == "" {
		return domain.MenuItem{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if input.PriceYen < 0 {
		return domain.MenuItem{}, fmt.Errorf("%w: price_yen cannot be negative", ErrValidation)
	}
	created, err := createRecord(ctx, s, domain.DocMenu, func(id string) domain.MenuItem {
		return domain.MenuItem{
			ID:              id,
			Name:            input.Name,
			Description:     input.Description,
			Category:        input.Category,
			PriceYen:        input.PriceYen,
			DurationMinutes: input.DurationMinutes,
			CreatedAt:       s.now(),
		}
	})
	if err != nil {
		return domain.MenuItem{}, err
	}
	s.publishContentEvent(ctx, "menu", "created", created.ID)
	return created, nil
}

func (s *ContentService) UpdateMenuItem(ctx context.Context, id string, patch domain.MenuItemPatch) (domain.MenuItem, error) {
	if patch.Name != nil && *patch.Name == "" {
		return domain.MenuItem{}, fmt.Errorf("%w: name cannot be empty", ErrValidation)
	}
	if patch.PriceYen != nil && *patch.PriceYen < 0 {
		return domain.MenuItem{}, fmt.Errorf("%w: price_yen cannot be negative", ErrValidation)
	}
	patched, err := patchRecord(ctx, s, domain.DocMenu, id, func(r domain.MenuItem) domain.MenuItem {
		applyString(&r.Name, patch.Name)
		applyString(&r.Description, patch.Description)
		applyString(&r.Category, patch.Category)
		applyInt(&r.PriceYen, patch.PriceYen)
		applyInt(&r.DurationMinutes, patch.DurationMinutes)
		return r
	})
	if err != nil {
		return domain.MenuItem{}, err
	}
	s.publishContentEvent(ctx, "menu", "updated", id)
	return patched, nil
}

func (s *ContentService) DeleteMenuItem(ctx context.Context, id string) error {
	if err := deleteRecord[domain.MenuItem](ctx, s, domain.DocMenu, id); err != nil {
		return err
	}
	s.publishContentEvent(ctx, "menu", "deleted", id)
	return nil
}

// --- News ---

type NewsItemInput struct {
	Title       string
	Body        string
	ImageURL    string
	PublishedAt time.Time
}

func (s *ContentService) ListNews(ctx context.Context) ([]domain.NewsItem, error) {
	return listRecords[domain.NewsItem](ctx, s, domain.DocNews)
}

func (s *ContentService) CreateNewsItem(ctx context.Context, input NewsItemInput) (domain.NewsItem, error) {
	if input.Title == "" {
		return domain.NewsItem{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if input.Body == "" {
		return domain.NewsItem{}, fmt.Errorf("%w: body is required", ErrValidation)
	}
	publishedAt := input.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = s.now()
	}
	created, err := createRecord(ctx, s, domain.DocNews, func(id string) domain.NewsItem {
		return domain.NewsItem{
			ID:          id,
			Title:       input.Title,
			Body:        input.Body,
			ImageURL:    input.ImageURL,
			PublishedAt: publishedAt,
		}
	})
	if err != nil {
		return domain.NewsItem{}, err
	}
	s.publishContentEvent(ctx, "news", "created", created.ID)
	return created, nil
}

func (s *ContentService) UpdateNewsItem(ctx context.Context, id string, patch domain.NewsItemPatch) (domain.NewsItem, error) {
	if patch.Title != nil && *patch.Title == "" {
		return domain.NewsItem{}, fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if patch.Body != nil && *patch.Body == "" {
		return domain.NewsItem{}, fmt.Errorf("%w: body cannot be empty", ErrValidation)
	}
	patched, err := patchRecord(ctx, s, domain.DocNews, id, func(r domain.NewsItem) domain.NewsItem {
		applyString(&r.Title, patch.Title)
		applyString(&r.Body, patch.Body)
		applyString(&r.ImageURL, patch.ImageURL)
		if patch.PublishedAt != nil {
			r.PublishedAt = *patch.PublishedAt
		}
		return r
	})
	if err != nil {
		return domain.NewsItem{}, err
	}
	s.publishContentEvent(ctx, "news", "updated", id)
	return patched, nil
}

func (s *ContentService) DeleteNewsItem(ctx context.Context, id string) error {
	if err := deleteRecord[domain.NewsItem](ctx, s, domain.DocNews, id); err != nil {
		return err
	}
	s.publishContentEvent(ctx, "news", "deleted", id)
	return nil
}

// --- Salon info ---

func (s *ContentService) GetSalonInfo(ctx context.Context) (domain.SalonInfo, error) {
	return Get[domain.SalonInfo](ctx, s.store, domain.DocSalon)
}

// ReplaceSalonInfo overwrites the whole salon.json object. This is a deliberate
// last-writer-wins save: the client submits the entire object, there is no
// record-level merge to preserve.
func (s *ContentService) ReplaceSalonInfo(ctx context.Context, info domain.SalonInfo) error {
	if info.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := Save(ctx, s.store, domain.DocSalon, info); err != nil {
		return err
	}
	s.publishContentEvent(ctx, "salon", "updated", "")
	return nil
}

// --- Contact messages ---

type ContactInput struct {
	Name  string
	Email string
	Phone string
	Body  string
}

// SubmitContact appends a contact-form submission to messages.json and emits a
// contact-received event for downstream consumers.
func (s *ContentService) SubmitContact(ctx context.Context, input ContactInput) (domain.ContactMessage, error) {
	if input.Name == "" {
		return domain.ContactMessage{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if input.Body == "" {
		return domain.ContactMessage{}, fmt.Errorf("%w: body is required", ErrValidation)
	}
	created, err := createRecord(ctx, s, domain.DocMessages, func(id string) domain.ContactMessage {
		return domain.ContactMessage{
			ID:         id,
			Name:       input.Name,
			Email:      input.Email,
			Phone:      input.Phone,
			Body:       input.Body,
			ReceivedAt: s.now(),
		}
	})
	if err != nil {
		return domain.ContactMessage{}, err
	}

	if s.events != nil {
		if err := s.events.PublishContactReceived(ctx, created); err != nil {
			s.logger.Warn(ctx, "Failed to publish contact-received event", "record_id", created.ID, "error", err.Error())
		}
	}
	return created, nil
}
