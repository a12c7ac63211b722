package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"shortlet-server/models"
	"shortlet-server/storage"
	"shortlet-server/utils"
)

// Search modes. The pager starts indexed and switches to fallback at
// most once; the mode rides inside the cursor so later pages of the
// same session never flap back.
const (
	modeIndexed  = "indexed"
	modeFallback = "fallback"
)

// DefaultSearchPageSize is the fixed raw page size of both strategies.
const DefaultSearchPageSize = 24

// ErrSearchBusy is returned when a page fetch is requested while
// another one is already in flight on the same pager.
var ErrSearchBusy = errors.New("a page fetch is already in flight")

// ListingSource is the document-store surface the pager reads from.
// The production implementation is storage.ListingStore.
type ListingSource interface {
	FetchIndexed(ctx context.Context, f storage.ListingFilter, after *storage.IndexedCursor, limit int) ([]models.ListingDoc, *storage.IndexedCursor, error)
	FetchScan(ctx context.Context, afterID string, limit int) ([]models.ListingDoc, string, error)
}

// SearchRequest are the caller-supplied filters plus the opaque cursor
// from a previous page.
type SearchRequest struct {
	Query    string
	City     string
	MinPrice float64
	MaxPrice float64
	Cursor   string
}

// SearchPage is one page of normalized results. Notice is set the first
// time the pager degrades to the fallback strategy.
type SearchPage struct {
	Listings   []models.ListingDoc `json:"listings"`
	NextCursor string              `json:"nextCursor,omitempty"`
	HasMore    bool                `json:"hasMore"`
	Fallback   bool                `json:"fallback"`
	Notice     string              `json:"notice,omitempty"`
}

// searchCursor is the decoded form of the opaque cursor token.
type searchCursor struct {
	Mode    string                 `json:"m"`
	Indexed *storage.IndexedCursor `json:"i,omitempty"`
	ScanID  string                 `json:"s,omitempty"`
}

// ListingSearchPager answers browse/search queries with cursor
// pagination, degrading to an unindexed scan when the preferred query
// needs a composite index the store does not have.
type ListingSearchPager struct {
	Source   ListingSource
	PageSize int

	inFlight int32
}

func NewListingSearchPager() *ListingSearchPager {
	return &ListingSearchPager{Source: storage.Listings(), PageSize: DefaultSearchPageSize}
}

// Search fetches and normalizes one page. Calling it again while a
// fetch is in flight is a no-op returning ErrSearchBusy.
func (p *ListingSearchPager) Search(ctx context.Context, req SearchRequest) (*SearchPage, error) {
	if !atomic.CompareAndSwapInt32(&p.inFlight, 0, 1) {
		return nil, ErrSearchBusy
	}
	defer atomic.StoreInt32(&p.inFlight, 0)

	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = DefaultSearchPageSize
	}

	cursor, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	var (
		raw      []models.ListingDoc
		next     searchCursor
		degraded bool
	)

	if cursor.Mode == modeIndexed {
		filter := storage.ListingFilter{MinPrice: req.MinPrice, MaxPrice: req.MaxPrice}
		rows, last, err := p.Source.FetchIndexed(ctx, filter, cursor.Indexed, pageSize)
		switch {
		case err == nil:
			raw = rows
			next = searchCursor{Mode: modeIndexed, Indexed: last}
		case storage.IndexRequired(err):
			// Missing composite index: degrade to the scan strategy for
			// the remainder of this pagination session.
			degraded = true
			cursor = searchCursor{Mode: modeFallback}
		default:
			return nil, err
		}
	}

	if cursor.Mode == modeFallback {
		rows, lastID, err := p.Source.FetchScan(ctx, cursor.ScanID, pageSize)
		if err != nil {
			return nil, err
		}
		raw = rows
		next = searchCursor{Mode: modeFallback, ScanID: lastID}
	}

	hasMore := len(raw) == pageSize

	page := &SearchPage{
		Listings: normalizeListings(raw, req),
		HasMore:  hasMore,
		Fallback: next.Mode == modeFallback,
	}
	if degraded {
		page.Notice = "Search is running in a reduced mode; results may load slower or be incomplete."
	}
	if hasMore {
		token, err := encodeCursor(next)
		if err != nil {
			return nil, err
		}
		page.NextCursor = token
	}
	return page, nil
}

func decodeCursor(token string) (searchCursor, error) {
	if token == "" {
		return searchCursor{Mode: modeIndexed}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return searchCursor{}, errors.New("invalid cursor")
	}
	var c searchCursor
	if err := json.Unmarshal(data, &c); err != nil {
		return searchCursor{}, errors.New("invalid cursor")
	}
	if c.Mode != modeIndexed && c.Mode != modeFallback {
		return searchCursor{}, errors.New("invalid cursor")
	}
	return c, nil
}

func encodeCursor(c searchCursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// cityAliases folds regional variants of a metro onto one canonical
// key so an exact-city filter matches the whole area.
var cityAliases = map[string]string{
	"ikeja":           "lagos",
	"lekki":           "lagos",
	"yaba":            "lagos",
	"vi":              "lagos",
	"victoria island": "lagos",
	"fct":             "abuja",
	"garki":           "abuja",
	"wuse":            "abuja",
	"ph":              "port harcourt",
	"phc":             "port harcourt",
	"portharcourt":    "port harcourt",
	"port-harcourt":   "port harcourt",
}

// NormalizeCity lowercases, collapses whitespace and folds known
// aliases to the canonical metro name.
func NormalizeCity(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	c = strings.Join(strings.Fields(c), " ")
	if canonical, ok := cityAliases[c]; ok {
		return canonical
	}
	return c
}

// normalizeListings applies the client-side pass that runs regardless
// of strategy: status gate, city/text/price filters, dedupe, sort.
// Under the fallback strategy this is the only filtering there is;
// under the indexed strategy it is defense in depth.
func normalizeListings(raw []models.ListingDoc, req SearchRequest) []models.ListingDoc {
	wantCity := NormalizeCity(req.City)
	query := strings.ToLower(strings.TrimSpace(req.Query))

	seenIDs := make(map[string]bool, len(raw))
	seenFingerprints := make(map[string]bool, len(raw))

	out := make([]models.ListingDoc, 0, len(raw))
	for _, doc := range raw {
		if doc.Status != models.ListingActive {
			continue
		}
		if wantCity != "" && NormalizeCity(doc.City) != wantCity {
			continue
		}
		if query != "" && !matchesQuery(doc, query) {
			continue
		}
		if req.MinPrice > 0 && doc.PricePerNight < req.MinPrice {
			continue
		}
		if req.MaxPrice > 0 && doc.PricePerNight > req.MaxPrice {
			continue
		}
		if seenIDs[doc.ID] {
			continue
		}
		fp := fingerprint(doc)
		if seenFingerprints[fp] {
			continue
		}
		seenIDs[doc.ID] = true
		seenFingerprints[fp] = true
		out = append(out, doc)
	}

	if req.MinPrice > 0 || req.MaxPrice > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PricePerNight < out[j].PricePerNight
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return recency(out[i]).After(recency(out[j]))
		})
	}
	return out
}

func matchesQuery(doc models.ListingDoc, query string) bool {
	return strings.Contains(strings.ToLower(doc.Title), query) ||
		strings.Contains(strings.ToLower(doc.City), query) ||
		strings.Contains(strings.ToLower(doc.Area), query)
}

// fingerprint collapses duplicate/import artifacts that carry distinct
// ids but describe the same listing.
func fingerprint(doc models.ListingDoc) string {
	firstImage := ""
	if len(doc.Photos) > 0 {
		firstImage = doc.Photos[0]
		if len(firstImage) > 32 {
			firstImage = firstImage[:32]
		}
	}
	var b strings.Builder
	b.WriteString(NormalizeCity(doc.City))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(doc.Title)))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(doc.PricePerNight, 'f', -1, 64))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(firstImage))
	return b.String()
}

// recency returns the instant used for the default sort: updatedAt,
// falling back to createdAt, zero time when neither is usable.
func recency(doc models.ListingDoc) time.Time {
	if t, ok := utils.ToInstant(doc.UpdatedAt); ok {
		return t
	}
	if t, ok := utils.ToInstant(doc.CreatedAt); ok {
		return t
	}
	return time.Time{}
}
