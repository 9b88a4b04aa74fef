package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/repocrawl/internal/model"
)

// DefaultMarkerSelector selects the links GitHub's file browser renders for
// repository content. The data-pjax attribute is a structural marker that
// survives restyling of the page.
const DefaultMarkerSelector = `a[data-pjax="#repo-content-pjax-container"]`

// Lister returns the raw content links found on a directory page.
type Lister interface {
	// List fetches address and returns, in page order, every fragment
	// carrying the content marker. It fails with ErrMalformedAddress for an
	// invalid address and with ErrRemoteUnavailable when the page cannot be
	// fetched.
	List(ctx context.Context, address string) ([]model.RawEntry, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context, address string) ([]model.RawEntry, error)

// List calls f.
func (f ListerFunc) List(ctx context.Context, address string) ([]model.RawEntry, error) {
	return f(ctx, address)
}

// HTMLLister lists entries by fetching the page through a PageFetcher and
// selecting marked elements with a CSS selector.
type HTMLLister struct {
	fetcher  PageFetcher
	selector string
}

// ListerOption configures an HTMLLister.
type ListerOption func(*HTMLLister)

// WithMarkerSelector replaces DefaultMarkerSelector.
func WithMarkerSelector(selector string) ListerOption {
	return func(l *HTMLLister) {
		if selector != "" {
			l.selector = selector
		}
	}
}

// NewHTMLLister creates a lister reading pages through fetcher.
func NewHTMLLister(fetcher PageFetcher, opts ...ListerOption) *HTMLLister {
	l := &HTMLLister{
		fetcher:  fetcher,
		selector: DefaultMarkerSelector,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// List implements Lister. No retries or caching happen here; wrap the
// fetcher to add them.
func (l *HTMLLister) List(ctx context.Context, address string) ([]model.RawEntry, error) {
	if _, err := model.ParseAddress(address); err != nil {
		return nil, err
	}

	body, err := l.fetcher.FetchPage(ctx, address)
	if err != nil {
		if errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrMalformedAddress) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrRemoteUnavailable, address, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: unreadable page: %w", ErrRemoteUnavailable, address, err)
	}

	entries := make([]model.RawEntry, 0)
	doc.Find(l.selector).Each(func(_ int, s *goquery.Selection) {
		fragment, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		entries = append(entries, model.RawEntry(fragment))
	})

	return entries, nil
}
