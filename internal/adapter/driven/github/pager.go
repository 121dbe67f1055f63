package github

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/akravch/gitscout/internal/domain/port/driven"
)

// Unwrap extracts the raw records from one page body. The repository listing
// returns a top-level JSON array; the user search wraps records in an
// {"items": [...]} envelope.
type Unwrap func(body []byte) ([]json.RawMessage, error)

// UnwrapArray decodes a top-level JSON array of records.
func UnwrapArray(body []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrResponseFormat, err)
	}
	return records, nil
}

// UnwrapItems decodes an {"items": [...]} envelope of records.
func UnwrapItems(body []byte) ([]json.RawMessage, error) {
	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrResponseFormat, err)
	}
	if envelope.Items == nil {
		return nil, fmt.Errorf("%w: missing items envelope", driven.ErrResponseFormat)
	}
	return envelope.Items, nil
}

// Pager walks one logical listing across pages linked by rel="next". Only
// one sequence may be in flight per Pager: starting a new sequence cancels
// the previous one before issuing its first request, and the superseded
// sequence terminates with ErrCancelled.
type Pager struct {
	fetcher    *Fetcher
	unwrap     Unwrap
	singlePage bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPager creates a Pager that follows next-page links until exhaustion.
func NewPager(fetcher *Fetcher, unwrap Unwrap) *Pager {
	return &Pager{fetcher: fetcher, unwrap: unwrap}
}

// NewSinglePagePager creates a Pager that stops after the first page even
// when the server advertises more.
func NewSinglePagePager(fetcher *Fetcher, unwrap Unwrap) *Pager {
	return &Pager{fetcher: fetcher, unwrap: unwrap, singlePage: true}
}

// Paginate fetches pages starting at startURL until no next-page link
// remains, passing each page's raw records to onPage in server order. Pages
// already delivered are not unwound on a later failure; transactional
// callers own that. A decode failure aborts with ErrResponseFormat.
func (p *Pager) Paginate(ctx context.Context, startURL, token string, onPage driven.PageFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	// A sequence that was cancelled before reaching this point is already
	// superseded; it must not displace the live sequence's cancel func.
	if ctx.Err() != nil {
		p.mu.Unlock()
		return fmt.Errorf("paginate: %w", driven.ErrCancelled)
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	current := startURL
	for {
		page, err := p.fetcher.Fetch(ctx, current, token)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("paginate: %w", driven.ErrCancelled)
			}
			return err
		}

		records, err := p.unwrap(page.Body)
		if err != nil {
			return err
		}

		if err := onPage(records); err != nil {
			return err
		}

		if page.NextURL == "" || p.singlePage {
			return nil
		}
		current = page.NextURL
	}
}
