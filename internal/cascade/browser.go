package cascade

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/hitscan/internal/model"
)

// SelectorFamily names a set of elements the browsing layer can harvest.
type SelectorFamily int

const (
	// FamilyDetailLinks are links and handlers that lead to a machine
	// detail view.
	FamilyDetailLinks SelectorFamily = iota
	// FamilyAttributed are all elements whose attributes may mention a
	// machine number.
	FamilyAttributed
)

// String returns the family name.
func (f SelectorFamily) String() string {
	switch f {
	case FamilyDetailLinks:
		return "detail_links"
	case FamilyAttributed:
		return "attributed"
	default:
		return "unknown"
	}
}

// Selector returns the CSS selector group of the family.
func (f SelectorFamily) Selector() string {
	switch f {
	case FamilyDetailLinks:
		return DetailLinkSelector
	case FamilyAttributed:
		return AttributedSelector
	default:
		return ""
	}
}

// DetailLinkSelector matches elements that open a machine detail view.
const DetailLinkSelector = "a[href*='cd_dai='],a[href*='dai='],a[href*='no='],a[href*='cd_m='],a[href*='cd_d=']," +
	"a[href*='nc-v06-']," +
	"area[href*='cd_dai='],area[onclick*='cd_dai'],area[href*='nc-v06-']," +
	"svg a[href*='cd_dai='],svg a[href*='nc-v06-'],svg [onclick*='cd_dai']," +
	"[data-dai],[data-no],[data-unit],[data-machine],[data-ban]," +
	"[onclick*='dai'],[onclick*='no'],[onclick*='ban'],[onclick*='cd_dai']," +
	"[onclick*='unit'],[onclick*='machine']"

// AttributedSelector matches every element worth scanning for machine numbers.
const AttributedSelector = "a, area, [onclick], [data-dai], [data-no], [data-unit], [data-machine], " +
	"[data-ban], [value], [title], [alt], [aria-label]"

// ErrNoTarget is returned by Browser.Navigate when a target resolves to
// nothing. It is not retried.
var ErrNoTarget = errors.New("nothing to navigate to")

// Target describes where to navigate.
type Target struct {
	// Href is a link found on the page. It is matched against the page's
	// elements first and resolved against the current URL otherwise.
	Href string

	// URL is an absolute URL to load directly.
	URL string

	// Identifier is the machine number the target is expected to show.
	// With no Href and no URL the browser activates the element that
	// advertises this identifier.
	Identifier model.Identifier
}

// ProbeGrid configures pointer probing.
type ProbeGrid struct {
	Cols      int
	Rows      int
	Pause     time.Duration
	MaxClicks int
}

// ProbeResult reports what a probe did.
type ProbeResult struct {
	Targets int
	Clicks  int
}

// Browser is the browsing collaborator the cascade drives. Implementations
// push the responses they observe into the capture ring themselves.
type Browser interface {
	// CurrentURL returns the URL of the current view.
	CurrentURL() string

	// TextBlobs returns the markup and inner text of the current view and
	// its frames.
	TextBlobs(ctx context.Context) ([]string, error)

	// Navigate opens t. The bool reports whether the view changed, in which
	// case Back returns to the previous view. Navigate may activate an
	// element without leaving the page and return false with a nil error.
	// It returns ErrNoTarget when t names nothing it can open or activate.
	Navigate(ctx context.Context, t Target) (bool, error)

	// Back returns to the previous view.
	Back(ctx context.Context) error

	// Harvest returns the attributes of the elements of a family.
	Harvest(ctx context.Context, family SelectorFamily) ([]model.AttributeBag, error)

	// Probe clicks a grid over canvas-like widgets.
	Probe(ctx context.Context, grid ProbeGrid) (ProbeResult, error)
}

// ResponseSource yields the responses captured since the last call.
// capture.Ring implements it.
type ResponseSource interface {
	SnapshotAndClear() []model.ResponseSample
}
