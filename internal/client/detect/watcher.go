package detect

import (
	"context"
	"strconv"

	"github.com/jobrefme/jobrefme-cli/internal/client/store"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// TabEvent is one active-tab change reported by the browser side.
type TabEvent struct {
	URL string
}

// Watcher re-resolves (isSupportedPageURL, currentURL) on every tab event
// and writes the result into the shared store, where any surface can read
// it. It never triggers generation itself.
type Watcher struct {
	store store.Store
	log   logging.Logger
}

func NewWatcher(st store.Store, log logging.Logger) *Watcher {
	return &Watcher{store: st, log: log}
}

// Run consumes events until ctx is done or the channel closes.
func (w *Watcher) Run(ctx context.Context, events <-chan TabEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.Apply(ctx, ev.URL)
		}
	}
}

// Apply records the detection result for one URL.
func (w *Watcher) Apply(ctx context.Context, url string) {
	supported := IsJobURL(url)

	if err := w.store.Set(ctx, common.KeyCurrentURL, []byte(url)); err != nil {
		w.log.Error(ctx, "failed to record current url", "error", err)
	}
	if err := w.store.Set(ctx, common.KeyIsSupportedPage, []byte(strconv.FormatBool(supported))); err != nil {
		w.log.Error(ctx, "failed to record page support flag", "error", err)
	}

	if supported {
		w.log.Info(ctx, "job posting detected", "url", url, "jobId", ExtractJobID(url))
	}
}

// Current reads the last recorded detection result from the store.
func Current(ctx context.Context, st store.Store) (url string, supported bool) {
	if raw, err := st.Get(ctx, common.KeyCurrentURL); err == nil {
		url = string(raw)
	}
	if raw, err := st.Get(ctx, common.KeyIsSupportedPage); err == nil {
		supported = string(raw) == "true"
	}
	return url, supported
}
