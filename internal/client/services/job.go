package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/client/detect"
	"github.com/jobrefme/jobrefme-cli/internal/client/notify"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// Status is the phase of the referral generation workflow.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusGenerating Status = "generating"
	StatusFetching   Status = "fetching"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// InFlight reports whether the workflow is between a start and a terminal
// phase. New generations are refused while in flight.
func (s Status) InFlight() bool {
	return s == StatusValidating || s == StatusGenerating || s == StatusFetching
}

const (
	pollInterval = 1500 * time.Millisecond
	pollAttempts = 10

	errMsgAuthRequired   = "Authentication required. Please log in to continue."
	errMsgAPIKeyRequired = "Gemini API key is required. Please configure it in the settings."
	errMsgInvalidJobURL  = "This does not appear to be a HireJobs job posting URL."
	errMsgPollTimeout    = "Timed out waiting for referral result"
	errMsgClearCache     = "Failed to clear cache for this job URL"
)

// ErrGenerationInFlight is returned when a start is refused because another
// generation has not reached a terminal phase yet.
var ErrGenerationInFlight = errors.New("a generation is already in progress")

// Task is a point-in-time snapshot of the workflow.
type Task struct {
	Status   Status
	JobURL   string
	Referral *api.Referral
	// ErrorMessage and ErrorJobURL survive only until the next successful
	// completion or an explicit reset. ErrorJobURL is set only for URL-based
	// generations so the retry path knows which cache entry to clear.
	ErrorMessage string
	ErrorJobURL  string
}

// JobService drives the referral generation state machine. Exactly one
// workflow runs at a time; surfaces observe it via Snapshot and the notifier.
type JobService struct {
	client   api.Client
	state    *state.Manager
	notifier *notify.Notifier
	log      logging.Logger

	// sleep and now are replaced in tests to collapse the polling delays.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu       sync.Mutex
	status   Status
	jobURL   string
	referral *api.Referral
	errMsg   string
	errURL   string
}

type JobOption func(*JobService)

func WithJobSleep(fn func(ctx context.Context, d time.Duration) error) JobOption {
	return func(j *JobService) { j.sleep = fn }
}

func WithJobClock(now func() time.Time) JobOption {
	return func(j *JobService) { j.now = now }
}

func NewJobService(client api.Client, st *state.Manager, n *notify.Notifier, log logging.Logger, opts ...JobOption) *JobService {
	j := &JobService{
		client:   client,
		state:    st,
		notifier: n,
		log:      log,
		sleep:    sleepCtx,
		now:      time.Now,
		status:   StatusIdle,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Snapshot returns the current workflow state.
func (j *JobService) Snapshot() Task {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Task{
		Status:       j.status,
		JobURL:       j.jobURL,
		Referral:     j.referral,
		ErrorMessage: j.errMsg,
		ErrorJobURL:  j.errURL,
	}
}

// ValidateURL asks the backend whether jobURL points at a processable
// posting. It occupies the workflow while running but does not generate.
func (j *JobService) ValidateURL(ctx context.Context, jobURL string) (bool, error) {
	if err := j.begin(StatusValidating, jobURL); err != nil {
		return false, err
	}
	ok, err := j.client.ValidateJobURL(ctx, jobURL)
	if err != nil {
		j.fail(ctx, err, "Failed to validate job URL", jobURL)
		return false, fmt.Errorf("validate job url: %w", err)
	}
	j.mu.Lock()
	j.status = StatusIdle
	j.mu.Unlock()
	return ok, nil
}

// GenerateFromURL runs the full URL-based workflow: initiate generation on
// the backend, then poll for the result. Preconditions are checked before
// any phase change so a refused start leaves the machine untouched.
func (j *JobService) GenerateFromURL(ctx context.Context, jobURL string) error {
	if msg, err := j.checkPreconditions(); err != nil {
		j.setErrState(msg, "")
		return err
	}
	if !detect.IsJobURL(jobURL) {
		j.setErrState(errMsgInvalidJobURL, "")
		return common.ErrInvalidJobURL
	}
	if err := j.begin(StatusGenerating, jobURL); err != nil {
		return err
	}
	return j.generateURL(ctx, jobURL)
}

// generateURL carries the workflow from Generating to a terminal phase. The
// caller must already hold the machine (begin or an internal chain).
func (j *JobService) generateURL(ctx context.Context, jobURL string) error {
	if err := j.client.InitiateGeneration(ctx, jobURL, j.state.SelectedTemplateID()); err != nil {
		j.fail(ctx, err, "Failed to generate referral message", jobURL)
		return fmt.Errorf("initiate generation: %w", err)
	}

	j.mu.Lock()
	j.status = StatusFetching
	j.mu.Unlock()

	ref, err := j.pollResult(ctx, jobURL)
	if err != nil {
		if errors.Is(err, common.ErrPollTimeout) {
			j.fail(ctx, err, errMsgPollTimeout, jobURL)
		} else {
			j.fail(ctx, err, "Failed to fetch referral result", jobURL)
		}
		return err
	}

	j.complete(ref)
	return nil
}

// pollResult checks for a finished result a fixed number of times with a
// fixed delay between checks. A result still cooking is not an error until
// the attempts run out.
func (j *JobService) pollResult(ctx context.Context, jobURL string) (*api.Referral, error) {
	for attempt := 0; attempt < pollAttempts; attempt++ {
		if err := j.sleep(ctx, pollInterval); err != nil {
			return nil, err
		}
		ref, err := j.client.FetchGenerationResult(ctx, jobURL)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, api.ErrProcessing) {
			return nil, fmt.Errorf("fetch generation result: %w", err)
		}
		j.log.Debug(ctx, "referral result not ready", "attempt", attempt+1)
	}
	return nil, common.ErrPollTimeout
}

// GenerateFromContent generates from the captured page content instead of a
// URL. Single round trip, no polling. The capture is consumed on success.
func (j *JobService) GenerateFromContent(ctx context.Context) error {
	if msg, err := j.checkPreconditions(); err != nil {
		j.setErrState(msg, "")
		return err
	}

	content, ok := j.freshSelectedContent(ctx)
	if !ok {
		j.setErrState("No selected job content found. Select job text on the page first.", "")
		return common.ErrNotFound
	}

	if err := j.begin(StatusGenerating, ""); err != nil {
		return err
	}

	ref, err := j.client.GenerateFromContent(ctx, content)
	if err != nil {
		// no ErrorJobURL: a content run has no cache entry to retry against
		j.fail(ctx, err, "Failed to generate referral message", "")
		return fmt.Errorf("generate from content: %w", err)
	}

	j.complete(ref)
	j.state.ClearSelectedContent(ctx)
	return nil
}

// ClearCacheAndRetry drops the backend's cached extraction for the job URL
// of the failed (or current) run, then restarts generation for it.
func (j *JobService) ClearCacheAndRetry(ctx context.Context) error {
	j.mu.Lock()
	if j.status.InFlight() {
		j.mu.Unlock()
		return ErrGenerationInFlight
	}
	jobURL := j.errURL
	if jobURL == "" {
		jobURL = j.jobURL
	}
	if jobURL == "" {
		j.mu.Unlock()
		return common.ErrInvalidJobURL
	}
	j.mu.Unlock()

	// same entry conditions as a fresh start, checked before any network call
	if msg, err := j.checkPreconditions(); err != nil {
		j.setErrState(msg, jobURL)
		return err
	}

	j.mu.Lock()
	if j.status.InFlight() {
		j.mu.Unlock()
		return ErrGenerationInFlight
	}
	j.status = StatusValidating
	j.jobURL = jobURL
	j.mu.Unlock()

	ok, err := j.client.ClearCache(ctx, jobURL)
	if err != nil || !ok {
		if err == nil {
			err = common.ErrInternal
		}
		j.fail(ctx, err, errMsgClearCache, jobURL)
		return fmt.Errorf("clear cache: %w", err)
	}

	j.mu.Lock()
	j.status = StatusGenerating
	j.mu.Unlock()
	return j.generateURL(ctx, jobURL)
}

// ClearCacheOnly drops the backend's cache entry for jobURL without
// restarting generation. It does not touch the state machine.
func (j *JobService) ClearCacheOnly(ctx context.Context, jobURL string) (bool, error) {
	ok, err := j.client.ClearCache(ctx, jobURL)
	if err != nil {
		return false, fmt.Errorf("clear cache: %w", err)
	}
	return ok, nil
}

// Reset returns the machine to Idle and forgets result and error state.
func (j *JobService) Reset() {
	j.mu.Lock()
	j.status = StatusIdle
	j.jobURL = ""
	j.referral = nil
	j.errMsg = ""
	j.errURL = ""
	j.mu.Unlock()
	j.notifier.Clear()
}

// CheckForSelectedContent reports whether a fresh capture is waiting. A
// stale capture is discarded here so it cannot resurface later.
func (j *JobService) CheckForSelectedContent(ctx context.Context) bool {
	_, ok := j.freshSelectedContent(ctx)
	return ok
}

// Teardown is the surface-going-away hook. It drops an unconsumed capture
// unless a generation is mid-flight and may still need it.
func (j *JobService) Teardown(ctx context.Context) {
	j.mu.Lock()
	inFlight := j.status == StatusGenerating || j.status == StatusFetching
	j.mu.Unlock()
	if !inFlight {
		j.state.ClearSelectedContent(ctx)
	}
}

func (j *JobService) freshSelectedContent(ctx context.Context) (string, bool) {
	content, capturedAt, ok := j.state.SelectedContent(ctx)
	if !ok {
		return "", false
	}
	if j.now().Sub(capturedAt) > common.SelectedContentTTL {
		j.log.Debug(ctx, "discarding stale selected content", "capturedAt", capturedAt)
		j.state.ClearSelectedContent(ctx)
		return "", false
	}
	return content, true
}

// checkPreconditions returns the user-facing message and sentinel for a
// refused start, or ("", nil) when generation may proceed.
func (j *JobService) checkPreconditions() (string, error) {
	if !j.state.IsSessionValid() {
		return errMsgAuthRequired, common.ErrUnauthorized
	}
	if !j.state.HasAPIKey() {
		return errMsgAPIKeyRequired, common.ErrNoAPIKey
	}
	return "", nil
}

// begin moves the machine from a resting phase into phase, refusing when a
// run is already in flight.
func (j *JobService) begin(phase Status, jobURL string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.InFlight() {
		return ErrGenerationInFlight
	}
	j.status = phase
	j.jobURL = jobURL
	return nil
}

func (j *JobService) complete(ref *api.Referral) {
	j.mu.Lock()
	j.status = StatusCompleted
	j.referral = ref
	j.errMsg = ""
	j.errURL = ""
	j.mu.Unlock()
	j.notifier.SetSuccess("Referral message generated")
}

// fail records a terminal error. errURL is kept only when the failed run
// targeted a URL, so the clear-cache retry path has something to act on.
func (j *JobService) fail(ctx context.Context, err error, msg string, jobURL string) {
	if errors.Is(err, common.ErrUnauthorized) {
		j.log.Warn(ctx, "generation unauthorized, forcing logout")
		j.state.ClearSession(ctx)
		msg = errMsgAuthRequired
	}
	j.setErrState(msg, jobURL)
}

func (j *JobService) setErrState(msg string, jobURL string) {
	j.mu.Lock()
	j.status = StatusError
	j.errMsg = msg
	j.errURL = jobURL
	j.mu.Unlock()
	j.notifier.SetError(msg)
}
