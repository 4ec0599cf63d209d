package web

import (
	"net/http"
	"sync"

	"sponsorship/internal/application/orchestrators"
	"sponsorship/internal/domain/mailmerge"
	domain "sponsorship/internal/domain/sponsor"
)

// maxBatchResults bounds how many finished batches stay viewable after the redirect.
const maxBatchResults = 200

// batchResult is what the result page shows for one finished batch.
type batchResult struct {
	Subject  string
	Sponsors []domain.Sponsor
	Dispatch orchestrators.DispatchSponsorEmailResult
}

// batchRegistry makes each compose form one-shot: a batch ID is claimed before sending
// and a claimed ID is never sent again.
// INVARIANT: an ID is in pending or done, never both
type batchRegistry struct {
	mu      sync.Mutex
	pending map[string]bool
	done    map[string]batchResult
	order   []string // done IDs, oldest first
}

func newBatchRegistry() *batchRegistry {
	return &batchRegistry{
		pending: make(map[string]bool),
		done:    make(map[string]batchResult),
	}
}

// claim reserves id for one send.
// PRE: id is non-empty
// POST: Returns false when id is being sent or was already sent
func (b *batchRegistry) claim(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[id] {
		return false
	}
	if _, ok := b.done[id]; ok {
		return false
	}
	b.pending[id] = true
	return true
}

// release gives up a claim that did not lead to a send.
func (b *batchRegistry) release(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}

// finish records the outcome of a claimed batch, evicting the oldest result when full.
func (b *batchRegistry) finish(id string, res batchResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
	if _, ok := b.done[id]; !ok {
		b.order = append(b.order, id)
	}
	b.done[id] = res
	for len(b.order) > maxBatchResults {
		delete(b.done, b.order[0])
		b.order = b.order[1:]
	}
}

// lookup returns a finished batch; sending reports a claim still in flight.
func (b *batchRegistry) lookup(id string) (res batchResult, sending, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[id] {
		return batchResult{}, true, false
	}
	res, ok = b.done[id]
	return res, false, ok
}

// validBatchID accepts the IDs the server generates: short runs of letters, digits and dashes.
func validBatchID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if c != '-' && (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func batchURL(id string) string {
	return "/admin/sponsors/email/batches/" + id
}

// handleSponsorEmailBatch renders the outcome of a sent batch (GET /admin/sponsors/email/batches/{id})
// PRE: Staff is authenticated
// POST: Shows sent and failed sponsors; unknown or evicted batches are 404
func (s *server) handleSponsorEmailBatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, sending, ok := s.batches.lookup(id)
	page := s.newEmailPage(nil)
	page.BatchID = id
	switch {
	case sending:
		page.Error = "This batch is still being sent. Reload the page in a moment."
		renderTemplate(w, r, http.StatusAccepted, "sponsor_email.html", page)
		return
	case !ok:
		http.NotFound(w, r)
		return
	}
	page.Subject = res.Subject
	page.Sponsors = res.Sponsors
	page.Recipients = mailmerge.ResolveRecipients(res.Sponsors...)
	page.Dispatch = &res.Dispatch
	page.Failures = res.Dispatch.Failures
	renderTemplate(w, r, http.StatusOK, "sponsor_email.html", page)
}
