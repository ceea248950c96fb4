package ticket

import "context"

// Store reads and updates tickets. Update is a single merge-style write; the
// read-modify-write around it carries no optimistic-concurrency token. A race
// between two concurrent submitters on the same ticket can drop one append;
// the single-technician-per-ticket assumption makes this an accepted hazard.
type Store interface {
	Get(ctx context.Context, tenantID, id string) (*Ticket, error)
	Update(ctx context.Context, t *Ticket) error
}
