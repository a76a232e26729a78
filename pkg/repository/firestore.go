package repository

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	checklistCollection = "checklists"
	counterCollection   = "counters"
)

type checklistDoc struct {
	ID        int64     `firestore:"id"`
	Items     []string  `firestore:"items"`
	CreatedAt time.Time `firestore:"created_at"`
}

type counterDoc struct {
	Value int64 `firestore:"value"`
}

// Firestore stores checklists as documents keyed by their decimal id. Ids
// come from a counter document incremented in the same transaction as the
// insert, so they stay monotonic.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func checklistDocID(id model.ChecklistID) string {
	return strconv.FormatInt(int64(id), 10)
}

func (r *Firestore) SaveChecklist(ctx context.Context, checklist []string) (model.ChecklistID, error) {
	if checklist == nil {
		checklist = []string{}
	}

	var id model.ChecklistID
	counterRef := r.client.Collection(counterCollection).Doc(checklistCollection)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var counter counterDoc
		snap, err := tx.Get(counterRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return goerr.Wrap(err, "failed to get checklist counter")
		default:
			if err := snap.DataTo(&counter); err != nil {
				return goerr.Wrap(err, "failed to decode checklist counter")
			}
		}

		next := counter.Value + 1
		if err := tx.Set(counterRef, counterDoc{Value: next}); err != nil {
			return goerr.Wrap(err, "failed to bump checklist counter")
		}

		docRef := r.client.Collection(checklistCollection).Doc(checklistDocID(model.ChecklistID(next)))
		if err := tx.Create(docRef, checklistDoc{
			ID:        next,
			Items:     checklist,
			CreatedAt: time.Now(),
		}); err != nil {
			return goerr.Wrap(err, "failed to create checklist document")
		}

		id = model.ChecklistID(next)
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to save checklist")
	}

	return id, nil
}

func (r *Firestore) GetChecklist(ctx context.Context, id model.ChecklistID) ([]string, error) {
	snap, err := r.client.Collection(checklistCollection).Doc(checklistDocID(id)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, goerr.Wrap(model.ErrChecklistNotFound, "no such checklist", goerr.V("checklist_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get checklist", goerr.V("checklist_id", id))
	}

	var doc checklistDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode checklist", goerr.V("checklist_id", id))
	}
	if doc.Items == nil {
		doc.Items = []string{}
	}
	return doc.Items, nil
}
