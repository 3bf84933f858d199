package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

const stateCollection = "membership_state"

// StateRepository persists the whole membership state as one document per
// group, replaced wholesale on every save. A single-document replace is
// atomic in MongoDB, which gives the store its all-or-nothing flush.
type StateRepository struct {
	coll *mongo.Collection
}

// NewStateRepository creates a StateRepository on the given database.
func NewStateRepository(db *mongo.Database) *StateRepository {
	return &StateRepository{coll: db.Collection(stateCollection)}
}

// BSON maps require string keys, so records are stored as arrays and keyed
// back into maps on load.
type stateDoc struct {
	GroupID     int64                     `bson:"_id"`
	Bans        []domain.BanRecord        `bson:"bans"`
	Suspensions []domain.SuspensionRecord `bson:"suspensions"`
	UpdatedAt   time.Time                 `bson:"updated_at"`
}

// Load returns the persisted state for the group, or an empty state when
// none has been written yet.
func (r *StateRepository) Load(ctx context.Context, groupID int64) (*domain.MembershipState, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc stateDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": groupID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.NewMembershipState(groupID), nil
		}
		return nil, fmt.Errorf("load state %d: %w", groupID, err)
	}

	state := domain.NewMembershipState(groupID)
	for _, rec := range doc.Bans {
		state.Bans[rec.SubjectID] = rec
	}
	for _, rec := range doc.Suspensions {
		state.Suspensions[rec.SubjectID] = rec
	}
	return state, nil
}

// Save replaces the group's state document, creating it on first write.
func (r *StateRepository) Save(ctx context.Context, state *domain.MembershipState) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := stateDoc{
		GroupID:     state.GroupID,
		Bans:        make([]domain.BanRecord, 0, len(state.Bans)),
		Suspensions: make([]domain.SuspensionRecord, 0, len(state.Suspensions)),
		UpdatedAt:   time.Now().UTC(),
	}
	for _, rec := range state.Bans {
		doc.Bans = append(doc.Bans, rec)
	}
	for _, rec := range state.Suspensions {
		doc.Suspensions = append(doc.Suspensions, rec)
	}

	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"_id": state.GroupID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save state %d: %w", state.GroupID, err)
	}
	return nil
}
